package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/coreshare-engine/engine"
	"github.com/warp/coreshare-engine/factory"
)

func validHouseholdJSON() string {
	return `{
		"id": "hh-1",
		"name": "Cedar Street Collective",
		"currency": "USD",
		"adults": [
			{"id": "a1", "name": "Ana", "netIncome": 4500},
			{"id": "a2", "name": "Bo", "netIncome": 3200},
			{"id": "a3", "name": "Cam", "netIncome": 2800}
		],
		"childrenCount": 4,
		"childUnitWeight": 0.6,
		"capPercent": 0.3,
		"careModel": "credit",
		"careRatePerHour": 15,
		"visionAllocPercent": 0.1,
		"emergencyMonths": 3,
		"sinkingFunds": [
			{"name": "Medical Deductible", "annualTarget": 3000, "currentBalance": 500, "account": "hysa"}
		],
		"governance": {"decisionQuorum": 2}
	}`
}

func TestParseHousehold_ValidRecord(t *testing.T) {
	h, err := factory.ParseHousehold([]byte(validHouseholdJSON()))
	require.NoError(t, err)

	assert.Equal(t, "Cedar Street Collective", h.Name)
	require.Len(t, h.Adults, 3)
	assert.True(t, h.Adults[0].NetIncome.Equal(decimalFrom(t, "4500")))
	assert.True(t, h.TotalChildUnits().Equal(decimalFrom(t, "2.4")))
	assert.Equal(t, engine.CareModelCredit, h.CareModel)
	require.Len(t, h.SinkingFunds, 1)
	assert.Equal(t, 2, h.Governance.DecisionQuorum)
}

func TestParseHousehold_InvalidRecord_CollectsViolations(t *testing.T) {
	// Two adults and a cap out of range: both must be reported.
	raw := `{
		"name": "Broken", "currency": "EUR",
		"adults": [{"id":"a1","name":"Ana","netIncome":1000},{"id":"a2","name":"Bo","netIncome":1000}],
		"childrenCount": 0, "childUnitWeight": 0.5,
		"capPercent": 0.9, "careModel": "credit", "careRatePerHour": 10,
		"visionAllocPercent": 0.1, "emergencyMonths": 3
	}`

	_, err := factory.ParseHousehold([]byte(raw))
	require.Error(t, err)

	var verrs *engine.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Violations, 2)
}

func TestParseHousehold_MalformedJSON(t *testing.T) {
	_, err := factory.ParseHousehold([]byte(`{"name": `))
	assert.Error(t, err)
}

func TestPeriod_RoundTrip(t *testing.T) {
	// GIVEN: a populated period
	// WHEN:  exporting to a record and parsing it back
	// THEN:  the engine entity survives intact

	h, err := factory.ParseHousehold([]byte(validHouseholdJSON()))
	require.NoError(t, err)

	raw := `{
		"id": "per-1",
		"householdId": "hh-1",
		"label": "2026-01",
		"coreTotal": 6000,
		"assignedChildUnits": {"a1": 0.8, "a2": 0.8, "a3": 0.8},
		"overrides": {"a2": 500},
		"careEntries": [
			{"id": "ce-1", "adultId": "a1", "date": "2026-01-10", "task": "school run", "hours": 3}
		],
		"decisions": [
			{"id": "d-1", "description": "approved grocery budget", "date": "2026-01-05"}
		],
		"isLocked": false,
		"createdAt": "2026-01-01T09:00:00Z",
		"updatedAt": "2026-01-12T18:30:00Z"
	}`

	p, err := factory.ParsePeriod([]byte(raw), *h)
	require.NoError(t, err)
	assert.Equal(t, "2026-01", p.Label)
	assert.True(t, p.CoreTotal.Equal(decimalFrom(t, "6000")))
	assert.True(t, p.Overrides["a2"].Equal(decimalFrom(t, "500")))
	require.Len(t, p.CareEntries, 1)
	assert.Equal(t, "school run", p.CareEntries[0].Task)

	rec := factory.PeriodToRecord(*p)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	back, err := factory.ParsePeriod(data, *h)
	require.NoError(t, err)
	assert.Equal(t, p.Label, back.Label)
	assert.True(t, back.CoreTotal.Equal(p.CoreTotal))
	assert.Equal(t, p.CareEntries[0].Date, back.CareEntries[0].Date)
	require.Len(t, back.Decisions, 1)
	assert.Equal(t, "approved grocery budget", back.Decisions[0].Description)
}

func TestParsePeriod_BadDatesCollected(t *testing.T) {
	h, err := factory.ParseHousehold([]byte(validHouseholdJSON()))
	require.NoError(t, err)

	raw := `{
		"householdId": "hh-1", "label": "2026-02", "coreTotal": 1000,
		"assignedChildUnits": {"a1": 0.8, "a2": 0.8, "a3": 0.8},
		"careEntries": [
			{"id": "ce-1", "adultId": "a1", "date": "01/10/2026", "task": "laundry", "hours": 2},
			{"id": "ce-2", "adultId": "a2", "date": "not-a-date", "task": "cooking", "hours": 1}
		]
	}`

	_, err = factory.ParsePeriod([]byte(raw), *h)
	require.Error(t, err)

	var verrs *engine.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Violations, 2, "both bad dates should be reported")
}

func TestParsePeriod_ValidatesAgainstHousehold(t *testing.T) {
	h, err := factory.ParseHousehold([]byte(validHouseholdJSON()))
	require.NoError(t, err)

	// Assignment sums to 1.8, not 2.4.
	raw := `{
		"householdId": "hh-1", "label": "2026-03", "coreTotal": 1000,
		"assignedChildUnits": {"a1": 0.6, "a2": 0.6, "a3": 0.6}
	}`

	_, err = factory.ParsePeriod([]byte(raw), *h)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func decimalFrom(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}
