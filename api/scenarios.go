/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a household and one
	or more monthly periods that demonstrate specific engine behavior.

AVAILABLE SCENARIOS:

	capped-commune:     Every adult hits the income cap; deficit warning
	rebalance-trio:     One capped adult; the others absorb the shortfall
	stipend-collective: Stipend care model feeding next month's core total

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Build a household and validate it through the engine
 3. Open one or more periods with child-unit assignments
 4. Optionally add care entries and governance events

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "rebalance-trio"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - factory/records.go: household and period records
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/coreshare-engine/engine"
	"github.com/warp/coreshare-engine/factory"
	"github.com/warp/coreshare-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "capped-commune",
		Name:        "Capped Commune",
		Description: "Three adults, four children, a core total no cap-respecting split can cover",
	},
	{
		ID:          "rebalance-trio",
		Name:        "Rebalance Trio",
		Description: "One adult capped at 30% of income; the others absorb the shortfall",
	},
	{
		ID:          "stipend-collective",
		Name:        "Stipend Collective",
		Description: "Stipend care model: care hours raise next month's core total",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "capped-commune":
		err = h.loadCappedCommune(ctx)
	case "rebalance-trio":
		err = h.loadRebalanceTrio(ctx)
	case "stipend-collective":
		err = h.loadStipendCollective(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data without loading a scenario.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("bad scenario constant %q: %v", s, err))
	}
	return d
}

// loadCappedCommune: incomes 4500/3200/2800, four children at weight 0.6,
// core 6000 with a 30% cap. All three adults cap out, leaving a deficit
// the report surfaces with remediation options.
func (h *Handler) loadCappedCommune(ctx context.Context) error {
	household := engine.Household{
		ID:       "hh-capped",
		Name:     "Cedar Street Collective",
		Currency: "USD",
		Adults: []engine.Adult{
			{ID: "a1", Name: "Ana", NetIncome: dec("4500")},
			{ID: "a2", Name: "Bo", NetIncome: dec("3200")},
			{ID: "a3", Name: "Cam", NetIncome: dec("2800")},
		},
		ChildrenCount:      4,
		ChildUnitWeight:    dec("0.6"),
		CapPercent:         dec("0.3"),
		CareModel:          engine.CareModelCredit,
		CareRatePerHour:    dec("15"),
		VisionAllocPercent: dec("0.1"),
		EmergencyMonths:    3,
		SinkingFunds: []engine.SinkingFund{
			{Name: "Medical Deductible", AnnualTarget: dec("3000"), CurrentBalance: dec("500"), Account: "hysa"},
			{Name: "Home Maintenance", AnnualTarget: dec("2400"), CurrentBalance: dec("0"), Account: "hysa"},
		},
		Governance: engine.Governance{DecisionQuorum: 2, AmendmentQuorum: 3},
	}

	p := engine.NewPeriod("per-capped-1", household.ID, "2026-08", dec("6000"))
	p.AssignedChildUnits = map[string]decimal.Decimal{
		"a1": dec("0.8"), "a2": dec("0.8"), "a3": dec("0.8"),
	}
	p.CareEntries = []engine.CareEntry{
		{ID: "ce-1", AdultID: "a2", Date: day(2026, 8, 4), Task: "school run", Hours: dec("6")},
		{ID: "ce-2", AdultID: "a3", Date: day(2026, 8, 9), Task: "meal prep", Hours: dec("4.5")},
	}
	p.Decisions = []engine.GovernanceEvent{
		{ID: "d-1", Description: "Approved shared grocery budget increase", Date: day(2026, 8, 2)},
	}

	return h.saveScenario(ctx, household, p)
}

// loadRebalanceTrio: incomes 1000/2000/3000, core 1000. The lowest earner
// caps at 300 and a single rebalance pass settles the others at 350 each.
func (h *Handler) loadRebalanceTrio(ctx context.Context) error {
	household := engine.Household{
		ID:       "hh-trio",
		Name:     "Juniper Row",
		Currency: "USD",
		Adults: []engine.Adult{
			{ID: "a1", Name: "Drew", NetIncome: dec("1000")},
			{ID: "a2", Name: "Em", NetIncome: dec("2000")},
			{ID: "a3", Name: "Flo", NetIncome: dec("3000")},
		},
		ChildrenCount:      0,
		ChildUnitWeight:    dec("0.5"),
		CapPercent:         dec("0.3"),
		CareModel:          engine.CareModelCredit,
		CareRatePerHour:    dec("18"),
		VisionAllocPercent: dec("0.08"),
		EmergencyMonths:    4,
		SinkingFunds: []engine.SinkingFund{
			{Name: "Vehicle Repairs", AnnualTarget: dec("1800"), CurrentBalance: dec("250"), Account: "credit union"},
		},
		Governance: engine.Governance{DecisionQuorum: 2, AmendmentQuorum: 2},
	}

	p := engine.NewPeriod("per-trio-1", household.ID, "2026-08", dec("1000"))
	p.AssignedChildUnits = map[string]decimal.Decimal{
		"a1": dec("0"), "a2": dec("0"), "a3": dec("0"),
	}
	p.CareEntries = []engine.CareEntry{
		{ID: "ce-1", AdultID: "a1", Date: day(2026, 8, 11), Task: "garden upkeep", Hours: dec("3")},
	}

	return h.saveScenario(ctx, household, p)
}

// loadStipendCollective: a stipend-model household where logged care hours
// are paid out of the core and raise the next month's estimated core total.
func (h *Handler) loadStipendCollective(ctx context.Context) error {
	household := engine.Household{
		ID:       "hh-stipend",
		Name:     "Harbor House",
		Currency: "EUR",
		Adults: []engine.Adult{
			{ID: "a1", Name: "Gil", NetIncome: dec("2600")},
			{ID: "a2", Name: "Hana", NetIncome: dec("3100")},
			{ID: "a3", Name: "Io", NetIncome: dec("2200")},
			{ID: "a4", Name: "Jules", NetIncome: dec("2900")},
		},
		ChildrenCount:      2,
		ChildUnitWeight:    dec("0.5"),
		CapPercent:         dec("0.35"),
		CareModel:          engine.CareModelStipend,
		CareRatePerHour:    dec("12"),
		VisionAllocPercent: dec("0.12"),
		EmergencyMonths:    3,
		SinkingFunds: []engine.SinkingFund{
			{Name: "Emergency Cushion", AnnualTarget: dec("6000"), CurrentBalance: dec("1200"), Account: "hysa"},
			{Name: "Summer Travel", AnnualTarget: dec("2000"), CurrentBalance: dec("300"), Account: "checking"},
		},
		Governance: engine.Governance{DecisionQuorum: 3, AmendmentQuorum: 4},
	}

	p := engine.NewPeriod("per-stipend-1", household.ID, "2026-08", dec("3400"))
	p.AssignedChildUnits = map[string]decimal.Decimal{
		"a1": dec("0.25"), "a2": dec("0.25"), "a3": dec("0.25"), "a4": dec("0.25"),
	}
	p.CareEntries = []engine.CareEntry{
		{ID: "ce-1", AdultID: "a3", Date: day(2026, 8, 3), Task: "childcare", Hours: dec("8")},
		{ID: "ce-2", AdultID: "a3", Date: day(2026, 8, 10), Task: "childcare", Hours: dec("8")},
		{ID: "ce-3", AdultID: "a1", Date: day(2026, 8, 15), Task: "elder visit", Hours: dec("2")},
	}
	p.Amendments = []engine.GovernanceEvent{
		{ID: "am-1", Description: "Raised care stipend rate from 10 to 12", Date: day(2026, 8, 1)},
	}

	return h.saveScenario(ctx, household, p)
}

// saveScenario validates and persists one household with its period.
func (h *Handler) saveScenario(ctx context.Context, household engine.Household, p *engine.Period) error {
	if err := engine.ValidateHousehold(household); err != nil {
		return fmt.Errorf("scenario household invalid: %w", err)
	}
	if err := engine.ValidatePeriod(*p, household); err != nil {
		return fmt.Errorf("scenario period invalid: %w", err)
	}

	configJSON, err := json.Marshal(factory.HouseholdToRecord(household))
	if err != nil {
		return err
	}
	if err := h.Store.SaveHousehold(ctx, sqlite.HouseholdRecord{
		ID:         household.ID,
		Name:       household.Name,
		ConfigJSON: string(configJSON),
	}); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(factory.PeriodToRecord(*p))
	if err != nil {
		return err
	}
	return h.Store.SavePeriod(ctx, sqlite.PeriodRecord{
		ID:          p.ID,
		HouseholdID: p.HouseholdID,
		Label:       p.Label,
		StateJSON:   string(stateJSON),
		IsLocked:    p.IsLocked,
		CreatedAt:   p.CreatedAt,
	})
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
