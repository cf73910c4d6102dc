/*
Package factory converts between engine entities and their plain JSON
records.

PURPOSE:
  The engine works with decimal-typed value snapshots; everything outside
  it (persistence, import/export, the HTTP layer) speaks plain structured
  records. This package owns that boundary: a HouseholdJSON/PeriodJSON is
  a JSON-compatible record with float64 amounts, and Parse* functions turn
  one into a validated engine entity or return the collected validation
  errors.

WHY JSON RECORDS?
  - Households and periods are configured by people, not code
  - Easy database storage of whole snapshots
  - Export/import between installations

PARSE CONTRACT:
  ParseHousehold and ParsePeriod never return a partially valid entity:
  decode errors and engine validation errors both surface as errors, and
  validation errors arrive as one collected engine.ValidationErrors so a
  form can show every problem at once.

SEE ALSO:
  - engine/household.go, engine/period.go: the validated entities
  - store/sqlite: persists the records this package produces
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/coreshare-engine/engine"
)

// =============================================================================
// JSON RECORD TYPES
// =============================================================================

// AdultJSON is one adult member record.
type AdultJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	NetIncome float64 `json:"netIncome"`
}

// SinkingFundJSON is one named savings target.
type SinkingFundJSON struct {
	Name           string  `json:"name"`
	AnnualTarget   float64 `json:"annualTarget"`
	CurrentBalance float64 `json:"currentBalance"`
	Account        string  `json:"account,omitempty"`
}

// GovernanceJSON carries optional quorum thresholds.
type GovernanceJSON struct {
	DecisionQuorum  int `json:"decisionQuorum,omitempty"`
	AmendmentQuorum int `json:"amendmentQuorum,omitempty"`
}

// HouseholdJSON is the plain record form of a household configuration.
type HouseholdJSON struct {
	ID                 string            `json:"id,omitempty"`
	Name               string            `json:"name"`
	Currency           string            `json:"currency"`
	Adults             []AdultJSON       `json:"adults"`
	ChildrenCount      int               `json:"childrenCount"`
	ChildUnitWeight    float64           `json:"childUnitWeight"`
	CapPercent         float64           `json:"capPercent"`
	CareModel          string            `json:"careModel"`
	CareRatePerHour    float64           `json:"careRatePerHour"`
	VisionAllocPercent float64           `json:"visionAllocPercent"`
	EmergencyMonths    int               `json:"emergencyMonths"`
	SinkingFunds       []SinkingFundJSON `json:"sinkingFunds,omitempty"`
	Governance         *GovernanceJSON   `json:"governance,omitempty"`
}

// CareEntryJSON is one logged care-work record. Dates use "2006-01-02".
type CareEntryJSON struct {
	ID      string  `json:"id"`
	AdultID string  `json:"adultId"`
	Date    string  `json:"date"`
	Task    string  `json:"task"`
	Hours   float64 `json:"hours"`
}

// GovernanceEventJSON is a logged decision or amendment.
type GovernanceEventJSON struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// PeriodJSON is the plain record form of one accounting cycle.
type PeriodJSON struct {
	ID                 string                `json:"id,omitempty"`
	HouseholdID        string                `json:"householdId"`
	Label              string                `json:"label"`
	CoreTotal          float64               `json:"coreTotal"`
	AssignedChildUnits map[string]float64    `json:"assignedChildUnits"`
	Overrides          map[string]float64    `json:"overrides,omitempty"`
	CareEntries        []CareEntryJSON       `json:"careEntries,omitempty"`
	Decisions          []GovernanceEventJSON `json:"decisions,omitempty"`
	Amendments         []GovernanceEventJSON `json:"amendments,omitempty"`
	IsLocked           bool                  `json:"isLocked"`
	CreatedAt          string                `json:"createdAt,omitempty"`
	UpdatedAt          string                `json:"updatedAt,omitempty"`
}

const dateLayout = "2006-01-02"

// =============================================================================
// HOUSEHOLD CONVERSION
// =============================================================================

// HouseholdFromRecord converts a record without validating it.
func HouseholdFromRecord(rec HouseholdJSON) engine.Household {
	h := engine.Household{
		ID:                 rec.ID,
		Name:               rec.Name,
		Currency:           rec.Currency,
		ChildrenCount:      rec.ChildrenCount,
		ChildUnitWeight:    decimal.NewFromFloat(rec.ChildUnitWeight),
		CapPercent:         decimal.NewFromFloat(rec.CapPercent),
		CareModel:          engine.CareModel(rec.CareModel),
		CareRatePerHour:    decimal.NewFromFloat(rec.CareRatePerHour),
		VisionAllocPercent: decimal.NewFromFloat(rec.VisionAllocPercent),
		EmergencyMonths:    rec.EmergencyMonths,
	}
	for _, a := range rec.Adults {
		h.Adults = append(h.Adults, engine.Adult{
			ID:        a.ID,
			Name:      a.Name,
			NetIncome: decimal.NewFromFloat(a.NetIncome),
		})
	}
	for _, f := range rec.SinkingFunds {
		h.SinkingFunds = append(h.SinkingFunds, engine.SinkingFund{
			Name:           f.Name,
			AnnualTarget:   decimal.NewFromFloat(f.AnnualTarget),
			CurrentBalance: decimal.NewFromFloat(f.CurrentBalance),
			Account:        f.Account,
		})
	}
	if rec.Governance != nil {
		h.Governance = engine.Governance{
			DecisionQuorum:  rec.Governance.DecisionQuorum,
			AmendmentQuorum: rec.Governance.AmendmentQuorum,
		}
	}
	return h
}

// ParseHousehold decodes and validates a household record.
func ParseHousehold(data []byte) (*engine.Household, error) {
	var rec HouseholdJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode household: %w", err)
	}
	h := HouseholdFromRecord(rec)
	if err := engine.ValidateHousehold(h); err != nil {
		return nil, err
	}
	return &h, nil
}

// HouseholdToRecord converts an engine household back to its record form.
func HouseholdToRecord(h engine.Household) HouseholdJSON {
	rec := HouseholdJSON{
		ID:                 h.ID,
		Name:               h.Name,
		Currency:           h.Currency,
		ChildrenCount:      h.ChildrenCount,
		ChildUnitWeight:    h.ChildUnitWeight.InexactFloat64(),
		CapPercent:         h.CapPercent.InexactFloat64(),
		CareModel:          string(h.CareModel),
		CareRatePerHour:    h.CareRatePerHour.InexactFloat64(),
		VisionAllocPercent: h.VisionAllocPercent.InexactFloat64(),
		EmergencyMonths:    h.EmergencyMonths,
	}
	for _, a := range h.Adults {
		rec.Adults = append(rec.Adults, AdultJSON{
			ID:        a.ID,
			Name:      a.Name,
			NetIncome: a.NetIncome.InexactFloat64(),
		})
	}
	for _, f := range h.SinkingFunds {
		rec.SinkingFunds = append(rec.SinkingFunds, SinkingFundJSON{
			Name:           f.Name,
			AnnualTarget:   f.AnnualTarget.InexactFloat64(),
			CurrentBalance: f.CurrentBalance.InexactFloat64(),
			Account:        f.Account,
		})
	}
	if h.Governance != (engine.Governance{}) {
		rec.Governance = &GovernanceJSON{
			DecisionQuorum:  h.Governance.DecisionQuorum,
			AmendmentQuorum: h.Governance.AmendmentQuorum,
		}
	}
	return rec
}

// =============================================================================
// PERIOD CONVERSION
// =============================================================================

// PeriodFromRecord converts a record without validating it against a
// household. Date fields that fail to parse are reported.
func PeriodFromRecord(rec PeriodJSON) (*engine.Period, error) {
	errs := &decodeErrors{}

	p := &engine.Period{
		ID:                 rec.ID,
		HouseholdID:        rec.HouseholdID,
		Label:              rec.Label,
		CoreTotal:          decimal.NewFromFloat(rec.CoreTotal),
		AssignedChildUnits: make(map[string]decimal.Decimal, len(rec.AssignedChildUnits)),
		Overrides:          make(map[string]decimal.Decimal, len(rec.Overrides)),
		IsLocked:           rec.IsLocked,
		CreatedAt:          errs.timestamp("createdAt", rec.CreatedAt),
		UpdatedAt:          errs.timestamp("updatedAt", rec.UpdatedAt),
	}
	for id, u := range rec.AssignedChildUnits {
		p.AssignedChildUnits[id] = decimal.NewFromFloat(u)
	}
	for id, o := range rec.Overrides {
		p.Overrides[id] = decimal.NewFromFloat(o)
	}
	for _, e := range rec.CareEntries {
		p.CareEntries = append(p.CareEntries, engine.CareEntry{
			ID:      e.ID,
			AdultID: e.AdultID,
			Date:    errs.date("careEntries["+e.ID+"].date", e.Date),
			Task:    e.Task,
			Hours:   decimal.NewFromFloat(e.Hours),
		})
	}
	for _, d := range rec.Decisions {
		p.Decisions = append(p.Decisions, engine.GovernanceEvent{
			ID: d.ID, Description: d.Description, Date: errs.date("decisions["+d.ID+"].date", d.Date),
		})
	}
	for _, a := range rec.Amendments {
		p.Amendments = append(p.Amendments, engine.GovernanceEvent{
			ID: a.ID, Description: a.Description, Date: errs.date("amendments["+a.ID+"].date", a.Date),
		})
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParsePeriod decodes a period record and validates it against the
// household it belongs to.
func ParsePeriod(data []byte, h engine.Household) (*engine.Period, error) {
	var rec PeriodJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode period: %w", err)
	}
	p, err := PeriodFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidatePeriod(*p, h); err != nil {
		return nil, err
	}
	return p, nil
}

// PeriodToRecord converts an engine period back to its record form.
func PeriodToRecord(p engine.Period) PeriodJSON {
	rec := PeriodJSON{
		ID:                 p.ID,
		HouseholdID:        p.HouseholdID,
		Label:              p.Label,
		CoreTotal:          p.CoreTotal.InexactFloat64(),
		AssignedChildUnits: make(map[string]float64, len(p.AssignedChildUnits)),
		IsLocked:           p.IsLocked,
	}
	if !p.CreatedAt.IsZero() {
		rec.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		rec.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for id, u := range p.AssignedChildUnits {
		rec.AssignedChildUnits[id] = u.InexactFloat64()
	}
	if len(p.Overrides) > 0 {
		rec.Overrides = make(map[string]float64, len(p.Overrides))
		for id, o := range p.Overrides {
			rec.Overrides[id] = o.InexactFloat64()
		}
	}
	for _, e := range p.CareEntries {
		rec.CareEntries = append(rec.CareEntries, CareEntryJSON{
			ID:      e.ID,
			AdultID: e.AdultID,
			Date:    e.Date.UTC().Format(dateLayout),
			Task:    e.Task,
			Hours:   e.Hours.InexactFloat64(),
		})
	}
	for _, d := range p.Decisions {
		rec.Decisions = append(rec.Decisions, GovernanceEventJSON{
			ID: d.ID, Description: d.Description, Date: d.Date.UTC().Format(dateLayout),
		})
	}
	for _, a := range p.Amendments {
		rec.Amendments = append(rec.Amendments, GovernanceEventJSON{
			ID: a.ID, Description: a.Description, Date: a.Date.UTC().Format(dateLayout),
		})
	}
	return rec
}

// =============================================================================
// DECODE ERROR COLLECTION
// =============================================================================

// decodeErrors accumulates date-parse failures so a record with several bad
// dates reports them all, mirroring the engine's collected validation.
type decodeErrors struct {
	inner engine.ValidationErrors
}

func (d *decodeErrors) date(field, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		d.inner.Violations = append(d.inner.Violations, engine.FieldError{
			Field: field, Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", value),
		})
		return time.Time{}
	}
	return t
}

func (d *decodeErrors) timestamp(field, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		d.inner.Violations = append(d.inner.Violations, engine.FieldError{
			Field: field, Message: fmt.Sprintf("invalid timestamp %q, want RFC 3339", value),
		})
		return time.Time{}
	}
	return t
}

func (d *decodeErrors) orNil() error {
	if len(d.inner.Violations) == 0 {
		return nil
	}
	return &d.inner
}
