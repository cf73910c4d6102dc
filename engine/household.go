/*
household.go - Household configuration entity

PURPOSE:
  Household is the stable configuration of a member-managed entity for a
  planning horizon: who the adults are, how child costs are weighted, the
  affordability cap, the care compensation model, and the long-term savings
  parameters. It carries no behavior beyond derived aggregate queries and
  validation.

INVARIANTS:
  - 3 to 5 adults, inclusive. This is a hard validation failure, not a
    warning: the unit method's fairness assumptions do not hold outside
    that range.
  - childUnitWeight in [0.1, 1.0], capPercent in [0.05, 0.6],
    visionAllocPercent in [0, 0.5], emergencyMonths in [1, 12].
  - All percentage-type fields are fractions in [0,1], never 0-100 integers.

SNAPSHOT SEMANTICS:
  Calculators treat Household as an immutable value snapshot. The owner of
  storage produces a new snapshot after any configuration change; nothing in
  this package mutates a Household.

SEE ALSO:
  - period.go: the per-month transactional counterpart
  - unitmethod.go: consumes the derived unit totals
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITY TYPES
// =============================================================================

// Adult is one contributing household member.
type Adult struct {
	ID        string
	Name      string
	NetIncome decimal.Decimal // monthly net income, non-negative
}

// SinkingFund is a named savings target (e.g. "Medical Deductible").
type SinkingFund struct {
	Name           string
	AnnualTarget   decimal.Decimal
	CurrentBalance decimal.Decimal
	Account        string
}

// Governance carries optional quorum thresholds for the surrounding
// proposal/voting system. The engine never interprets them beyond bounding
// each by the adult count; they ride along for external consumers.
type Governance struct {
	DecisionQuorum  int // 0 = unset
	AmendmentQuorum int // 0 = unset
}

// Household is the stable configuration for a planning horizon.
type Household struct {
	ID       string
	Name     string
	Currency string // display code only; no arithmetic semantics

	Adults []Adult

	ChildrenCount   int
	ChildUnitWeight decimal.Decimal // unit weight per child, [0.1, 1.0]

	CapPercent decimal.Decimal // max share of an adult's net income, [0.05, 0.6]

	CareModel       CareModel
	CareRatePerHour decimal.Decimal

	VisionAllocPercent decimal.Decimal // fraction of income for long-term goals, [0, 0.5]
	EmergencyMonths    int             // target buffer in months of core spend, [1, 12]

	SinkingFunds []SinkingFund
	Governance   Governance
}

// =============================================================================
// DERIVED AGGREGATES - computed, never stored
// =============================================================================

// TotalNetIncome sums the adults' monthly net incomes.
func (h Household) TotalNetIncome() decimal.Decimal {
	total := decimal.Zero
	for _, a := range h.Adults {
		total = total.Add(a.NetIncome)
	}
	return total
}

// TotalChildUnits is childrenCount x childUnitWeight: one shared weight
// multiplied by count, not a per-child weight.
func (h Household) TotalChildUnits() decimal.Decimal {
	return decimal.NewFromInt(int64(h.ChildrenCount)).Mul(h.ChildUnitWeight)
}

// TotalUnits is the apportionment denominator: one unit per adult plus the
// total child units.
func (h Household) TotalUnits() decimal.Decimal {
	return decimal.NewFromInt(int64(len(h.Adults))).Add(h.TotalChildUnits())
}

// Adult looks up a member by id.
func (h Household) Adult(id string) (Adult, bool) {
	for _, a := range h.Adults {
		if a.ID == id {
			return a, true
		}
	}
	return Adult{}, false
}

// =============================================================================
// VALIDATION
// =============================================================================

var (
	minChildUnitWeight = decimal.RequireFromString("0.1")
	maxChildUnitWeight = decimal.RequireFromString("1.0")
	minCapPercent      = decimal.RequireFromString("0.05")
	maxCapPercent      = decimal.RequireFromString("0.6")
	maxVisionPercent   = decimal.RequireFromString("0.5")
)

// ValidateHousehold checks every configuration constraint and reports all
// violations together. A nil return means the household is safe to hand to
// any calculator.
func ValidateHousehold(h Household) error {
	errs := &ValidationErrors{}

	if h.Name == "" {
		errs.addf("name", "must not be empty")
	}
	if h.Currency == "" {
		errs.addf("currency", "must not be empty")
	}

	if n := len(h.Adults); n < 3 || n > 5 {
		errs.addf("adults", "household must have 3 to 5 adults, got %d", n)
	}
	seen := make(map[string]bool, len(h.Adults))
	for i, a := range h.Adults {
		field := "adults[" + a.ID + "]"
		if a.ID == "" {
			errs.addf("adults", "adult at index %d has an empty id", i)
			continue
		}
		if seen[a.ID] {
			errs.addf(field, "duplicate adult id")
		}
		seen[a.ID] = true
		if a.Name == "" {
			errs.addf(field, "name must not be empty")
		}
		if a.NetIncome.IsNegative() {
			errs.addf(field, "net income must be non-negative, got %s", a.NetIncome)
		}
	}

	if h.ChildrenCount < 0 {
		errs.addf("childrenCount", "must be non-negative, got %d", h.ChildrenCount)
	}
	if h.ChildUnitWeight.LessThan(minChildUnitWeight) || h.ChildUnitWeight.GreaterThan(maxChildUnitWeight) {
		errs.addf("childUnitWeight", "must be in [0.1, 1.0], got %s", h.ChildUnitWeight)
	}

	if h.CapPercent.LessThan(minCapPercent) || h.CapPercent.GreaterThan(maxCapPercent) {
		errs.addf("capPercent", "must be in [0.05, 0.6], got %s", h.CapPercent)
	}

	if !h.CareModel.Valid() {
		errs.addf("careModel", "must be %q or %q, got %q", CareModelCredit, CareModelStipend, h.CareModel)
	}
	if !h.CareRatePerHour.IsPositive() {
		errs.addf("careRatePerHour", "must be positive, got %s", h.CareRatePerHour)
	}

	if h.VisionAllocPercent.IsNegative() || h.VisionAllocPercent.GreaterThan(maxVisionPercent) {
		errs.addf("visionAllocPercent", "must be in [0, 0.5], got %s", h.VisionAllocPercent)
	}
	if h.EmergencyMonths < 1 || h.EmergencyMonths > 12 {
		errs.addf("emergencyMonths", "must be in [1, 12], got %d", h.EmergencyMonths)
	}

	for i, f := range h.SinkingFunds {
		if f.Name == "" {
			errs.addf("sinkingFunds", "fund at index %d has an empty name", i)
		}
		if f.AnnualTarget.IsNegative() {
			errs.addf("sinkingFunds["+f.Name+"]", "annual target must be non-negative, got %s", f.AnnualTarget)
		}
	}

	adultCount := len(h.Adults)
	if h.Governance.DecisionQuorum < 0 || h.Governance.DecisionQuorum > adultCount {
		errs.addf("governance.decisionQuorum", "must be in [0, %d], got %d", adultCount, h.Governance.DecisionQuorum)
	}
	if h.Governance.AmendmentQuorum < 0 || h.Governance.AmendmentQuorum > adultCount {
		errs.addf("governance.amendmentQuorum", "must be in [0, %d], got %d", adultCount, h.Governance.AmendmentQuorum)
	}

	return errs.orNil()
}
