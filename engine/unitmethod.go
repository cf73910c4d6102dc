/*
unitmethod.go - Weighted-unit apportionment with caps and rebalancing

PURPOSE:
  The central calculator. Splits a period's core total across the adults by
  weighted units (one unit per adult plus their assigned child units),
  bounds each adult's burden at capPercent of their net income, and fairly
  redistributes whatever the caps cut off among the adults who can still
  absorb it.

RESOLUTION ORDER (per adult):
  1. Override present  -> final share is exactly the override. Exempt from
     the cap and untouchable by rebalancing.
  2. Prelim <= cap     -> final share is the preliminary share.
  3. Prelim > cap      -> final share is the cap amount; adult is capped.

REBALANCING:
  Capping one adult must not silently leave the core underfunded, so the
  shortfall (or excess) is redistributed across the adults who are neither
  capped nor overridden, proportionally to their preliminary shares. An
  adjustment that would push an adult past their cap clamps at the cap and
  flags them capped, which removes them from the next iteration. The loop
  runs until the total is within Tolerance of the core total or
  MaxRebalanceIterations is reached.

DEFICIT AFTER CAPS:
  If everyone ends up capped or overridden and the total still falls short,
  the calculation completes and attaches a deficit warning carrying the
  shortfall, its percentage of the core total, and three remediation
  options with "increase_core" recommended. A persistent SURPLUS after the
  iteration budget does not warn; the asymmetry is deliberate.

PURITY:
  CalculateUnitMethod builds its own working rows and never mutates the
  Household or Period it is given, so repeated calls are idempotent and
  concurrent calls on different inputs need no coordination.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// AdultShare is one adult's row in the apportionment result.
type AdultShare struct {
	AdultID            string
	Name               string
	AssignedChildUnits decimal.Decimal
	Units              decimal.Decimal // 1 adult unit + assigned child units
	PrelimShare        decimal.Decimal
	CapAmount          decimal.Decimal
	Override           *decimal.Decimal // nil when no override is set
	FinalShare         decimal.Decimal
	Capped             bool
	Overridden         bool
}

// UnitResult is the full outcome of one apportionment run.
type UnitResult struct {
	UnitCost decimal.Decimal

	Shares []AdultShare // household member order

	SumPrelim    decimal.Decimal
	SumFinal     decimal.Decimal
	DiffFromCore decimal.Decimal // SumFinal - CoreTotal, in cents

	RebalanceIterations int

	// Audit is the ordered, human-auditable trail of every computational
	// step: unit cost derivation, each cap/override application, and each
	// rebalancing iteration.
	Audit []string

	Warnings []Warning
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

// validateUnitMethodInputs re-checks the constraints the algorithm depends
// on, collecting every violation. Callers are expected to have run the full
// ValidateHousehold/ValidatePeriod pair already; this is the engine's own
// safety net.
func validateUnitMethodInputs(h Household, p Period) error {
	errs := &ValidationErrors{}

	if n := len(h.Adults); n < 3 || n > 5 {
		errs.addf("adults", "household must have 3 to 5 adults, got %d", n)
	}
	if !p.CoreTotal.IsPositive() {
		errs.addf("coreTotal", "must be positive, got %s", p.CoreTotal)
	}
	if h.CapPercent.LessThan(minCapPercent) || h.CapPercent.GreaterThan(maxCapPercent) {
		errs.addf("capPercent", "must be in [0.05, 0.6], got %s", h.CapPercent)
	}

	sum := decimal.Zero
	for _, u := range p.AssignedChildUnits {
		sum = sum.Add(u)
	}
	want := h.TotalChildUnits()
	if sum.Sub(want).Abs().GreaterThan(Tolerance) {
		errs.addf("assignedChildUnits", "sum %s does not match total child units %s (tolerance %s)", sum, want, Tolerance)
	}

	return errs.orNil()
}

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateUnitMethod apportions the period's core total across the
// household's adults. Pure function of its two inputs; the returned result
// is freshly allocated on every call.
func CalculateUnitMethod(h Household, p Period) (*UnitResult, error) {
	if err := validateUnitMethodInputs(h, p); err != nil {
		return nil, err
	}

	res := &UnitResult{}

	totalUnits := h.TotalUnits()
	res.UnitCost = RoundCents(p.CoreTotal.Div(totalUnits))
	res.audit("unit cost: core total %s / %s total units = %s",
		p.CoreTotal, totalUnits, res.UnitCost)

	// Preliminary shares, caps, overrides.
	res.Shares = make([]AdultShare, len(h.Adults))
	for i, a := range h.Adults {
		assigned := p.AssignedChildUnits[a.ID] // validated present; zero if absent
		units := decimal.NewFromInt(1).Add(assigned)

		s := AdultShare{
			AdultID:            a.ID,
			Name:               a.Name,
			AssignedChildUnits: assigned,
			Units:              units,
			PrelimShare:        RoundCents(res.UnitCost.Mul(units)),
			CapAmount:          RoundCents(h.CapPercent.Mul(a.NetIncome)),
		}

		if ov, ok := p.Overrides[a.ID]; ok {
			rounded := RoundCents(ov)
			s.Override = &rounded
			s.FinalShare = rounded
			s.Overridden = true
			res.audit("%s: override %s applied (cap and rebalancing bypassed)", a.ID, rounded)
		} else if s.PrelimShare.GreaterThan(s.CapAmount) {
			s.FinalShare = s.CapAmount
			s.Capped = true
			res.audit("%s: prelim %s exceeds cap %s (%s of income %s), capped",
				a.ID, s.PrelimShare, s.CapAmount, h.CapPercent, a.NetIncome)
		} else {
			s.FinalShare = s.PrelimShare
			res.audit("%s: prelim %s within cap %s, uncapped", a.ID, s.PrelimShare, s.CapAmount)
		}

		res.Shares[i] = s
	}

	res.recomputeTotals(p.CoreTotal)
	res.audit("totals: prelim %s, final %s, diff from core %s",
		res.SumPrelim, res.SumFinal, res.DiffFromCore)

	res.rebalance(p.CoreTotal)

	if res.DiffFromCore.LessThan(Tolerance.Neg()) {
		res.addDeficitWarning(p.CoreTotal)
	}

	return res, nil
}

// recomputeTotals refreshes the three totals from the current rows.
func (r *UnitResult) recomputeTotals(coreTotal decimal.Decimal) {
	sumPrelim, sumFinal := decimal.Zero, decimal.Zero
	for _, s := range r.Shares {
		sumPrelim = sumPrelim.Add(s.PrelimShare)
		sumFinal = sumFinal.Add(s.FinalShare)
	}
	r.SumPrelim = RoundCents(sumPrelim)
	r.SumFinal = RoundCents(sumFinal)
	r.DiffFromCore = RoundCents(sumFinal.Sub(coreTotal))
}

// rebalance redistributes the diff across uncapped, non-overridden adults
// proportionally to their preliminary shares, iterating because an
// adjustment can push an adult into their cap.
func (r *UnitResult) rebalance(coreTotal decimal.Decimal) {
	for r.DiffFromCore.Abs().GreaterThan(Tolerance) {
		if r.RebalanceIterations >= MaxRebalanceIterations {
			r.audit("rebalancing stopped: iteration limit %d reached with diff %s",
				MaxRebalanceIterations, r.DiffFromCore)
			r.Warnings = append(r.Warnings, Warning{
				Kind: WarnRebalanceNotConverged,
				Message: fmt.Sprintf("rebalancing did not converge after %d iterations; final total differs from core by %s",
					MaxRebalanceIterations, r.DiffFromCore),
			})
			return
		}

		eligiblePrelim := decimal.Zero
		eligible := 0
		for _, s := range r.Shares {
			if !s.Capped && !s.Overridden {
				eligiblePrelim = eligiblePrelim.Add(s.PrelimShare)
				eligible++
			}
		}
		if eligible == 0 || !eligiblePrelim.IsPositive() {
			r.audit("rebalancing stopped: no adults eligible to absorb diff %s", r.DiffFromCore)
			return
		}

		r.RebalanceIterations++
		ratio := r.DiffFromCore.Neg().Div(eligiblePrelim)
		r.audit("rebalance iteration %d: distributing %s across %d adults (ratio %s)",
			r.RebalanceIterations, r.DiffFromCore.Neg(), eligible, ratio.Round(6))

		for i := range r.Shares {
			s := &r.Shares[i]
			if s.Capped || s.Overridden {
				continue
			}
			adjusted := RoundCents(s.FinalShare.Add(s.PrelimShare.Mul(ratio)))
			if adjusted.GreaterThan(s.CapAmount) {
				// Clamp: the adjustment pushed this adult past their cap.
				adjusted = s.CapAmount
				s.Capped = true
				r.audit("  %s: adjustment clamped at cap %s", s.AdultID, s.CapAmount)
			} else {
				r.audit("  %s: %s -> %s", s.AdultID, s.FinalShare, adjusted)
			}
			s.FinalShare = adjusted
		}

		r.recomputeTotals(coreTotal)
	}
	if r.RebalanceIterations > 0 {
		r.audit("rebalancing converged after %d iteration(s): final %s, diff %s",
			r.RebalanceIterations, r.SumFinal, r.DiffFromCore)
	}
}

// addDeficitWarning reports a persistent shortfall after rebalancing: every
// adult is capped or overridden and the caps cannot cover the core total.
func (r *UnitResult) addDeficitWarning(coreTotal decimal.Decimal) {
	deficit := r.DiffFromCore.Neg()
	pct := RoundCents(deficit.Div(coreTotal).Mul(decimal.NewFromInt(100)))
	r.audit("deficit after caps: core underfunded by %s (%s%% of core total)", deficit, pct)
	r.Warnings = append(r.Warnings, Warning{
		Kind: WarnDeficitAfterCaps,
		Message: fmt.Sprintf("final shares cover %s of a %s core total: %s (%s%%) is unfunded because every adult is capped or overridden",
			r.SumFinal, coreTotal, deficit, pct),
		Options: []RemediationOption{
			{
				Action:      "increase_core",
				Description: fmt.Sprintf("increase the core total contribution by %s", deficit),
				Recommended: true,
			},
			{
				Action:      "raise_cap",
				Description: "temporarily raise capPercent so higher earners can absorb more",
			},
			{
				Action:      "manual_overrides",
				Description: "agree on manual overrides that distribute the shortfall explicitly",
			},
		},
	})
}

func (r *UnitResult) audit(format string, args ...any) {
	r.Audit = append(r.Audit, fmt.Sprintf(format, args...))
}
