/*
careledger.go - Valuation of logged care work

PURPOSE:
  Converts the period's raw care-work log into money and projects its
  effect on the NEXT period, under one of two mutually exclusive models:

  credit:  each adult's care value becomes a negative adjustment against
           that same adult's share next period. The current period's core
           total and the other adults' shares are untouched.

  stipend: each adult with positive care value is recorded as a payee, and
           the sum of all care values grows next period's core total, since
           stipends are paid out of the shared pool.

NEXT-PERIOD PREVIEW:
  The preview is a forward-looking estimate, not an authoritative
  calculation: estimated shares are the current final shares adjusted by
  credits (floored at zero; a share never projects negative). A deviation
  between the estimated shares and the estimated core total beyond
  Tolerance is recorded as a note, never a failure.

SEE ALSO:
  - unitmethod.go: produces the final shares this calculator projects from
  - period.go: owns the care-entry log and its sanity bounds
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// CareAdultResult is one adult's row in the care ledger result.
type CareAdultResult struct {
	AdultID   string
	Name      string
	Hours     decimal.Decimal
	CareValue decimal.Decimal // hours x careRatePerHour, in cents

	// NextMonthCoreCredit is negative or zero; credit model only.
	NextMonthCoreCredit decimal.Decimal

	// StipendAmount is the payout owed this adult; stipend model only.
	StipendAmount decimal.Decimal

	// EstimatedNextShare previews the adult's share next period, floored
	// at zero.
	EstimatedNextShare decimal.Decimal
}

// CareResult is the full outcome of applying the care ledger.
type CareResult struct {
	Model CareModel

	Adults []CareAdultResult // household member order

	TotalCareValue decimal.Decimal

	// NextMonthCoreIncrease grows next period's core total; stipend model
	// only, zero under the credit model.
	NextMonthCoreIncrease decimal.Decimal

	// EstimatedCoreTotal previews next period's core total.
	EstimatedCoreTotal decimal.Decimal

	Notes []string
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateCareLedger checks the care configuration and every care entry,
// reporting all violations together. Kept separate from ApplyCareLedger so
// a caller can validate a log mid-month without running a projection.
func ValidateCareLedger(h Household, p Period) error {
	errs := &ValidationErrors{}

	if !h.CareModel.Valid() {
		errs.addf("careModel", "must be %q or %q, got %q", CareModelCredit, CareModelStipend, h.CareModel)
	}
	if !h.CareRatePerHour.IsPositive() {
		errs.addf("careRatePerHour", "must be positive, got %s", h.CareRatePerHour)
	}

	for i, e := range p.CareEntries {
		field := fmt.Sprintf("careEntries[%d]", i)
		if e.AdultID == "" {
			errs.addf(field, "adult id must not be empty")
		} else if _, ok := h.Adult(e.AdultID); !ok {
			errs.addf(field, "unknown adult %q", e.AdultID)
		}
		if e.Date.IsZero() {
			errs.addf(field, "date must be set")
		}
		if e.Task == "" {
			errs.addf(field, "task must not be empty")
		}
		if !e.Hours.IsPositive() || e.Hours.GreaterThan(maxEntryHours) {
			errs.addf(field, "hours must be in (0, 24], got %s", e.Hours)
		}
	}

	return errs.orNil()
}

// =============================================================================
// CALCULATION
// =============================================================================

// ApplyCareLedger values the period's care log and projects next period's
// shares from the unit method result. Pure function of its three inputs.
func ApplyCareLedger(h Household, p Period, unit *UnitResult) (*CareResult, error) {
	if err := ValidateCareLedger(h, p); err != nil {
		return nil, err
	}

	hoursByAdult := make(map[string]decimal.Decimal, len(h.Adults))
	for _, e := range p.CareEntries {
		hoursByAdult[e.AdultID] = hoursByAdult[e.AdultID].Add(e.Hours)
	}

	finalByAdult := make(map[string]decimal.Decimal, len(unit.Shares))
	for _, s := range unit.Shares {
		finalByAdult[s.AdultID] = s.FinalShare
	}

	res := &CareResult{Model: h.CareModel}
	res.Adults = make([]CareAdultResult, len(h.Adults))

	total := decimal.Zero
	for i, a := range h.Adults {
		hours := hoursByAdult[a.ID]
		value := RoundCents(hours.Mul(h.CareRatePerHour))
		total = total.Add(value)

		row := CareAdultResult{
			AdultID:   a.ID,
			Name:      a.Name,
			Hours:     hours,
			CareValue: value,
		}

		switch h.CareModel {
		case CareModelCredit:
			row.NextMonthCoreCredit = value.Neg()
		case CareModelStipend:
			if value.IsPositive() {
				row.StipendAmount = value
			}
		}

		res.Adults[i] = row
	}
	res.TotalCareValue = RoundCents(total)

	// Next-period preview.
	res.EstimatedCoreTotal = p.CoreTotal
	if h.CareModel == CareModelStipend {
		res.NextMonthCoreIncrease = res.TotalCareValue
		res.EstimatedCoreTotal = RoundCents(p.CoreTotal.Add(res.NextMonthCoreIncrease))
	}

	sumEstimated := decimal.Zero
	for i := range res.Adults {
		row := &res.Adults[i]
		est := finalByAdult[row.AdultID]
		if h.CareModel == CareModelCredit {
			est = est.Add(row.NextMonthCoreCredit)
			if est.IsNegative() {
				est = decimal.Zero
			}
		}
		row.EstimatedNextShare = RoundCents(est)
		sumEstimated = sumEstimated.Add(row.EstimatedNextShare)
	}

	if dev := RoundCents(sumEstimated.Sub(res.EstimatedCoreTotal)); dev.Abs().GreaterThan(Tolerance) {
		res.Notes = append(res.Notes, fmt.Sprintf(
			"estimated shares total %s deviates from estimated core total %s by %s; the preview is a forward-looking estimate, not an authoritative calculation",
			RoundCents(sumEstimated), res.EstimatedCoreTotal, dev))
	}

	return res, nil
}
