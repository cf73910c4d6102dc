/*
vision.go - Emergency-fund target and sinking-fund planning

PURPOSE:
  Plans the household's long-term savings: an emergency-fund target sized
  in months of core spend, a monthly "vision" allocation carved out of
  household income, and a prioritized schedule of sinking-fund transfers.

  Operates on the Household only. It deliberately does not consult any
  period's actual core spend: the monthly core baseline is an explicit
  approximation derived from household size, because no authoritative
  spend history is threaded through. Its output is guidance for a
  governance discussion, not a binding ledger entry.

FUND PRIORITY:
  Priority is a keyword classification of the fund's name, isolated in
  classifyFundPriority so the matching rule can be revisited without
  touching the allocation logic:

    1  name contains "emergency", "medical", or "deductible"
    2  name contains "vehicle", "home", or "maintenance"
    3  everything else

SEE ALSO:
  - household.go: source of incomes, fund targets, and vision parameters
*/
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// estimatedCorePerUnit is the per-unit monthly core baseline used when no
// spend history is available. A deliberately coarse approximation.
var estimatedCorePerUnit = decimal.NewFromInt(1000)

var (
	twelve       = decimal.NewFromInt(12)
	acceleration = 24 // monthsToTarget beyond this triggers a recommendation
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// FundPlan is the monthly schedule for one sinking fund.
type FundPlan struct {
	Name           string
	Account        string
	AnnualTarget   decimal.Decimal
	CurrentBalance decimal.Decimal
	MonthlyTransfer decimal.Decimal
	Priority       int

	// MonthsToTarget is 0 when the target is already met and -1 when the
	// monthly transfer is not positive, making the target unreachable.
	MonthsToTarget int
}

// VisionResult is the full savings plan for a household.
type VisionResult struct {
	EstimatedMonthlyCore   decimal.Decimal
	EmergencyTarget        decimal.Decimal
	MonthlyVisionAllocation decimal.Decimal

	Funds []FundPlan // sorted ascending by priority, stable within a tier

	TotalMonthlyTransfers decimal.Decimal

	Warnings        []Warning
	Notes           []string
	Recommendations []string
}

// =============================================================================
// PRIORITY CLASSIFICATION
// =============================================================================

var priorityKeywords = []struct {
	priority int
	words    []string
}{
	{1, []string{"emergency", "medical", "deductible"}},
	{2, []string{"vehicle", "home", "maintenance"}},
}

// classifyFundPriority maps a fund name to its three-tier priority. The
// keyword heuristic is fragile by nature; keep every rule change inside
// this function.
func classifyFundPriority(name string) int {
	lower := strings.ToLower(name)
	for _, tier := range priorityKeywords {
		for _, w := range tier.words {
			if strings.Contains(lower, w) {
				return tier.priority
			}
		}
	}
	return 3
}

// =============================================================================
// PLANNING
// =============================================================================

// PlanVisionAndBuffers computes the emergency target and the sinking-fund
// schedule. The household is assumed validated; the plan itself always
// succeeds, with shortfalls reported as warnings.
func PlanVisionAndBuffers(h Household) *VisionResult {
	res := &VisionResult{}

	res.EstimatedMonthlyCore = RoundCents(estimatedCorePerUnit.Mul(h.TotalUnits()))
	res.EmergencyTarget = RoundCents(res.EstimatedMonthlyCore.Mul(decimal.NewFromInt(int64(h.EmergencyMonths))))
	res.MonthlyVisionAllocation = RoundCents(h.TotalNetIncome().Mul(h.VisionAllocPercent).Div(twelve))

	total := decimal.Zero
	res.Funds = make([]FundPlan, len(h.SinkingFunds))
	for i, f := range h.SinkingFunds {
		monthly := RoundCents(f.AnnualTarget.Div(twelve))
		plan := FundPlan{
			Name:            f.Name,
			Account:         f.Account,
			AnnualTarget:    f.AnnualTarget,
			CurrentBalance:  f.CurrentBalance,
			MonthlyTransfer: monthly,
			Priority:        classifyFundPriority(f.Name),
		}

		remaining := f.AnnualTarget.Sub(f.CurrentBalance)
		switch {
		case !remaining.IsPositive():
			plan.MonthsToTarget = 0
		case !monthly.IsPositive():
			plan.MonthsToTarget = -1
		default:
			plan.MonthsToTarget = int(remaining.Div(monthly).Ceil().IntPart())
		}

		total = total.Add(monthly)
		res.Funds[i] = plan
	}
	res.TotalMonthlyTransfers = RoundCents(total)

	sort.SliceStable(res.Funds, func(i, j int) bool {
		return res.Funds[i].Priority < res.Funds[j].Priority
	})

	if res.TotalMonthlyTransfers.GreaterThan(res.MonthlyVisionAllocation) {
		shortfall := RoundCents(res.TotalMonthlyTransfers.Sub(res.MonthlyVisionAllocation))
		res.Warnings = append(res.Warnings, Warning{
			Kind: WarnVisionShortfall,
			Message: fmt.Sprintf("monthly fund transfers %s exceed the vision allocation %s by %s",
				res.TotalMonthlyTransfers, res.MonthlyVisionAllocation, shortfall),
		})
	} else {
		res.Notes = append(res.Notes, fmt.Sprintf("vision budget has %s unallocated after fund transfers",
			RoundCents(res.MonthlyVisionAllocation.Sub(res.TotalMonthlyTransfers))))
	}

	res.recommend(h)
	return res
}

// recommend generates the heuristic guidance list.
func (r *VisionResult) recommend(h Household) {
	if r.EmergencyTarget.IsPositive() {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf(
			"build the emergency fund toward %s (%d months of estimated core spend)",
			r.EmergencyTarget, h.EmergencyMonths))
	}
	for _, f := range r.Funds {
		if f.MonthsToTarget > acceleration {
			r.Recommendations = append(r.Recommendations, fmt.Sprintf(
				"fund %q needs %d months at %s/month; consider accelerating contributions",
				f.Name, f.MonthsToTarget, f.MonthlyTransfer))
		}
	}
	if r.TotalMonthlyTransfers.GreaterThan(r.MonthlyVisionAllocation) {
		r.Recommendations = append(r.Recommendations,
			"raise visionAllocPercent or lower fund targets; planned transfers exceed the monthly vision allocation")
	}
}
