package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/coreshare-engine/engine"
)

func fund(name, annualTarget, currentBalance string) engine.SinkingFund {
	return engine.SinkingFund{
		Name:           name,
		AnnualTarget:   dec(annualTarget),
		CurrentBalance: dec(currentBalance),
		Account:        "joint-savings",
	}
}

// =============================================================================
// PRIORITY ORDERING
// =============================================================================

func TestVision_FundPriority_MedicalBeforeHomeBeforeVacation(t *testing.T) {
	// GIVEN: funds configured in reverse priority order
	// WHEN:  planning
	// THEN:  "Medical Deductible" sorts before "Home Repairs", which sorts
	//        before "Vacation"

	h := threeAdultHousehold("3000", "3000", "3000")
	h.SinkingFunds = []engine.SinkingFund{
		fund("Vacation", "2400", "0"),
		fund("Home Repairs", "1200", "0"),
		fund("Medical Deductible", "3000", "0"),
	}

	res := engine.PlanVisionAndBuffers(h)

	require.Len(t, res.Funds, 3)
	assert.Equal(t, "Medical Deductible", res.Funds[0].Name)
	assert.Equal(t, 1, res.Funds[0].Priority)
	assert.Equal(t, "Home Repairs", res.Funds[1].Name)
	assert.Equal(t, 2, res.Funds[1].Priority)
	assert.Equal(t, "Vacation", res.Funds[2].Name)
	assert.Equal(t, 3, res.Funds[2].Priority)
}

func TestVision_FundPriority_StableWithinTier(t *testing.T) {
	// GIVEN: two tier-3 funds
	// WHEN:  planning
	// THEN:  their configured order is preserved

	h := threeAdultHousehold("3000", "3000", "3000")
	h.SinkingFunds = []engine.SinkingFund{
		fund("Sabbatical", "1200", "0"),
		fund("Instruments", "600", "0"),
	}

	res := engine.PlanVisionAndBuffers(h)
	require.Len(t, res.Funds, 2)
	assert.Equal(t, "Sabbatical", res.Funds[0].Name)
	assert.Equal(t, "Instruments", res.Funds[1].Name)
}

// =============================================================================
// TARGETS AND TRANSFERS
// =============================================================================

func TestVision_EmergencyTargetScalesWithHouseholdSize(t *testing.T) {
	// GIVEN: 3 adults, 2 children at weight 0.5 (4 total units), a 3-month
	//        emergency buffer
	// WHEN:  planning
	// THEN:  the emergency target is the estimated monthly core x 3

	h := threeAdultHousehold("3000", "3000", "3000")
	h.ChildrenCount = 2
	h.ChildUnitWeight = dec("0.5")
	h.EmergencyMonths = 3

	res := engine.PlanVisionAndBuffers(h)

	assert.True(t, res.EstimatedMonthlyCore.Equal(dec("4000")),
		"4 units at the per-unit baseline, got %s", res.EstimatedMonthlyCore)
	assert.True(t, res.EmergencyTarget.Equal(dec("12000")), "got %s", res.EmergencyTarget)
}

func TestVision_MonthlyAllocationAndTransferMath(t *testing.T) {
	// GIVEN: 9000 total income at 10% vision allocation, one 1000/year fund
	// WHEN:  planning
	// THEN:  allocation is 9000*0.1/12 = 75, the transfer is 83.33, and the
	//        fund needs ceil(1000/83.33) = 13 months

	h := threeAdultHousehold("3000", "3000", "3000")
	h.VisionAllocPercent = dec("0.1")
	h.SinkingFunds = []engine.SinkingFund{fund("Vacation", "1000", "0")}

	res := engine.PlanVisionAndBuffers(h)

	assert.True(t, res.MonthlyVisionAllocation.Equal(dec("75")), "got %s", res.MonthlyVisionAllocation)
	require.Len(t, res.Funds, 1)
	assert.True(t, res.Funds[0].MonthlyTransfer.Equal(dec("83.33")), "got %s", res.Funds[0].MonthlyTransfer)
	assert.Equal(t, 13, res.Funds[0].MonthsToTarget)
}

func TestVision_MonthsToTarget_EdgeCases(t *testing.T) {
	// GIVEN: a fund already at target and a fund whose transfer rounds to zero
	// WHEN:  planning
	// THEN:  the met fund reports 0 months and the starved fund reports
	//        unreachable

	h := threeAdultHousehold("3000", "3000", "3000")
	h.SinkingFunds = []engine.SinkingFund{
		fund("Vacation", "1200", "1500"),
		fund("Stamps", "0.04", "0"), // 0.04/12 rounds to 0.00/month
	}

	res := engine.PlanVisionAndBuffers(h)

	byName := map[string]engine.FundPlan{}
	for _, f := range res.Funds {
		byName[f.Name] = f
	}
	assert.Equal(t, 0, byName["Vacation"].MonthsToTarget)
	assert.Equal(t, -1, byName["Stamps"].MonthsToTarget)
}

// =============================================================================
// WARNINGS AND RECOMMENDATIONS
// =============================================================================

func TestVision_TransfersExceedAllocation_Warns(t *testing.T) {
	// GIVEN: fund transfers beyond the monthly vision budget
	// WHEN:  planning
	// THEN:  a shortfall warning and a raise-or-lower recommendation appear

	h := threeAdultHousehold("1000", "1000", "1000") // allocation 3000*0.1/12 = 25
	h.SinkingFunds = []engine.SinkingFund{fund("Vehicle Repairs", "2400", "0")} // 200/month

	res := engine.PlanVisionAndBuffers(h)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, engine.WarnVisionShortfall, res.Warnings[0].Kind)
	assert.Contains(t, res.Warnings[0].Message, "175") // 200 - 25

	found := false
	for _, r := range res.Recommendations {
		if r == "raise visionAllocPercent or lower fund targets; planned transfers exceed the monthly vision allocation" {
			found = true
		}
	}
	assert.True(t, found, "over-allocation recommendation expected, got %v", res.Recommendations)
}

func TestVision_TransfersWithinAllocation_Notes(t *testing.T) {
	// GIVEN: a comfortable vision budget
	// WHEN:  planning
	// THEN:  the remaining unallocated amount is reported as a note, not a
	//        warning

	h := threeAdultHousehold("3000", "3000", "3000") // allocation 75
	h.SinkingFunds = []engine.SinkingFund{fund("Vacation", "600", "0")} // 50/month

	res := engine.PlanVisionAndBuffers(h)

	assert.Empty(t, res.Warnings)
	require.NotEmpty(t, res.Notes)
	assert.Contains(t, res.Notes[0], "25")
}

func TestVision_Recommendations_EmergencyAndSlowFunds(t *testing.T) {
	// GIVEN: a positive emergency target and a fund needing over 24 months
	// WHEN:  planning
	// THEN:  both the emergency-build and the acceleration recommendations
	//        are present

	// With a non-negative balance, months-to-target tops out around 13, so
	// the long-horizon case needs an overdrawn fund.
	h := threeAdultHousehold("3000", "3000", "3000")
	h.SinkingFunds = []engine.SinkingFund{
		fund("Land", "300", "-400"), // transfer 25/month, remaining 700 -> 28 months
	}

	res := engine.PlanVisionAndBuffers(h)

	require.Len(t, res.Funds, 1)
	assert.Equal(t, 28, res.Funds[0].MonthsToTarget)

	var emergency, accelerate bool
	for _, r := range res.Recommendations {
		if strings.HasPrefix(r, "build") {
			emergency = true
		}
		if strings.HasPrefix(r, "fund") {
			accelerate = true
		}
	}
	assert.True(t, emergency, "emergency recommendation expected, got %v", res.Recommendations)
	assert.True(t, accelerate, "acceleration recommendation expected, got %v", res.Recommendations)
}
