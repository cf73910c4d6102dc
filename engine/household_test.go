package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/coreshare-engine/engine"
)

// =============================================================================
// ADULT COUNT INVARIANT
// =============================================================================

func TestValidateHousehold_AdultCountBounds(t *testing.T) {
	// GIVEN: households of every size from 0 to 6 adults
	// WHEN:  validating
	// THEN:  only 3, 4 and 5 adults pass

	for count := 0; count <= 6; count++ {
		t.Run(fmt.Sprintf("%d_adults", count), func(t *testing.T) {
			incomes := make([]string, count)
			for i := range incomes {
				incomes[i] = "2000"
			}
			h := threeAdultHousehold(incomes...)

			err := engine.ValidateHousehold(h)
			if count >= 3 && count <= 5 {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, engine.ErrValidation)
			}
		})
	}
}

// =============================================================================
// RANGE CONSTRAINTS
// =============================================================================

func TestValidateHousehold_RangeViolationsCollected(t *testing.T) {
	// GIVEN: a household violating several range constraints at once
	// WHEN:  validating
	// THEN:  every violation is reported in a single error

	h := threeAdultHousehold("1000", "2000", "3000")
	h.ChildUnitWeight = dec("0.05")  // below 0.1
	h.CapPercent = dec("0.7")        // above 0.6
	h.VisionAllocPercent = dec("0.6") // above 0.5
	h.EmergencyMonths = 0            // below 1
	h.CareRatePerHour = dec("-1")

	err := engine.ValidateHousehold(h)
	require.Error(t, err)

	var verrs *engine.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Violations, 5)

	fields := map[string]bool{}
	for _, v := range verrs.Violations {
		fields[v.Field] = true
	}
	for _, f := range []string{"childUnitWeight", "capPercent", "visionAllocPercent", "emergencyMonths", "careRatePerHour"} {
		assert.True(t, fields[f], "expected a violation for %s", f)
	}
}

func TestValidateHousehold_AdultRecordChecks(t *testing.T) {
	// GIVEN: a duplicate adult id and a negative income
	// WHEN:  validating
	// THEN:  both are reported

	h := threeAdultHousehold("1000", "2000", "3000")
	h.Adults[1].ID = "a1"
	h.Adults[2].NetIncome = dec("-50")

	err := engine.ValidateHousehold(h)
	require.Error(t, err)

	var verrs *engine.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Violations, 2)
}

func TestValidateHousehold_QuorumBoundedByAdultCount(t *testing.T) {
	// GIVEN: a decision quorum above the number of adults
	// WHEN:  validating
	// THEN:  the quorum is rejected; the engine otherwise ignores governance

	h := threeAdultHousehold("1000", "2000", "3000")
	h.Governance.DecisionQuorum = 4

	err := engine.ValidateHousehold(h)
	assert.ErrorIs(t, err, engine.ErrValidation)

	h.Governance.DecisionQuorum = 3
	assert.NoError(t, engine.ValidateHousehold(h))
}

// =============================================================================
// DERIVED AGGREGATES
// =============================================================================

func TestHousehold_DerivedAggregates(t *testing.T) {
	h := threeAdultHousehold("1000", "2000", "3000")
	h.ChildrenCount = 4
	h.ChildUnitWeight = dec("0.6")

	assert.True(t, h.TotalNetIncome().Equal(dec("6000")))
	assert.True(t, h.TotalChildUnits().Equal(dec("2.4")))
	assert.True(t, h.TotalUnits().Equal(dec("5.4")))

	a, ok := h.Adult("a2")
	require.True(t, ok)
	assert.Equal(t, "Bo", a.Name)
	_, ok = h.Adult("nobody")
	assert.False(t, ok)
}
