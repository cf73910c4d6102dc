/*
Package engine implements the household core-share calculation engine.

PURPOSE:
  This package contains the three cooperating calculators that apportion a
  shared monthly budget ("Core") across the adults of a household:

    - Unit method:   weighted-unit apportionment with income caps and
                     iterative rebalancing (unitmethod.go)
    - Care ledger:   valuation of logged care work as a credit or a stipend
                     (careledger.go)
    - Vision plan:   emergency-fund target and sinking-fund scheduling
                     (vision.go)

  plus the two data entities they operate on: Household (household.go) and
  Period (period.go).

KEY CONCEPTS IN THIS FILE (types.go):
  - Cent rounding: every monetary amount is rounded to 2 decimal places at
    the point it is assigned, never deferred to display
  - Tolerance: totals are compared with a 0.01 tolerance
  - Warning: machine-readable calculation warnings with remediation options
  - Audit trail: ordered, human-auditable record of every computational step

DESIGN PRINCIPLES:
  1. Purity: calculators are pure functions of Household + Period snapshots.
     They never touch storage, transport, or clocks (Period timestamps are
     the one exception, owned by Period's own mutation methods).
  2. Precision: uses decimal.Decimal to avoid floating-point drift in money.
  3. Collected validation: validation reports every violation at once, not
     just the first.
  4. Warnings over failures: a valid input always produces a result; an
     undesirable outcome (deficit, non-convergence) rides along as a Warning.

SEE ALSO:
  - household.go, period.go: the data entities and their validation
  - unitmethod.go: the central apportionment algorithm
  - careledger.go, vision.go: the two satellite calculators
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PRECISION CONSTANTS
// =============================================================================

// Tolerance is the absolute amount within which two monetary totals are
// considered equal. Shared by validation (child-unit sums) and the
// rebalancing convergence check.
var Tolerance = decimal.RequireFromString("0.01")

// MaxRebalanceIterations bounds the rebalancing loop. Reaching the bound
// without convergence is recorded in the audit trail, not treated as fatal.
const MaxRebalanceIterations = 10

// RoundCents rounds a monetary amount to 2 decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// =============================================================================
// WARNINGS - Valid input, undesirable outcome
// =============================================================================

// WarningKind is a machine-readable identifier for a calculation warning.
type WarningKind string

const (
	// WarnDeficitAfterCaps: caps and overrides together cannot fund the
	// core total, and rebalancing had nobody left to absorb the shortfall.
	WarnDeficitAfterCaps WarningKind = "deficit_after_caps"

	// WarnRebalanceNotConverged: the rebalancing loop hit its iteration
	// bound with the total still outside tolerance.
	WarnRebalanceNotConverged WarningKind = "rebalance_not_converged"

	// WarnVisionShortfall: configured sinking-fund transfers exceed the
	// monthly vision allocation.
	WarnVisionShortfall WarningKind = "vision_allocation_shortfall"
)

// RemediationOption is one way a caller could resolve a warning.
// At most one option per warning is marked Recommended.
type RemediationOption struct {
	Action      string // machine-readable, e.g. "increase_core"
	Description string
	Recommended bool
}

// Warning is attached to a calculation result when valid input produces an
// undesirable but non-erroneous outcome. The caller decides whether to
// surface, block on, or ignore it.
type Warning struct {
	Kind    WarningKind
	Message string
	Options []RemediationOption
}

// =============================================================================
// CARE MODEL
// =============================================================================

// CareModel selects how logged care work is compensated. The two models are
// mutually exclusive per household.
type CareModel string

const (
	// CareModelCredit: care value reduces that adult's own share next period.
	CareModelCredit CareModel = "credit"

	// CareModelStipend: care value is paid out of the shared pool, growing
	// next period's core total.
	CareModelStipend CareModel = "stipend"
)

// Valid reports whether the model is one of the recognized values.
func (m CareModel) Valid() bool {
	return m == CareModelCredit || m == CareModelStipend
}
