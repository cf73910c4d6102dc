/*
period.go - One month's transactional state

PURPOSE:
  Period holds everything that changes month to month: the core total to
  apportion, the child-unit assignment, manual overrides, the raw care-work
  log, governance events, and the lock flag. A Period is owned by exactly
  one Household (associated by external key, never embedded).

LIFECYCLE:
  create -> populate incrementally while unlocked -> calculate against
  (read-only, idempotent, repeatable) -> Lock() at month close. Locking is
  terminal; the next month gets a fresh Period.

LOCK SEMANTICS:
  IsLocked is a cooperative single-writer guard, not a concurrency
  primitive. Every mutating method checks it first and fails with
  ErrPeriodLocked - a hard error raised immediately, because mutating a
  locked period is a caller fault, not bad user input. If concurrent
  writers are possible, the surrounding persistence layer must serialize
  them.

SEE ALSO:
  - household.go: the configuration a Period is validated against
  - unitmethod.go, careledger.go: the calculators that read a Period
*/
package engine

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITY TYPES
// =============================================================================

// CareEntry is one raw logged care-work record. Append-only while unlocked.
type CareEntry struct {
	ID      string
	AdultID string
	Date    time.Time
	Task    string
	Hours   decimal.Decimal // (0, 24] per entry
}

// GovernanceEvent is a decision or amendment logged against a period. The
// voting machinery itself lives outside the engine; Period only owns the
// append-only log and its lock discipline.
type GovernanceEvent struct {
	ID          string
	Description string
	Date        time.Time
}

// Period is one accounting cycle of a household.
type Period struct {
	ID          string
	HouseholdID string
	Label       string // "YYYY-MM", unique within the household's timeline

	CoreTotal decimal.Decimal // the month's shared budget, positive

	// AssignedChildUnits maps adult id -> child units carried by that adult
	// this month. Every adult must have an entry and the values must sum to
	// the household's total child units within Tolerance. Negative per-adult
	// values are allowed; only the sum is constrained.
	AssignedChildUnits map[string]decimal.Decimal

	// Overrides maps adult id -> fixed final share. An override bypasses
	// both the cap and rebalancing for that adult.
	Overrides map[string]decimal.Decimal

	CareEntries []CareEntry
	Decisions   []GovernanceEvent
	Amendments  []GovernanceEvent

	IsLocked bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPeriod creates an unlocked period for the given household and month.
func NewPeriod(id, householdID, label string, coreTotal decimal.Decimal) *Period {
	now := time.Now().UTC()
	return &Period{
		ID:                 id,
		HouseholdID:        householdID,
		Label:              label,
		CoreTotal:          coreTotal,
		AssignedChildUnits: make(map[string]decimal.Decimal),
		Overrides:          make(map[string]decimal.Decimal),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// =============================================================================
// MUTATIONS - all gated on the lock flag
// =============================================================================

// touch refreshes UpdatedAt after a successful mutation.
func (p *Period) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func (p *Period) guardUnlocked() error {
	if p.IsLocked {
		return ErrPeriodLocked
	}
	return nil
}

var maxEntryHours = decimal.NewFromInt(24)

// AddCareEntry appends a care-work record. The entry is sanity-checked here
// so a bad log line is rejected at the door rather than at month close.
func (p *Period) AddCareEntry(e CareEntry) error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	errs := &ValidationErrors{}
	if e.AdultID == "" {
		errs.addf("careEntry.adultId", "must not be empty")
	}
	if e.Task == "" {
		errs.addf("careEntry.task", "must not be empty")
	}
	if e.Date.IsZero() {
		errs.addf("careEntry.date", "must be set")
	}
	if !e.Hours.IsPositive() || e.Hours.GreaterThan(maxEntryHours) {
		errs.addf("careEntry.hours", "must be in (0, 24], got %s", e.Hours)
	}
	if err := errs.orNil(); err != nil {
		return err
	}
	p.CareEntries = append(p.CareEntries, e)
	p.touch()
	return nil
}

// SetOverride fixes an adult's final share, exempting them from the cap and
// from rebalancing.
func (p *Period) SetOverride(adultID string, amount decimal.Decimal) error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	if p.Overrides == nil {
		p.Overrides = make(map[string]decimal.Decimal)
	}
	p.Overrides[adultID] = RoundCents(amount)
	p.touch()
	return nil
}

// ClearOverride removes a manual override, returning the adult to the
// cap/rebalance algorithm.
func (p *Period) ClearOverride(adultID string) error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	delete(p.Overrides, adultID)
	p.touch()
	return nil
}

// SetAssignedChildUnits replaces the month's child-unit assignment.
func (p *Period) SetAssignedChildUnits(units map[string]decimal.Decimal) error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	assigned := make(map[string]decimal.Decimal, len(units))
	for id, u := range units {
		assigned[id] = u
	}
	p.AssignedChildUnits = assigned
	p.touch()
	return nil
}

// RecordDecision appends a governance decision to the period's log.
func (p *Period) RecordDecision(e GovernanceEvent) error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	p.Decisions = append(p.Decisions, e)
	p.touch()
	return nil
}

// RecordAmendment appends a governance amendment to the period's log.
func (p *Period) RecordAmendment(e GovernanceEvent) error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	p.Amendments = append(p.Amendments, e)
	p.touch()
	return nil
}

// Lock closes the period. Terminal: every later mutation, including a
// second Lock, fails with ErrPeriodLocked.
func (p *Period) Lock() error {
	if err := p.guardUnlocked(); err != nil {
		return err
	}
	p.IsLocked = true
	p.touch()
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var labelPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidatePeriod checks a period against its household and reports every
// violation together. Calculators assume a validated pair.
func ValidatePeriod(p Period, h Household) error {
	errs := &ValidationErrors{}

	if !labelPattern.MatchString(p.Label) {
		errs.addf("label", "must match YYYY-MM, got %q", p.Label)
	}
	if p.HouseholdID != "" && h.ID != "" && p.HouseholdID != h.ID {
		errs.addf("householdId", "period belongs to household %q, not %q", p.HouseholdID, h.ID)
	}
	if !p.CoreTotal.IsPositive() {
		errs.addf("coreTotal", "must be positive, got %s", p.CoreTotal)
	}

	// Child-unit assignment: full coverage of the member list, no strays,
	// and the sum must land on the household total within tolerance.
	sum := decimal.Zero
	for _, a := range h.Adults {
		u, ok := p.AssignedChildUnits[a.ID]
		if !ok {
			errs.addf("assignedChildUnits", "missing entry for adult %q", a.ID)
			continue
		}
		sum = sum.Add(u)
	}
	for id := range p.AssignedChildUnits {
		if _, ok := h.Adult(id); !ok {
			errs.addf("assignedChildUnits", "unknown adult %q", id)
		}
	}
	want := h.TotalChildUnits()
	if sum.Sub(want).Abs().GreaterThan(Tolerance) {
		errs.addf("assignedChildUnits", "sum %s does not match total child units %s (tolerance %s)", sum, want, Tolerance)
	}

	for id := range p.Overrides {
		if _, ok := h.Adult(id); !ok {
			errs.addf("overrides", "unknown adult %q", id)
		}
	}

	for i, e := range p.CareEntries {
		field := "careEntries[" + e.ID + "]"
		if e.AdultID == "" {
			errs.addf(field, "entry at index %d has no adult id", i)
		} else if _, ok := h.Adult(e.AdultID); !ok {
			errs.addf(field, "unknown adult %q", e.AdultID)
		}
		if e.Task == "" {
			errs.addf(field, "task must not be empty")
		}
		if e.Date.IsZero() {
			errs.addf(field, "date must be set")
		}
		if !e.Hours.IsPositive() || e.Hours.GreaterThan(maxEntryHours) {
			errs.addf(field, "hours must be in (0, 24], got %s", e.Hours)
		}
	}

	return errs.orNil()
}
