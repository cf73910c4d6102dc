/*
Package sqlite provides SQLite-backed persistence for household and period
snapshots.

PURPOSE:
  The engine is deliberately storeless: it consumes validated snapshots and
  returns results. This package is the owning side of that contract - it
  stores whole household/period records as JSON blobs plus the columns the
  API needs to query by (household id, label, lock flag), and keeps a
  history of report runs produced by the scheduler.

KEY TABLES:
  households:   one row per household, config record as JSON
  periods:      one row per accounting month, state record as JSON,
                UNIQUE(household_id, label)
  report_runs:  append-only history of computed reports

LOCKED-ROW GUARD:
  The lock flag is enforced by the engine (Period.Lock and the mutation
  guards); the store adds a second line of defense: SavePeriod refuses to
  overwrite a row already marked locked. A caller bug cannot silently
  rewrite a closed month.

WAL MODE:
  The database is opened with WAL and foreign keys on, matching how every
  other service here runs SQLite.

USAGE:
  store, err := sqlite.New("./data/coreshare.db")  // or ":memory:"
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// HouseholdRecord is a stored household snapshot.
type HouseholdRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PeriodRecord is a stored period snapshot.
type PeriodRecord struct {
	ID          string
	HouseholdID string
	Label       string
	StateJSON   string
	IsLocked    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReportRun is one recorded calculation of a period's full report.
type ReportRun struct {
	ID          int64
	HouseholdID string
	PeriodID    string
	Trigger     string // "scheduler" or "api"
	ReportJSON  string
	CreatedAt   time.Time
}

var (
	// ErrNotFound is returned when a household or period does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrRowLocked is returned when a write would overwrite a period row
	// that has already been locked.
	ErrRowLocked = errors.New("period row is locked")

	// ErrDuplicateLabel is returned when a household already has a period
	// for the same month.
	ErrDuplicateLabel = errors.New("duplicate period label for household")
)

// =============================================================================
// STORE
// =============================================================================

// Store wraps the SQLite handle. The mutex serializes writers; SQLite in
// WAL mode handles concurrent readers.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS periods (
		id           TEXT PRIMARY KEY,
		household_id TEXT NOT NULL REFERENCES households(id),
		label        TEXT NOT NULL,
		state_json   TEXT NOT NULL,
		is_locked    INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL,
		UNIQUE(household_id, label)
	);
	CREATE INDEX IF NOT EXISTS idx_periods_household ON periods(household_id, label);

	CREATE TABLE IF NOT EXISTS report_runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		household_id TEXT NOT NULL,
		period_id    TEXT NOT NULL,
		trigger_src  TEXT NOT NULL,
		report_json  TEXT NOT NULL,
		created_at   TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_created ON report_runs(created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// =============================================================================
// HOUSEHOLDS
// =============================================================================

// SaveHousehold inserts or updates a household snapshot.
func (s *Store) SaveHousehold(ctx context.Context, rec HouseholdRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO households (id, name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.ConfigJSON, rec.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to save household %s: %w", rec.ID, err)
	}
	return nil
}

// GetHousehold fetches one household by id.
func (s *Store) GetHousehold(ctx context.Context, id string) (*HouseholdRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec HouseholdRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, config_json, created_at, updated_at
		FROM households WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Name, &rec.ConfigJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household %s: %w", id, err)
	}
	return &rec, nil
}

// ListHouseholds returns all households ordered by name.
func (s *Store) ListHouseholds(ctx context.Context) ([]HouseholdRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config_json, created_at, updated_at
		FROM households ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	var recs []HouseholdRecord
	for rows.Next() {
		var rec HouseholdRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.ConfigJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// PERIODS
// =============================================================================

// SavePeriod inserts or updates a period snapshot, refusing to overwrite a
// row that has already been locked.
func (s *Store) SavePeriod(ctx context.Context, rec PeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingLocked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_locked FROM periods WHERE id = ?`, rec.ID).Scan(&existingLocked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert path; ensure the label is free for this household.
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM periods WHERE household_id = ? AND label = ?`,
			rec.HouseholdID, rec.Label).Scan(&count); err != nil {
			return fmt.Errorf("failed to check period label: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateLabel, rec.HouseholdID, rec.Label)
		}
	case err != nil:
		return fmt.Errorf("failed to check period %s: %w", rec.ID, err)
	case existingLocked:
		return fmt.Errorf("%w: %s", ErrRowLocked, rec.ID)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO periods (id, household_id, label, state_json, is_locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state_json = excluded.state_json,
			is_locked = excluded.is_locked,
			updated_at = excluded.updated_at`,
		rec.ID, rec.HouseholdID, rec.Label, rec.StateJSON, rec.IsLocked, rec.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to save period %s: %w", rec.ID, err)
	}
	return nil
}

// GetPeriod fetches one period by id.
func (s *Store) GetPeriod(ctx context.Context, id string) (*PeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec PeriodRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, household_id, label, state_json, is_locked, created_at, updated_at
		FROM periods WHERE id = ?`, id).
		Scan(&rec.ID, &rec.HouseholdID, &rec.Label, &rec.StateJSON, &rec.IsLocked, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period %s: %w", id, err)
	}
	return &rec, nil
}

// ListPeriods returns a household's periods, newest label first.
func (s *Store) ListPeriods(ctx context.Context, householdID string) ([]PeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, label, state_json, is_locked, created_at, updated_at
		FROM periods WHERE household_id = ? ORDER BY label DESC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var recs []PeriodRecord
	for rows.Next() {
		var rec PeriodRecord
		if err := rows.Scan(&rec.ID, &rec.HouseholdID, &rec.Label, &rec.StateJSON, &rec.IsLocked, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// REPORT RUNS
// =============================================================================

// RecordReportRun appends one computed report to the history.
func (s *Store) RecordReportRun(ctx context.Context, run ReportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_runs (household_id, period_id, trigger_src, report_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.HouseholdID, run.PeriodID, run.Trigger, run.ReportJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record report run: %w", err)
	}
	return nil
}

// ListReportRuns returns the most recent report runs, newest first.
func (s *Store) ListReportRuns(ctx context.Context, limit int) ([]ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, period_id, trigger_src, report_json, created_at
		FROM report_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list report runs: %w", err)
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		var run ReportRun
		if err := rows.Scan(&run.ID, &run.HouseholdID, &run.PeriodID, &run.Trigger, &run.ReportJSON, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// RESET - dev/demo only
// =============================================================================

// Reset clears every table. Used by the demo scenario loaders.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"report_runs", "periods", "households"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
