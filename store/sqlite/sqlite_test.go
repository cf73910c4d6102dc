package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/coreshare-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_HouseholdRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := sqlite.HouseholdRecord{ID: "hh-1", Name: "Cedar Street", ConfigJSON: `{"name":"Cedar Street"}`}
	require.NoError(t, store.SaveHousehold(ctx, rec))

	got, err := store.GetHousehold(ctx, "hh-1")
	require.NoError(t, err)
	assert.Equal(t, "Cedar Street", got.Name)
	assert.JSONEq(t, rec.ConfigJSON, got.ConfigJSON)

	// Upsert keeps the id and refreshes the payload.
	rec.ConfigJSON = `{"name":"Cedar Street Collective"}`
	require.NoError(t, store.SaveHousehold(ctx, rec))
	got, err = store.GetHousehold(ctx, "hh-1")
	require.NoError(t, err)
	assert.Contains(t, got.ConfigJSON, "Collective")

	_, err = store.GetHousehold(ctx, "missing")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestStore_PeriodLabelUniquePerHousehold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHousehold(ctx, sqlite.HouseholdRecord{ID: "hh-1", Name: "x", ConfigJSON: "{}"}))

	p1 := sqlite.PeriodRecord{ID: "per-1", HouseholdID: "hh-1", Label: "2026-01", StateJSON: "{}"}
	require.NoError(t, store.SavePeriod(ctx, p1))

	dup := sqlite.PeriodRecord{ID: "per-2", HouseholdID: "hh-1", Label: "2026-01", StateJSON: "{}"}
	assert.ErrorIs(t, store.SavePeriod(ctx, dup), sqlite.ErrDuplicateLabel)

	// Same label under another household is fine.
	require.NoError(t, store.SaveHousehold(ctx, sqlite.HouseholdRecord{ID: "hh-2", Name: "y", ConfigJSON: "{}"}))
	other := sqlite.PeriodRecord{ID: "per-3", HouseholdID: "hh-2", Label: "2026-01", StateJSON: "{}"}
	assert.NoError(t, store.SavePeriod(ctx, other))
}

func TestStore_LockedRowGuard(t *testing.T) {
	// GIVEN: a period row saved with the lock flag set
	// WHEN:  any later save targets the same row
	// THEN:  the store refuses the write

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHousehold(ctx, sqlite.HouseholdRecord{ID: "hh-1", Name: "x", ConfigJSON: "{}"}))

	rec := sqlite.PeriodRecord{ID: "per-1", HouseholdID: "hh-1", Label: "2026-01", StateJSON: "{}"}
	require.NoError(t, store.SavePeriod(ctx, rec))

	rec.IsLocked = true
	require.NoError(t, store.SavePeriod(ctx, rec), "the lock transition itself is a normal save")

	rec.StateJSON = `{"tampered":true}`
	assert.ErrorIs(t, store.SavePeriod(ctx, rec), sqlite.ErrRowLocked)

	got, err := store.GetPeriod(ctx, "per-1")
	require.NoError(t, err)
	assert.True(t, got.IsLocked)
	assert.NotContains(t, got.StateJSON, "tampered")
}

func TestStore_ListPeriodsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHousehold(ctx, sqlite.HouseholdRecord{ID: "hh-1", Name: "x", ConfigJSON: "{}"}))
	for _, label := range []string{"2026-01", "2026-03", "2026-02"} {
		require.NoError(t, store.SavePeriod(ctx, sqlite.PeriodRecord{
			ID: "per-" + label, HouseholdID: "hh-1", Label: label, StateJSON: "{}",
		}))
	}

	recs, err := store.ListPeriods(ctx, "hh-1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "2026-03", recs[0].Label)
	assert.Equal(t, "2026-01", recs[2].Label)
}

func TestStore_ReportRunHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordReportRun(ctx, sqlite.ReportRun{
			HouseholdID: "hh-1", PeriodID: "per-1", Trigger: "scheduler", ReportJSON: "{}",
		}))
	}

	runs, err := store.ListReportRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID, "newest first")
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHousehold(ctx, sqlite.HouseholdRecord{ID: "hh-1", Name: "x", ConfigJSON: "{}"}))
	require.NoError(t, store.Reset(ctx))

	recs, err := store.ListHouseholds(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
