/*
scheduler.go - Automated report snapshot scheduler

PURPOSE:
  Periodically computes the full report (unit method, care ledger, vision
  plan) for every household's newest period and records the result in the
  report_runs table for audit and UI display.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Read-only with respect to households and periods: snapshots never
    mutate a period, so locked months are reported like any other
  - Records every run with the "scheduler" trigger so manual report
    fetches stay distinguishable in the history

CONFIGURATION:
  - CheckInterval: How often to snapshot (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReportScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GetReport endpoint (on-demand reports)
  - store/sqlite: report_runs persistence
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/warp/coreshare-engine/factory"
	"github.com/warp/coreshare-engine/store/sqlite"
)

// ReportScheduler periodically snapshots household reports.
type ReportScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReportScheduler creates a new scheduler.
func NewReportScheduler(store *sqlite.Store, handler *Handler) *ReportScheduler {
	return &ReportScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReportScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReportScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReportScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.snapshotAll()

	for {
		select {
		case <-rs.ticker.C:
			rs.snapshotAll()
		case <-rs.stop:
			return
		}
	}
}

// snapshotAll computes and records a report for each household's newest
// period. Households with no periods yet are skipped.
func (rs *ReportScheduler) snapshotAll() {
	ctx := context.Background()

	households, err := rs.Store.ListHouseholds(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing households: %v", err)
		return
	}

	recorded := 0
	for _, rec := range households {
		periods, err := rs.Store.ListPeriods(ctx, rec.ID)
		if err != nil {
			log.Printf("[Scheduler] Error listing periods for %s: %v", rec.ID, err)
			continue
		}
		if len(periods) == 0 {
			continue
		}

		// ListPeriods returns newest label first.
		if err := rs.snapshotPeriod(ctx, rec.ID, periods[0].ID); err != nil {
			log.Printf("[Scheduler] Error snapshotting %s/%s: %v", rec.ID, periods[0].ID, err)
			continue
		}
		recorded++
	}

	if recorded > 0 {
		log.Printf("[Scheduler] Recorded %d report snapshot(s)", recorded)
	}
}

func (rs *ReportScheduler) snapshotPeriod(ctx context.Context, householdID, periodID string) error {
	hrec, err := rs.Store.GetHousehold(ctx, householdID)
	if err != nil {
		return err
	}
	prec, err := rs.Store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}

	household, err := factory.ParseHousehold([]byte(hrec.ConfigJSON))
	if err != nil {
		return err
	}
	p, err := factory.ParsePeriod([]byte(prec.StateJSON), *household)
	if err != nil {
		return err
	}

	report, err := buildReport(*household, *p)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}

	return rs.Store.RecordReportRun(ctx, sqlite.ReportRun{
		HouseholdID: householdID,
		PeriodID:    periodID,
		Trigger:     "scheduler",
		ReportJSON:  string(reportJSON),
	})
}

// RunNow triggers an immediate snapshot pass (for testing/admin).
func (rs *ReportScheduler) RunNow() {
	rs.snapshotAll()
}
