/*
handlers.go - HTTP API handlers for the core-share engine

PURPOSE:
  Exposes the engine via REST. Handlers own the orchestration the engine
  deliberately does not: load a household snapshot, load or mutate a
  period snapshot, run the calculators, persist the next snapshot.

ENDPOINTS:
  Households:
    POST   /api/households                 Create (validated)
    GET    /api/households                 List
    GET    /api/households/{id}            Get
    GET    /api/households/{id}/vision     Vision and buffers plan
    POST   /api/households/{id}/periods    Open a new month
    GET    /api/households/{id}/periods    List months

  Periods:
    GET    /api/periods/{id}               Get
    POST   /api/periods/{id}/care-entries  Append care entry
    POST   /api/periods/{id}/overrides     Set/clear share override
    POST   /api/periods/{id}/decisions     Record decision
    POST   /api/periods/{id}/amendments    Record amendment
    POST   /api/periods/{id}/lock          Terminal month close
    GET    /api/periods/{id}/report        Full report (all calculators)

  Reports / demo:
    GET    /api/reports/runs               Scheduler report history
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario

ERROR HANDLING:
  - 400: collected validation violations, malformed bodies
  - 404: unknown household/period
  - 409: duplicate period label
  - 423: mutation of a locked period
  - 500: storage failures

SECURITY NOTE:
  No authentication or authorization; who may invoke the engine is an
  external concern. Do not expose this surface publicly as-is.

SEE ALSO:
  - dto.go: request/response shapes
  - scenarios.go: demo data
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/coreshare-engine/engine"
	"github.com/warp/coreshare-engine/factory"
	"github.com/warp/coreshare-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// HOUSEHOLD HANDLERS
// =============================================================================

// CreateHousehold validates and persists a household configuration.
func (h *Handler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	var rec factory.HouseholdJSON
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid household payload", err)
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	household := factory.HouseholdFromRecord(rec)
	if err := engine.ValidateHousehold(household); err != nil {
		writeEngineError(w, "Household failed validation", err)
		return
	}

	configJSON, err := json.Marshal(factory.HouseholdToRecord(household))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode household", err)
		return
	}
	if err := h.Store.SaveHousehold(r.Context(), sqlite.HouseholdRecord{
		ID:         household.ID,
		Name:       household.Name,
		ConfigJSON: string(configJSON),
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save household", err)
		return
	}

	writeJSON(w, http.StatusCreated, HouseholdDTO{HouseholdJSON: factory.HouseholdToRecord(household)})
}

// ListHouseholds returns every stored household.
func (h *Handler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListHouseholds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list households", err)
		return
	}

	dtos := make([]HouseholdDTO, 0, len(recs))
	for _, rec := range recs {
		var hj factory.HouseholdJSON
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &hj); err != nil {
			continue // skip corrupt rows rather than failing the listing
		}
		dtos = append(dtos, HouseholdDTO{
			HouseholdJSON: hj,
			CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
			UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHousehold returns one household.
func (h *Handler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	household, rec, err := h.loadHousehold(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load household", err)
		return
	}
	writeJSON(w, http.StatusOK, HouseholdDTO{
		HouseholdJSON: factory.HouseholdToRecord(*household),
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339),
	})
}

// GetVision runs the vision and buffers planner for a household.
func (h *Handler) GetVision(w http.ResponseWriter, r *http.Request) {
	household, _, err := h.loadHousehold(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load household", err)
		return
	}
	writeJSON(w, http.StatusOK, toVisionResultDTO(engine.PlanVisionAndBuffers(*household)))
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// CreatePeriod opens a new accounting month for a household.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	household, _, err := h.loadHousehold(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load household", err)
		return
	}

	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period payload", err)
		return
	}

	p := engine.NewPeriod(uuid.NewString(), household.ID, req.Label, decimal.NewFromFloat(req.CoreTotal))
	for id, u := range req.AssignedChildUnits {
		p.AssignedChildUnits[id] = decimal.NewFromFloat(u)
	}
	if err := engine.ValidatePeriod(*p, *household); err != nil {
		writeEngineError(w, "Period failed validation", err)
		return
	}

	if err := h.savePeriod(r, p); err != nil {
		writeEngineError(w, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.PeriodToRecord(*p))
}

// ListPeriods returns a household's months, newest first.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListPeriods(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}

	dtos := make([]factory.PeriodJSON, 0, len(recs))
	for _, rec := range recs {
		var pj factory.PeriodJSON
		if err := json.Unmarshal([]byte(rec.StateJSON), &pj); err != nil {
			continue
		}
		dtos = append(dtos, pj)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriod returns one period.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	_, p, _, err := h.loadPeriod(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load period", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.PeriodToRecord(*p))
}

// AddCareEntry appends one care-work record to an unlocked period.
func (h *Handler) AddCareEntry(w http.ResponseWriter, r *http.Request) {
	_, p, _, err := h.loadPeriod(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load period", err)
		return
	}

	var req CareEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid care entry payload", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid care entry date, want YYYY-MM-DD", err)
		return
	}

	entry := engine.CareEntry{
		ID:      uuid.NewString(),
		AdultID: req.AdultID,
		Date:    date,
		Task:    req.Task,
		Hours:   decimal.NewFromFloat(req.Hours),
	}
	if err := p.AddCareEntry(entry); err != nil {
		writeEngineError(w, "Failed to add care entry", err)
		return
	}

	if err := h.savePeriod(r, p); err != nil {
		writeEngineError(w, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.PeriodToRecord(*p))
}

// SetOverride sets (or, with a null amount, clears) a share override.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	household, p, _, err := h.loadPeriod(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load period", err)
		return
	}

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid override payload", err)
		return
	}
	if _, ok := household.Adult(req.AdultID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown adult "+req.AdultID, nil)
		return
	}

	if req.Amount == nil {
		err = p.ClearOverride(req.AdultID)
	} else {
		err = p.SetOverride(req.AdultID, decimal.NewFromFloat(*req.Amount))
	}
	if err != nil {
		writeEngineError(w, "Failed to update override", err)
		return
	}

	if err := h.savePeriod(r, p); err != nil {
		writeEngineError(w, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.PeriodToRecord(*p))
}

// RecordDecision appends a governance decision to the period log.
func (h *Handler) RecordDecision(w http.ResponseWriter, r *http.Request) {
	h.recordGovernanceEvent(w, r, func(p *engine.Period, e engine.GovernanceEvent) error {
		return p.RecordDecision(e)
	})
}

// RecordAmendment appends a governance amendment to the period log.
func (h *Handler) RecordAmendment(w http.ResponseWriter, r *http.Request) {
	h.recordGovernanceEvent(w, r, func(p *engine.Period, e engine.GovernanceEvent) error {
		return p.RecordAmendment(e)
	})
}

func (h *Handler) recordGovernanceEvent(w http.ResponseWriter, r *http.Request, apply func(*engine.Period, engine.GovernanceEvent) error) {
	_, p, _, err := h.loadPeriod(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load period", err)
		return
	}

	var req GovernanceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event payload", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event date, want YYYY-MM-DD", err)
		return
	}

	event := engine.GovernanceEvent{ID: uuid.NewString(), Description: req.Description, Date: date}
	if err := apply(p, event); err != nil {
		writeEngineError(w, "Failed to record event", err)
		return
	}

	if err := h.savePeriod(r, p); err != nil {
		writeEngineError(w, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.PeriodToRecord(*p))
}

// LockPeriod closes the month. Terminal.
func (h *Handler) LockPeriod(w http.ResponseWriter, r *http.Request) {
	_, p, _, err := h.loadPeriod(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load period", err)
		return
	}

	if err := p.Lock(); err != nil {
		writeEngineError(w, "Failed to lock period", err)
		return
	}
	if err := h.savePeriod(r, p); err != nil {
		writeEngineError(w, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.PeriodToRecord(*p))
}

// GetReport runs all three calculators for a period. Read-only and
// idempotent; a locked period reports exactly like an unlocked one.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	household, p, _, err := h.loadPeriod(r, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to load period", err)
		return
	}

	report, err := buildReport(*household, *p)
	if err != nil {
		writeEngineError(w, "Calculation rejected its inputs", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// buildReport is the orchestration sequence the engine documents: unit
// method first, care ledger fed from its result, vision independently.
func buildReport(household engine.Household, p engine.Period) (*ReportDTO, error) {
	unit, err := engine.CalculateUnitMethod(household, p)
	if err != nil {
		return nil, err
	}
	care, err := engine.ApplyCareLedger(household, p, unit)
	if err != nil {
		return nil, err
	}
	vision := engine.PlanVisionAndBuffers(household)

	return &ReportDTO{
		HouseholdID: household.ID,
		PeriodID:    p.ID,
		Label:       p.Label,
		Unit:        toUnitResultDTO(unit),
		Care:        toCareResultDTO(care),
		Vision:      toVisionResultDTO(vision),
	}, nil
}

// ListReportRuns returns the scheduler's recent report history.
func (h *Handler) ListReportRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListReportRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list report runs", err)
		return
	}
	dtos := make([]ReportRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = ReportRunDTO{
			ID:          run.ID,
			HouseholdID: run.HouseholdID,
			PeriodID:    run.PeriodID,
			Trigger:     run.Trigger,
			CreatedAt:   run.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// LOADING / SAVING HELPERS
// =============================================================================

func (h *Handler) loadHousehold(r *http.Request, id string) (*engine.Household, *sqlite.HouseholdRecord, error) {
	rec, err := h.Store.GetHousehold(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	household, err := factory.ParseHousehold([]byte(rec.ConfigJSON))
	if err != nil {
		return nil, nil, err
	}
	return household, rec, nil
}

func (h *Handler) loadPeriod(r *http.Request, id string) (*engine.Household, *engine.Period, *sqlite.PeriodRecord, error) {
	rec, err := h.Store.GetPeriod(r.Context(), id)
	if err != nil {
		return nil, nil, nil, err
	}
	household, _, err := h.loadHousehold(r, rec.HouseholdID)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := factory.ParsePeriod([]byte(rec.StateJSON), *household)
	if err != nil {
		return nil, nil, nil, err
	}
	return household, p, rec, nil
}

func (h *Handler) savePeriod(r *http.Request, p *engine.Period) error {
	stateJSON, err := json.Marshal(factory.PeriodToRecord(*p))
	if err != nil {
		return err
	}
	return h.Store.SavePeriod(r.Context(), sqlite.PeriodRecord{
		ID:          p.ID,
		HouseholdID: p.HouseholdID,
		Label:       p.Label,
		StateJSON:   string(stateJSON),
		IsLocked:    p.IsLocked,
		CreatedAt:   p.CreatedAt,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine and store errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	var verrs *engine.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		resp := ErrorResponse{Error: message, Details: "validation failed"}
		for _, v := range verrs.Violations {
			resp.Violations = append(resp.Violations, v.String())
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, engine.ErrPeriodLocked), errors.Is(err, sqlite.ErrRowLocked):
		writeError(w, http.StatusLocked, message, err)
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, sqlite.ErrDuplicateLabel):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
