/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication. Household and Period travel as
  the factory package's plain records; this file adds the wrappers around
  them and the float64 projections of the engine's decimal result types.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  DTOs are pure data carriers. Validation happens in the engine, surfaced
  by the handlers as a collected violation list.
*/
package api

import (
	"github.com/warp/coreshare-engine/engine"
	"github.com/warp/coreshare-engine/factory"
)

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// =============================================================================
// HOUSEHOLD / PERIOD
// =============================================================================

// HouseholdDTO wraps the plain household record with storage metadata.
type HouseholdDTO struct {
	factory.HouseholdJSON
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// CreatePeriodRequest is the body for opening a new accounting month.
type CreatePeriodRequest struct {
	Label              string             `json:"label"`
	CoreTotal          float64            `json:"coreTotal"`
	AssignedChildUnits map[string]float64 `json:"assignedChildUnits"`
}

// CareEntryRequest is the body for appending one care-work record.
type CareEntryRequest struct {
	AdultID string  `json:"adultId"`
	Date    string  `json:"date"` // YYYY-MM-DD
	Task    string  `json:"task"`
	Hours   float64 `json:"hours"`
}

// OverrideRequest sets or clears a manual share override. A null amount
// clears the override.
type OverrideRequest struct {
	AdultID string   `json:"adultId"`
	Amount  *float64 `json:"amount"`
}

// GovernanceEventRequest is the body for recording a decision or amendment.
type GovernanceEventRequest struct {
	Description string `json:"description"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// =============================================================================
// RESULT DTOs - float64 projections of the engine's decimal results
// =============================================================================

type RemediationOptionDTO struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended,omitempty"`
}

type WarningDTO struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Options []RemediationOptionDTO `json:"options,omitempty"`
}

type AdultShareDTO struct {
	AdultID            string   `json:"adultId"`
	Name               string   `json:"name"`
	AssignedChildUnits float64  `json:"assignedChildUnits"`
	Units              float64  `json:"units"`
	PrelimShare        float64  `json:"prelimShare"`
	CapAmount          float64  `json:"capAmount"`
	Override           *float64 `json:"override,omitempty"`
	FinalShare         float64  `json:"finalShare"`
	Capped             bool     `json:"capped"`
	Overridden         bool     `json:"overridden"`
}

type UnitResultDTO struct {
	UnitCost            float64         `json:"unitCost"`
	Shares              []AdultShareDTO `json:"shares"`
	SumPrelim           float64         `json:"sumPrelim"`
	SumFinal            float64         `json:"sumFinal"`
	DiffFromCore        float64         `json:"diffFromCore"`
	RebalanceIterations int             `json:"rebalanceIterations"`
	Audit               []string        `json:"audit"`
	Warnings            []WarningDTO    `json:"warnings,omitempty"`
}

type CareAdultResultDTO struct {
	AdultID             string  `json:"adultId"`
	Name                string  `json:"name"`
	Hours               float64 `json:"hours"`
	CareValue           float64 `json:"careValue"`
	NextMonthCoreCredit float64 `json:"nextMonthCoreCredit"`
	StipendAmount       float64 `json:"stipendAmount"`
	EstimatedNextShare  float64 `json:"estimatedNextShare"`
}

type CareResultDTO struct {
	Model                 string               `json:"model"`
	Adults                []CareAdultResultDTO `json:"adults"`
	TotalCareValue        float64              `json:"totalCareValue"`
	NextMonthCoreIncrease float64              `json:"nextMonthCoreIncrease"`
	EstimatedCoreTotal    float64              `json:"estimatedCoreTotal"`
	Notes                 []string             `json:"notes,omitempty"`
}

type FundPlanDTO struct {
	Name            string  `json:"name"`
	Account         string  `json:"account,omitempty"`
	AnnualTarget    float64 `json:"annualTarget"`
	CurrentBalance  float64 `json:"currentBalance"`
	MonthlyTransfer float64 `json:"monthlyTransfer"`
	Priority        int     `json:"priority"`
	MonthsToTarget  int     `json:"monthsToTarget"`
}

type VisionResultDTO struct {
	EstimatedMonthlyCore    float64       `json:"estimatedMonthlyCore"`
	EmergencyTarget         float64       `json:"emergencyTarget"`
	MonthlyVisionAllocation float64       `json:"monthlyVisionAllocation"`
	Funds                   []FundPlanDTO `json:"funds"`
	TotalMonthlyTransfers   float64       `json:"totalMonthlyTransfers"`
	Warnings                []WarningDTO  `json:"warnings,omitempty"`
	Notes                   []string      `json:"notes,omitempty"`
	Recommendations         []string      `json:"recommendations,omitempty"`
}

// ReportDTO aggregates the three calculators for one period.
type ReportDTO struct {
	HouseholdID string          `json:"householdId"`
	PeriodID    string          `json:"periodId"`
	Label       string          `json:"label"`
	Unit        UnitResultDTO   `json:"unitMethod"`
	Care        CareResultDTO   `json:"careLedger"`
	Vision      VisionResultDTO `json:"vision"`
}

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ReportRunDTO is one row of the scheduler's report history.
type ReportRunDTO struct {
	ID          int64  `json:"id"`
	HouseholdID string `json:"householdId"`
	PeriodID    string `json:"periodId"`
	Trigger     string `json:"trigger"`
	CreatedAt   string `json:"createdAt"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toWarningDTOs(ws []engine.Warning) []WarningDTO {
	if len(ws) == 0 {
		return nil
	}
	dtos := make([]WarningDTO, len(ws))
	for i, w := range ws {
		dto := WarningDTO{Kind: string(w.Kind), Message: w.Message}
		for _, o := range w.Options {
			dto.Options = append(dto.Options, RemediationOptionDTO{
				Action:      o.Action,
				Description: o.Description,
				Recommended: o.Recommended,
			})
		}
		dtos[i] = dto
	}
	return dtos
}

func toUnitResultDTO(r *engine.UnitResult) UnitResultDTO {
	dto := UnitResultDTO{
		UnitCost:            r.UnitCost.InexactFloat64(),
		SumPrelim:           r.SumPrelim.InexactFloat64(),
		SumFinal:            r.SumFinal.InexactFloat64(),
		DiffFromCore:        r.DiffFromCore.InexactFloat64(),
		RebalanceIterations: r.RebalanceIterations,
		Audit:               r.Audit,
		Warnings:            toWarningDTOs(r.Warnings),
	}
	for _, s := range r.Shares {
		row := AdultShareDTO{
			AdultID:            s.AdultID,
			Name:               s.Name,
			AssignedChildUnits: s.AssignedChildUnits.InexactFloat64(),
			Units:              s.Units.InexactFloat64(),
			PrelimShare:        s.PrelimShare.InexactFloat64(),
			CapAmount:          s.CapAmount.InexactFloat64(),
			FinalShare:         s.FinalShare.InexactFloat64(),
			Capped:             s.Capped,
			Overridden:         s.Overridden,
		}
		if s.Override != nil {
			v := s.Override.InexactFloat64()
			row.Override = &v
		}
		dto.Shares = append(dto.Shares, row)
	}
	return dto
}

func toCareResultDTO(r *engine.CareResult) CareResultDTO {
	dto := CareResultDTO{
		Model:                 string(r.Model),
		TotalCareValue:        r.TotalCareValue.InexactFloat64(),
		NextMonthCoreIncrease: r.NextMonthCoreIncrease.InexactFloat64(),
		EstimatedCoreTotal:    r.EstimatedCoreTotal.InexactFloat64(),
		Notes:                 r.Notes,
	}
	for _, a := range r.Adults {
		dto.Adults = append(dto.Adults, CareAdultResultDTO{
			AdultID:             a.AdultID,
			Name:                a.Name,
			Hours:               a.Hours.InexactFloat64(),
			CareValue:           a.CareValue.InexactFloat64(),
			NextMonthCoreCredit: a.NextMonthCoreCredit.InexactFloat64(),
			StipendAmount:       a.StipendAmount.InexactFloat64(),
			EstimatedNextShare:  a.EstimatedNextShare.InexactFloat64(),
		})
	}
	return dto
}

func toVisionResultDTO(r *engine.VisionResult) VisionResultDTO {
	dto := VisionResultDTO{
		EstimatedMonthlyCore:    r.EstimatedMonthlyCore.InexactFloat64(),
		EmergencyTarget:         r.EmergencyTarget.InexactFloat64(),
		MonthlyVisionAllocation: r.MonthlyVisionAllocation.InexactFloat64(),
		TotalMonthlyTransfers:   r.TotalMonthlyTransfers.InexactFloat64(),
		Warnings:                toWarningDTOs(r.Warnings),
		Notes:                   r.Notes,
		Recommendations:         r.Recommendations,
	}
	for _, f := range r.Funds {
		dto.Funds = append(dto.Funds, FundPlanDTO{
			Name:            f.Name,
			Account:         f.Account,
			AnnualTarget:    f.AnnualTarget.InexactFloat64(),
			CurrentBalance:  f.CurrentBalance.InexactFloat64(),
			MonthlyTransfer: f.MonthlyTransfer.InexactFloat64(),
			Priority:        f.Priority,
			MonthsToTarget:  f.MonthsToTarget,
		})
	}
	return dto
}
