package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/pipeline"
)

// Run status values. A run that reached the end is "completed" even when
// individual companies failed; per-company statuses carry the detail.
const (
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
)

// ProvisionRun is the persisted aggregate report of one pipeline run.
// Kept so operators can inspect partial failures later and decide whether
// to re-run; the commerce state itself lives only on the platform.
type ProvisionRun struct {
	RunID            uuid.UUID                 `json:"runId"`
	Shop             string                    `json:"shop"`
	Status           string                    `json:"status"`
	CompanyCount     int                       `json:"companyCount"`
	ProvisionedCount int                       `json:"provisionedCount"`
	PartialCount     int                       `json:"partialCount"`
	FailedCount      int                       `json:"failedCount"`
	Outcomes         []pipeline.CompanyOutcome `json:"outcomes"`
	StartedAt        time.Time                 `json:"startedAt"`
	FinishedAt       time.Time                 `json:"finishedAt"`
}

// NewProvisionRun builds the run record from the orchestrator's report
func NewProvisionRun(shop string, outcomes []pipeline.CompanyOutcome, startedAt, finishedAt time.Time) *ProvisionRun {
	run := &ProvisionRun{
		RunID:        uuid.New(),
		Shop:         shop,
		CompanyCount: len(outcomes),
		Outcomes:     outcomes,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}

	for _, o := range outcomes {
		switch o.Status {
		case pipeline.StatusProvisioned:
			run.ProvisionedCount++
		case pipeline.StatusPartial:
			run.PartialCount++
		case pipeline.StatusFailed:
			run.FailedCount++
		}
	}

	if run.PartialCount > 0 || run.FailedCount > 0 {
		run.Status = RunStatusCompletedWithErrors
	} else {
		run.Status = RunStatusCompleted
	}

	return run
}
