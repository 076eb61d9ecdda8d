package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncStatus represents the outcome of a catalog sync run
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// IsValid checks if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed:
		return true
	}
	return false
}

// SyncFailure records one product that could not be imported.
type SyncFailure struct {
	ExternalProductID string `json:"external_id"`
	Reason            string `json:"reason"`
}

// SyncRun summarises one catalog sync for operators.
type SyncRun struct {
	ID         uuid.UUID     `json:"id"`
	Status     SyncStatus    `json:"status"`
	Total      int           `json:"total"`
	Processed  int           `json:"processed"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Failures   []SyncFailure `json:"failures"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewSyncRun starts a run.
func NewSyncRun(startedAt time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		StartedAt: startedAt,
	}
}

// RecordFailure adds a skipped product.
func (r *SyncRun) RecordFailure(externalID string, err error) {
	r.Failures = append(r.Failures, SyncFailure{ExternalProductID: externalID, Reason: err.Error()})
}

// Finish derives the run status from its counters.
func (r *SyncRun) Finish(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	switch {
	case len(r.Failures) == 0:
		r.Status = SyncStatusSuccess
	case r.Processed > 0:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
}

// Abort closes a run that stopped before every product was tried.
func (r *SyncRun) Abort(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	r.Status = SyncStatusFailed
}

// SyncRunRepository persists sync run summaries.
type SyncRunRepository interface {
	Save(ctx context.Context, run *SyncRun) error
	ListRecent(ctx context.Context, limit int) ([]SyncRun, error)
}
