package syncfailures

import (
	"context"
	"time"
)

// Operation names the marketing call that failed.
type Operation string

const (
	OpUpsertContact Operation = "upsert_contact"
	OpApplyTags     Operation = "apply_tags"
	OpSetFields     Operation = "set_fields"
)

// SyncFailure is a marketing sync that did not go through and is waiting to
// be replayed.
type SyncFailure struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Operation   Operation  `json:"operation"`
	Message     string     `json:"message"`
	DetailsJSON string     `json:"details_json,omitempty"` // raw JSON payload
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Repository defines persistence for sync failures
type Repository interface {
	Save(ctx context.Context, f *SyncFailure) error
	ListUnresolved(ctx context.Context, limit int) ([]*SyncFailure, error)
	MarkResolved(ctx context.Context, id int64, at time.Time) error
	IncrementAttempts(ctx context.Context, id int64) error
}
