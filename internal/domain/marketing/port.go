// Package marketing is the port to the email-marketing platform.
package marketing

import (
	"context"
	"fmt"
)

// Contact is what gets synced to the marketing platform.
type Contact struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// SyncResult reports what happened to each part of a sync. Tag and field
// failures are listed rather than returned as errors.
type SyncResult struct {
	ContactID    string   `json:"contact_id"`
	TagsApplied  []string `json:"tags_applied"`
	TagsFailed   []string `json:"tags_failed,omitempty"`
	FieldsFailed []string `json:"fields_failed,omitempty"`
}

func (r SyncResult) Partial() bool {
	return len(r.TagsFailed) > 0 || len(r.FieldsFailed) > 0
}

// Syncer upserts a contact and applies tags.
type Syncer interface {
	Sync(ctx context.Context, c Contact, tags []string) (SyncResult, error)
}

// Tag names shared by the services.
const (
	TagSessionBooked   = "wb-session-booked"
	TagSessionCanceled = "wb-session-canceled"
	TagNudgeBook       = "wb-nudge-book-session"
)

func TagCompleted(tierSlug string) string { return fmt.Sprintf("wb-%s-completed", tierSlug) }
func TagPurchased(tierSlug string) string { return fmt.Sprintf("wb-%s-purchased", tierSlug) }
func TagPrimary(pillar string) string     { return fmt.Sprintf("wb-primary-%s", pillar) }
func TagVOC(segment string) string        { return fmt.Sprintf("wb-voc-%s", segment) }

// Custom field keys as configured in the marketing platform.
const (
	FieldScore         = "WUNDERBRAND_SCORE"
	FieldPrimaryPillar = "PRIMARY_PILLAR"
	FieldReportURL     = "REPORT_URL"
	FieldTier          = "WUNDERBRAND_TIER"
	FieldCompany       = "COMPANY"
)
