package reports

import (
	"context"
	"errors"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

var ErrNotFound = errors.New("report not found")

// Repository port
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, t tier.Tier, id ReportID) (*Report, error)
	LatestByEmail(ctx context.Context, t tier.Tier, email string) (*Report, error)
	// ListWithoutFollowup returns reports created before olderThan whose email
	// has no booked session and that were never nudged.
	ListWithoutFollowup(ctx context.Context, t tier.Tier, olderThan time.Time, limit int) ([]*Report, error)
	// MarkNudged stamps ids so ListWithoutFollowup skips them.
	MarkNudged(ctx context.Context, t tier.Tier, ids []ReportID, at time.Time) error
	UpdatePDFKey(ctx context.Context, t tier.Tier, id ReportID, key string) error
}

// GenerationRepository stores raw LLM responses.
type GenerationRepository interface {
	Save(ctx context.Context, g *Generation) error
	LatestByReport(ctx context.Context, id ReportID) (*Generation, error)
}

// DocumentStore keeps rendered PDFs.
type DocumentStore interface {
	PutDocument(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Renderer turns a report into a PDF.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}
