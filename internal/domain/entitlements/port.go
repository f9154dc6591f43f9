package entitlements

import (
	"context"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// Repository port
type Repository interface {
	Get(ctx context.Context, email string, t tier.Tier) (*Entitlement, error)
	Save(ctx context.Context, e *Entitlement) error
	// ExpireBefore flags every entitlement whose window ended before now and
	// returns how many rows changed.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
}
