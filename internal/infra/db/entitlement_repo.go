package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// EntitlementRepository maps refresh_entitlements, keyed by (email, tier).
type EntitlementRepository struct {
	db *sql.DB
	d  Dialect
}

func NewEntitlementRepository(db *sql.DB, d Dialect) *EntitlementRepository {
	return &EntitlementRepository{db: db, d: d}
}

func (r *EntitlementRepository) Get(ctx context.Context, email string, t tier.Tier) (*entitlements.Entitlement, error) {
	const q = `
SELECT email, tier, window_start, window_end, free_refreshes, refreshes_used,
       unlimited, expired, last_refresh_at, created_at, updated_at
FROM refresh_entitlements
WHERE email = ? AND tier = ?
LIMIT 1;`
	var (
		e     entitlements.Entitlement
		tierS string
		last  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), email, string(t)).Scan(
		&e.Email, &tierS, &e.WindowStart, &e.WindowEnd, &e.FreeRefreshes, &e.RefreshesUsed,
		&e.Unlimited, &e.Expired, &last, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entitlements.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Tier = tier.Tier(tierS)
	e.LastRefreshAt = timePtr(last)
	return &e, nil
}

// Save insert/update an entitlement
func (r *EntitlementRepository) Save(ctx context.Context, e *entitlements.Entitlement) error {
	q := `
INSERT INTO refresh_entitlements
  (email, tier, window_start, window_end, free_refreshes, refreshes_used,
   unlimited, expired, last_refresh_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
` + r.d.Upsert([]string{"email", "tier"},
		"window_start", "window_end", "free_refreshes", "refreshes_used",
		"unlimited", "expired", "last_refresh_at", "updated_at") + ";"

	created := nowIfZero(e.CreatedAt)
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		e.Email, string(e.Tier), e.WindowStart, e.WindowEnd, e.FreeRefreshes, e.RefreshesUsed,
		e.Unlimited, e.Expired, nullTime(e.LastRefreshAt), created, updated,
	)
	return err
}

func (r *EntitlementRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	const q = `
UPDATE refresh_entitlements
SET expired = TRUE, updated_at = ?
WHERE expired = FALSE AND window_end < ?;`
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
