package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/wunderbrand/internal/domain/purchases"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// PurchaseRepository records completed checkouts, one row per Stripe session.
type PurchaseRepository struct {
	db *sql.DB
	d  Dialect
}

func NewPurchaseRepository(db *sql.DB, d Dialect) *PurchaseRepository {
	return &PurchaseRepository{db: db, d: d}
}

func (r *PurchaseRepository) Save(ctx context.Context, p *purchases.Purchase) (bool, error) {
	q := `
INSERT INTO purchases
  (session_id, email, tier, report_id, amount_total, currency, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
` + r.d.IgnoreConflict("session_id") + ";"
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		p.SessionID, p.Email, string(p.Tier), stringOrDash(p.ReportID), p.AmountTotal,
		stringOrDash(p.Currency), stringOrDash(p.Status), nowIfZero(p.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PurchaseRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM purchases WHERE session_id = ?;`
	var n int
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(q), sessionID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PurchaseRepository) HasTier(ctx context.Context, email string, t tier.Tier) (bool, error) {
	var covering []any
	for _, candidate := range tier.All() {
		if candidate.AtLeast(t) {
			covering = append(covering, string(candidate))
		}
	}
	if len(covering) == 0 {
		return false, nil
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM purchases WHERE email = ? AND tier IN (%s);`, placeholders(len(covering)))
	args := append([]any{email}, covering...)
	var n int
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(q), args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
