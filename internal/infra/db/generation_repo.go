package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// GenerationRepository keeps the raw LLM output behind every report version.
type GenerationRepository struct {
	db *sql.DB
	d  Dialect
}

func NewGenerationRepository(db *sql.DB, d Dialect) *GenerationRepository {
	return &GenerationRepository{db: db, d: d}
}

func (r *GenerationRepository) Save(ctx context.Context, g *reports.Generation) error {
	const q = `
INSERT INTO report_generations
  (id, report_id, tier, provider, model, raw, tokens_used, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		g.ID, g.ReportID, string(g.Tier), stringOrDash(g.Provider), stringOrDash(g.Model),
		g.Raw, g.TokensUsed, nowIfZero(g.CreatedAt),
	)
	return err
}

func (r *GenerationRepository) LatestByReport(ctx context.Context, id reports.ReportID) (*reports.Generation, error) {
	const q = `
SELECT id, report_id, tier, provider, model, raw, tokens_used, created_at
FROM report_generations
WHERE report_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var (
		g     reports.Generation
		tierS string
	)
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), id).Scan(
		&g.ID, &g.ReportID, &tierS, &g.Provider, &g.Model, &g.Raw, &g.TokensUsed, &g.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.Tier = tier.Tier(tierS)
	g.Provider = dashToEmpty(g.Provider)
	g.Model = dashToEmpty(g.Model)
	return &g, nil
}
