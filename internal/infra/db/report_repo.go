package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// ReportRepository stores reports in one table per tier family
// (brand_snapshot_reports, brand_snapshot_plus_reports, brand_blueprint_results).
type ReportRepository struct {
	db *sql.DB
	d  Dialect
}

func NewReportRepository(db *sql.DB, d Dialect) *ReportRepository {
	return &ReportRepository{db: db, d: d}
}

const reportColumns = `id, tier, email, name, company, website,
  answers_json, pillar_scores_json, score, band, primary_pillar, summary,
  insights_json, recommendations_json, blueprint_json, activation_plan_json,
  pdf_key, refresh_count, created_at, updated_at`

func reportTable(t tier.Tier) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", reports.ErrNotFound, t)
	}
	return t.Table(), nil
}

// Save insert/update a report row
func (r *ReportRepository) Save(ctx context.Context, rep *reports.Report) error {
	table, err := reportTable(rep.Tier)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
INSERT INTO %s
(%s)
VALUES (%s)
%s;`, table, reportColumns, placeholders(20), r.d.Upsert([]string{"id"},
		"name", "company", "website", "answers_json", "pillar_scores_json", "score", "band",
		"primary_pillar", "summary", "insights_json", "recommendations_json", "blueprint_json",
		"activation_plan_json", "pdf_key", "refresh_count", "updated_at"))

	answers, err := toJSON(emptyMap(rep.Answers))
	if err != nil {
		return err
	}
	scores, err := toJSON(rep.PillarScores)
	if err != nil {
		return err
	}
	insights, err := toJSON(emptySlice(rep.Insights))
	if err != nil {
		return err
	}
	recs, err := toJSON(emptySlice(rep.Recommendations))
	if err != nil {
		return err
	}
	var blueprint, plan sql.NullString
	if rep.Blueprint != nil {
		s, err := toJSON(rep.Blueprint)
		if err != nil {
			return err
		}
		blueprint = sql.NullString{String: s, Valid: true}
	}
	if len(rep.ActivationPlan) > 0 {
		s, err := toJSON(rep.ActivationPlan)
		if err != nil {
			return err
		}
		plan = sql.NullString{String: s, Valid: true}
	}
	created := nowIfZero(rep.CreatedAt)
	updated := rep.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err = r.db.ExecContext(ctx, r.d.Rebind(q),
		rep.ID, string(rep.Tier), rep.Email, rep.Name, rep.Company, rep.Website,
		answers, scores, rep.Score, string(rep.Band), string(rep.PrimaryPillar), rep.Summary,
		insights, recs, blueprint, plan,
		rep.PDFKey, rep.RefreshCount, created, updated,
	)
	return err
}

// Get by tier + ID
func (r *ReportRepository) Get(ctx context.Context, t tier.Tier, id reports.ReportID) (*reports.Report, error) {
	table, err := reportTable(t)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = ? AND tier = ?
LIMIT 1;`, reportColumns, table)
	rep, err := scanReport(r.db.QueryRowContext(ctx, r.d.Rebind(q), id, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reports.ErrNotFound
	}
	return rep, err
}

func (r *ReportRepository) LatestByEmail(ctx context.Context, t tier.Tier, email string) (*reports.Report, error) {
	table, err := reportTable(t)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE email = ? AND tier = ?
ORDER BY created_at DESC, id DESC
LIMIT 1;`, reportColumns, table)
	rep, err := scanReport(r.db.QueryRowContext(ctx, r.d.Rebind(q), email, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reports.ErrNotFound
	}
	return rep, err
}

func (r *ReportRepository) ListWithoutFollowup(ctx context.Context, t tier.Tier, olderThan time.Time, limit int) ([]*reports.Report, error) {
	table, err := reportTable(t)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
SELECT %s
FROM %s r
WHERE r.tier = ? AND r.created_at < ? AND r.nudged_at IS NULL
  AND NOT EXISTS (
    SELECT 1 FROM session_followups s
    WHERE s.email = r.email AND s.status = 'scheduled'
  )
ORDER BY r.created_at ASC
LIMIT ?;`, reportColumns, table)
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), string(t), olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*reports.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepository) MarkNudged(ctx context.Context, t tier.Tier, ids []reports.ReportID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	table, err := reportTable(t)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET nudged_at = ? WHERE id IN (%s);`, table, placeholders(len(ids)))
	args := []any{at}
	for _, id := range ids {
		args = append(args, string(id))
	}
	_, err = r.db.ExecContext(ctx, r.d.Rebind(q), args...)
	return err
}

func (r *ReportRepository) UpdatePDFKey(ctx context.Context, t tier.Tier, id reports.ReportID, key string) error {
	table, err := reportTable(t)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET pdf_key = ?, updated_at = ? WHERE id = ?;`, table)
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), key, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return reports.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*reports.Report, error) {
	var (
		rep                             reports.Report
		tierS, band, pillar             string
		answers, scores, insights, recs string
		blueprint, plan                 sql.NullString
	)
	if err := row.Scan(
		&rep.ID, &tierS, &rep.Email, &rep.Name, &rep.Company, &rep.Website,
		&answers, &scores, &rep.Score, &band, &pillar, &rep.Summary,
		&insights, &recs, &blueprint, &plan,
		&rep.PDFKey, &rep.RefreshCount, &rep.CreatedAt, &rep.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rep.Tier = tier.Tier(tierS)
	rep.Band = scoring.Band(band)
	rep.PrimaryPillar = scoring.Pillar(pillar)

	if err := fromJSON(answers, &rep.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := fromJSON(scores, &rep.PillarScores); err != nil {
		return nil, fmt.Errorf("decode pillar scores: %w", err)
	}
	if err := fromJSON(insights, &rep.Insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	if err := fromJSON(recs, &rep.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if blueprint.Valid {
		if err := fromJSON(blueprint.String, &rep.Blueprint); err != nil {
			return nil, fmt.Errorf("decode blueprint: %w", err)
		}
	}
	if plan.Valid {
		if err := fromJSON(plan.String, &rep.ActivationPlan); err != nil {
			return nil, fmt.Errorf("decode activation plan: %w", err)
		}
	}
	return &rep, nil
}

func emptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
