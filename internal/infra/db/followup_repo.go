package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
)

// SessionRepository maps session_followups.
type SessionRepository struct {
	db *sql.DB
	d  Dialect
}

func NewSessionRepository(db *sql.DB, d Dialect) *SessionRepository {
	return &SessionRepository{db: db, d: d}
}

// Save upserts on invitee_uri, so a rescheduled booking keeps its row.
func (r *SessionRepository) Save(ctx context.Context, f *followups.SessionFollowup) error {
	q := `
INSERT INTO session_followups
  (id, email, name, report_id, tier, event_uri, invitee_uri, scheduled_at, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
` + r.d.Upsert([]string{"invitee_uri"},
		"email", "name", "report_id", "tier", "event_uri", "scheduled_at", "status", "updated_at") + ";"

	created := nowIfZero(f.CreatedAt)
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		f.ID, f.Email, f.Name, stringOrDash(f.ReportID), stringOrDash(f.Tier), f.EventURI, f.InviteeURI,
		f.ScheduledAt, string(f.Status), created, nowIfZero(f.UpdatedAt),
	)
	return err
}

func (r *SessionRepository) ByInvitee(ctx context.Context, inviteeURI string) (*followups.SessionFollowup, error) {
	const q = `
SELECT id, email, name, report_id, tier, event_uri, invitee_uri, scheduled_at, status, created_at, updated_at
FROM session_followups
WHERE invitee_uri = ?
LIMIT 1;`
	var (
		f      followups.SessionFollowup
		status string
	)
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), inviteeURI).Scan(
		&f.ID, &f.Email, &f.Name, &f.ReportID, &f.Tier, &f.EventURI, &f.InviteeURI,
		&f.ScheduledAt, &status, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, followups.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	f.Status = followups.SessionStatus(status)
	f.ReportID = dashToEmpty(f.ReportID)
	f.Tier = dashToEmpty(f.Tier)
	return &f, nil
}

func (r *SessionRepository) MarkCanceled(ctx context.Context, inviteeURI string) error {
	const q = `UPDATE session_followups SET status = ?, updated_at = ? WHERE invitee_uri = ?;`
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), string(followups.SessionCanceled), time.Now().UTC(), inviteeURI)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return followups.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) HasBooking(ctx context.Context, email string) (bool, error) {
	const q = `SELECT COUNT(*) FROM session_followups WHERE email = ? AND status = ?;`
	var n int
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(q), email, string(followups.SessionScheduled)).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SurveyRepository maps voc_surveys.
type SurveyRepository struct {
	db *sql.DB
	d  Dialect
}

func NewSurveyRepository(db *sql.DB, d Dialect) *SurveyRepository {
	return &SurveyRepository{db: db, d: d}
}

func (r *SurveyRepository) Save(ctx context.Context, s *followups.Survey) error {
	const q = `
INSERT INTO voc_surveys (id, email, report_id, rating, comment, source, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		s.ID, s.Email, stringOrDash(s.ReportID), s.Rating, s.Comment, stringOrDash(s.Source), nowIfZero(s.CreatedAt),
	)
	return err
}

func (r *SurveyRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*followups.Survey, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, email, report_id, rating, comment, source, created_at
FROM voc_surveys
WHERE email = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*followups.Survey
	for rows.Next() {
		var s followups.Survey
		if err := rows.Scan(&s.ID, &s.Email, &s.ReportID, &s.Rating, &s.Comment, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.ReportID = dashToEmpty(s.ReportID)
		s.Source = dashToEmpty(s.Source)
		out = append(out, &s)
	}
	return out, rows.Err()
}
