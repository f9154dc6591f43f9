package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/syncfailures"
)

type SyncFailureRepository struct {
	db *sql.DB
	d  Dialect
}

func NewSyncFailureRepository(db *sql.DB, d Dialect) *SyncFailureRepository {
	return &SyncFailureRepository{db: db, d: d}
}

func (r *SyncFailureRepository) Save(ctx context.Context, f *syncfailures.SyncFailure) error {
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := f.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	created := nowIfZero(f.CreatedAt)

	const q = `
INSERT INTO sync_failures (email, operation, message, details_json, attempts, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	if r.d == Postgres {
		err := r.db.QueryRowContext(ctx, r.d.Rebind(q)+" RETURNING id;",
			f.Email, string(f.Operation), msg, details, attempts, created).Scan(&f.ID)
		return err
	}
	res, err := r.db.ExecContext(ctx, q+";", f.Email, string(f.Operation), msg, details, attempts, created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *SyncFailureRepository) ListUnresolved(ctx context.Context, limit int) ([]*syncfailures.SyncFailure, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, email, operation, message, details_json, attempts, created_at
FROM sync_failures
WHERE resolved_at IS NULL
ORDER BY created_at ASC, id ASC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*syncfailures.SyncFailure
	for rows.Next() {
		var (
			f  syncfailures.SyncFailure
			op string
		)
		if err := rows.Scan(&f.ID, &f.Email, &op, &f.Message, &f.DetailsJSON, &f.Attempts, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Operation = syncfailures.Operation(op)
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *SyncFailureRepository) MarkResolved(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE sync_failures SET resolved_at = ? WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q), at, id)
	return err
}

func (r *SyncFailureRepository) IncrementAttempts(ctx context.Context, id int64) error {
	const q = `UPDATE sync_failures SET attempts = attempts + 1 WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q), id)
	return err
}
