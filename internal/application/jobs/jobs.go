// Package jobs holds the periodic maintenance work and the cron scheduler
// that runs it.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/syncfailures"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// EntitlementSweeper flags entitlements whose window has ended.
type EntitlementSweeper struct {
	Entitlements entitlements.Repository
	Clock        application.Clock
	Log          *zap.Logger
}

func (EntitlementSweeper) Name() string { return "entitlement-sweeper" }

func (j *EntitlementSweeper) Run(ctx context.Context) error {
	n, err := j.Entitlements.ExpireBefore(ctx, j.Clock.Now())
	if err != nil {
		return fmt.Errorf("expire entitlements: %w", err)
	}
	j.Log.Info("entitlements expired", zap.Int64("count", n))
	return nil
}

const (
	defaultNudgeAge   = 3 * 24 * time.Hour
	defaultNudgeBatch = 200
)

// FollowupNudge tags snapshot customers who have not booked a session a few
// days after their report.
type FollowupNudge struct {
	Reports   reports.Repository
	Sessions  followups.SessionRepository
	Marketing *application.MarketingSync
	Clock     application.Clock
	Log       *zap.Logger
	// Age is how old a report must be; defaults to three days.
	Age   time.Duration
	Batch int
}

func (FollowupNudge) Name() string { return "followup-nudge" }

func (j *FollowupNudge) Run(ctx context.Context) error {
	age, batch := j.Age, j.Batch
	if age <= 0 {
		age = defaultNudgeAge
	}
	if batch <= 0 {
		batch = defaultNudgeBatch
	}

	now := j.Clock.Now()
	rs, err := j.Reports.ListWithoutFollowup(ctx, tier.Snapshot, now.Add(-age), batch)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}
	byEmail := map[string][]reports.ReportID{}
	var order []string
	for _, r := range rs {
		if _, ok := byEmail[r.Email]; !ok {
			order = append(order, r.Email)
		}
		byEmail[r.Email] = append(byEmail[r.Email], r.ID)
	}

	nudged := 0
	for _, email := range order {
		booked, err := j.Sessions.HasBooking(ctx, email)
		if err != nil {
			return fmt.Errorf("check booking: %w", err)
		}
		if !booked {
			// Failed syncs land in sync_failures and are replayed from there.
			j.Marketing.Sync(ctx, marketing.Contact{Email: email}, []string{marketing.TagNudgeBook})
			nudged++
		}
		if err := j.Reports.MarkNudged(ctx, tier.Snapshot, byEmail[email], now); err != nil {
			return fmt.Errorf("mark nudged: %w", err)
		}
	}
	j.Log.Info("followup nudges sent", zap.Int("candidates", len(rs)), zap.Int("nudged", nudged))
	return nil
}

const defaultRetryBatch = 100

// SyncRetry replays unresolved marketing sync failures.
type SyncRetry struct {
	Failures  syncfailures.Repository
	Marketing *application.MarketingSync
	Clock     application.Clock
	Log       *zap.Logger
	Batch     int
	// MaxAttempts stops replaying a failure after this many tries; 0 means no cap.
	MaxAttempts int
}

func (SyncRetry) Name() string { return "sync-retry" }

func (j *SyncRetry) Run(ctx context.Context) error {
	batch := j.Batch
	if batch <= 0 {
		batch = defaultRetryBatch
	}
	fs, err := j.Failures.ListUnresolved(ctx, batch)
	if err != nil {
		return fmt.Errorf("list sync failures: %w", err)
	}
	resolved := 0
	for _, f := range fs {
		if j.MaxAttempts > 0 && f.Attempts >= j.MaxAttempts {
			continue
		}
		if err := j.Marketing.Replay(ctx, f); err != nil {
			j.Log.Warn("sync replay failed", zap.Int64("id", f.ID), zap.String("email", f.Email), zap.Error(err))
			if err := j.Failures.IncrementAttempts(ctx, f.ID); err != nil {
				return fmt.Errorf("increment attempts: %w", err)
			}
			continue
		}
		if err := j.Failures.MarkResolved(ctx, f.ID, j.Clock.Now()); err != nil {
			return fmt.Errorf("mark resolved: %w", err)
		}
		resolved++
	}
	j.Log.Info("sync failures replayed", zap.Int("pending", len(fs)), zap.Int("resolved", resolved))
	return nil
}
