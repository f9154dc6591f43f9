package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/syncfailures"
)

// SyncPayload is stored in sync_failures.details_json so the retry job can
// replay the exact call.
type SyncPayload struct {
	Contact marketing.Contact `json:"contact"`
	Tags    []string          `json:"tags"`
}

// MarketingSync wraps a marketing.Syncer and turns failures into
// sync_failures rows instead of errors. Marketing is never on the critical path.
type MarketingSync struct {
	Syncer   marketing.Syncer
	Failures syncfailures.Repository
	Metrics  Metrics
	Log      *zap.Logger
	Clock    Clock
}

// Sync pushes c and tags. It never fails the caller; the result is returned
// for routes that want to show it.
func (m *MarketingSync) Sync(ctx context.Context, c marketing.Contact, tags []string) marketing.SyncResult {
	if m == nil || m.Syncer == nil {
		return marketing.SyncResult{}
	}
	res, err := m.Syncer.Sync(ctx, c, tags)
	switch {
	case err != nil:
		m.record(ctx, syncfailures.OpUpsertContact, err.Error(), SyncPayload{Contact: c, Tags: tags})
	case res.Partial():
		if len(res.TagsFailed) > 0 {
			m.record(ctx, syncfailures.OpApplyTags, "tags failed: "+strings.Join(res.TagsFailed, ","),
				SyncPayload{Contact: marketing.Contact{Email: c.Email}, Tags: res.TagsFailed})
		}
		if len(res.FieldsFailed) > 0 {
			fields := make(map[string]string, len(res.FieldsFailed))
			for _, f := range res.FieldsFailed {
				fields[f] = c.Fields[f]
			}
			m.record(ctx, syncfailures.OpSetFields, "fields failed: "+strings.Join(res.FieldsFailed, ","),
				SyncPayload{Contact: marketing.Contact{Email: c.Email, Fields: fields}})
		}
	}
	return res
}

// Replay re-runs a recorded failure.
func (m *MarketingSync) Replay(ctx context.Context, f *syncfailures.SyncFailure) error {
	var p SyncPayload
	if err := json.Unmarshal([]byte(f.DetailsJSON), &p); err != nil {
		return Permanent(fmt.Errorf("decode sync payload %d: %w", f.ID, err))
	}
	if p.Contact.Email == "" {
		p.Contact.Email = f.Email
	}
	res, err := m.Syncer.Sync(ctx, p.Contact, p.Tags)
	if err != nil {
		return err
	}
	if res.Partial() {
		return fmt.Errorf("partial sync: tags=%v fields=%v", res.TagsFailed, res.FieldsFailed)
	}
	return nil
}

func (m *MarketingSync) record(ctx context.Context, op syncfailures.Operation, msg string, p SyncPayload) {
	m.metrics().SyncFailed(string(op))
	m.logger().Warn("marketing sync failed",
		zap.String("email", p.Contact.Email),
		zap.String("operation", string(op)),
		zap.String("error", msg),
	)
	if m.Failures == nil {
		return
	}
	details, _ := json.Marshal(p)
	f := &syncfailures.SyncFailure{
		Email:       p.Contact.Email,
		Operation:   op,
		Message:     msg,
		DetailsJSON: string(details),
		Attempts:    1,
		CreatedAt:   m.now(),
	}
	if err := m.Failures.Save(ctx, f); err != nil {
		m.logger().Error("failed to record sync failure", zap.Error(err))
	}
}

func (m *MarketingSync) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

func (m *MarketingSync) metrics() Metrics {
	if m.Metrics == nil {
		return NopMetrics{}
	}
	return m.Metrics
}

func (m *MarketingSync) now() time.Time {
	if m.Clock == nil {
		return time.Now()
	}
	return m.Clock.Now()
}
