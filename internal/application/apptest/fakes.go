// Package apptest holds in-memory port implementations for service tests.
package apptest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/purchases"
	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/syncfailures"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// FixedClock always returns T.
type FixedClock struct{ T time.Time }

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// ==== reports ====

// Reports is an in-memory report store. A non-nil SaveErr fails Save.
type Reports struct {
	mu      sync.Mutex
	rows    map[reports.ReportID]reports.Report
	nudged  map[reports.ReportID]time.Time
	SaveErr error
}

func NewReports() *Reports {
	return &Reports{rows: map[reports.ReportID]reports.Report{}, nudged: map[reports.ReportID]time.Time{}}
}

func (f *Reports) Save(_ context.Context, r *reports.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.rows[r.ID] = *r
	return nil
}

func (f *Reports) Get(_ context.Context, t tier.Tier, id reports.ReportID) (*reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Tier != t {
		return nil, reports.ErrNotFound
	}
	return &r, nil
}

func (f *Reports) LatestByEmail(_ context.Context, t tier.Tier, email string) (*reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out *reports.Report
	for _, r := range f.rows {
		if r.Tier == t && r.Email == email && (out == nil || r.CreatedAt.After(out.CreatedAt)) {
			r := r
			out = &r
		}
	}
	if out == nil {
		return nil, reports.ErrNotFound
	}
	return out, nil
}

// ListWithoutFollowup ignores bookings; pair with Sessions when that matters.
func (f *Reports) ListWithoutFollowup(_ context.Context, t tier.Tier, olderThan time.Time, limit int) ([]*reports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reports.Report
	for _, r := range f.rows {
		if _, done := f.nudged[r.ID]; done {
			continue
		}
		if r.Tier == t && r.CreatedAt.Before(olderThan) {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Reports) MarkNudged(_ context.Context, _ tier.Tier, ids []reports.ReportID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.nudged[id] = at
	}
	return nil
}

// Nudged reports whether id was stamped by MarkNudged.
func (f *Reports) Nudged(id reports.ReportID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nudged[id]
	return ok
}

func (f *Reports) UpdatePDFKey(_ context.Context, t tier.Tier, id reports.ReportID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return reports.ErrNotFound
	}
	r.PDFKey = key
	f.rows[id] = r
	return nil
}

type Generations struct {
	mu   sync.Mutex
	Rows []reports.Generation
}

func (f *Generations) Save(_ context.Context, g *reports.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rows = append(f.Rows, *g)
	return nil
}

func (f *Generations) LatestByReport(_ context.Context, id reports.ReportID) (*reports.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Rows) - 1; i >= 0; i-- {
		if f.Rows[i].ReportID == id {
			g := f.Rows[i]
			return &g, nil
		}
	}
	return nil, reports.ErrNotFound
}

// Documents is an in-memory object store.
type Documents struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewDocuments() *Documents { return &Documents{Objects: map[string][]byte{}} }

func (f *Documents) PutDocument(_ context.Context, key string, data []byte, _ string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Objects[key] = data
	return nil
}

func (f *Documents) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.test/" + key + "?sig=x", nil
}

// Renderer returns a fixed byte slice.
type Renderer struct{ Calls int }

func (f *Renderer) Render(r *reports.Report) ([]byte, error) {
	f.Calls++
	return []byte("%PDF-" + string(r.ID)), nil
}

// ==== entitlements / purchases ====

// Entitlements is an in-memory entitlement store. A non-nil SaveErr fails Save.
type Entitlements struct {
	mu      sync.Mutex
	rows    map[string]entitlements.Entitlement
	SaveErr error
}

func NewEntitlements() *Entitlements {
	return &Entitlements{rows: map[string]entitlements.Entitlement{}}
}

func entKey(email string, t tier.Tier) string { return email + "|" + string(t) }

func (f *Entitlements) Get(_ context.Context, email string, t tier.Tier) (*entitlements.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[entKey(email, t)]
	if !ok {
		return nil, entitlements.ErrNotFound
	}
	return &e, nil
}

func (f *Entitlements) Save(_ context.Context, e *entitlements.Entitlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.rows[entKey(e.Email, e.Tier)] = *e
	return nil
}

func (f *Entitlements) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, e := range f.rows {
		if !e.Expired && e.WindowEnd.Before(now) {
			e.Expired = true
			f.rows[k] = e
			n++
		}
	}
	return n, nil
}

type Purchases struct {
	mu   sync.Mutex
	Rows map[string]purchases.Purchase
}

func NewPurchases() *Purchases { return &Purchases{Rows: map[string]purchases.Purchase{}} }

func (f *Purchases) Save(_ context.Context, p *purchases.Purchase) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Rows[p.SessionID]; ok {
		return false, nil
	}
	f.Rows[p.SessionID] = *p
	return true, nil
}

func (f *Purchases) Exists(_ context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Rows[sessionID]
	return ok, nil
}

func (f *Purchases) HasTier(_ context.Context, email string, t tier.Tier) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Rows {
		if p.Email == email && p.Tier.AtLeast(t) {
			return true, nil
		}
	}
	return false, nil
}

// ==== followups ====

// Sessions stores bookings by invitee URI. A non-nil LookupErr fails ByInvitee.
type Sessions struct {
	mu        sync.Mutex
	Rows      map[string]followups.SessionFollowup
	LookupErr error
}

func NewSessions() *Sessions { return &Sessions{Rows: map[string]followups.SessionFollowup{}} }

func (f *Sessions) Save(_ context.Context, s *followups.SessionFollowup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rows[s.InviteeURI] = *s
	return nil
}

func (f *Sessions) ByInvitee(_ context.Context, uri string) (*followups.SessionFollowup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	s, ok := f.Rows[uri]
	if !ok {
		return nil, followups.ErrNotFound
	}
	return &s, nil
}

func (f *Sessions) MarkCanceled(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Rows[uri]
	if !ok {
		return followups.ErrNotFound
	}
	s.Status = followups.SessionCanceled
	f.Rows[uri] = s
	return nil
}

func (f *Sessions) HasBooking(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.Rows {
		if s.Email == email && s.Status == followups.SessionScheduled {
			return true, nil
		}
	}
	return false, nil
}

type Surveys struct {
	mu   sync.Mutex
	Rows []followups.Survey
}

func (f *Surveys) Save(_ context.Context, s *followups.Survey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rows = append(f.Rows, *s)
	return nil
}

func (f *Surveys) ListByEmail(_ context.Context, email string, limit int) ([]*followups.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*followups.Survey
	for i := len(f.Rows) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if f.Rows[i].Email == email {
			s := f.Rows[i]
			out = append(out, &s)
		}
	}
	return out, nil
}

// ==== marketing ====

// SyncCall is one recorded Syncer.Sync invocation.
type SyncCall struct {
	Contact marketing.Contact
	Tags    []string
}

// Syncer records calls. Err fails the whole sync; FailTags lists tags that
// come back in TagsFailed.
type Syncer struct {
	mu       sync.Mutex
	Calls    []SyncCall
	Err      error
	FailTags map[string]bool
}

func (f *Syncer) Sync(_ context.Context, c marketing.Contact, tags []string) (marketing.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, SyncCall{Contact: c, Tags: tags})
	if f.Err != nil {
		return marketing.SyncResult{}, f.Err
	}
	res := marketing.SyncResult{ContactID: "c-1"}
	for _, t := range tags {
		if f.FailTags[t] {
			res.TagsFailed = append(res.TagsFailed, t)
			continue
		}
		res.TagsApplied = append(res.TagsApplied, t)
	}
	return res, nil
}

// TagsFor returns every tag sent for email.
func (f *Syncer) TagsFor(email string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if c.Contact.Email == email {
			out = append(out, c.Tags...)
		}
	}
	return out
}

type SyncFailures struct {
	mu     sync.Mutex
	nextID int64
	Rows   []syncfailures.SyncFailure
}

func (f *SyncFailures) Save(_ context.Context, s *syncfailures.SyncFailure) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	f.Rows = append(f.Rows, *s)
	return nil
}

func (f *SyncFailures) ListUnresolved(_ context.Context, limit int) ([]*syncfailures.SyncFailure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*syncfailures.SyncFailure
	for i := range f.Rows {
		if f.Rows[i].ResolvedAt == nil && (limit <= 0 || len(out) < limit) {
			s := f.Rows[i]
			out = append(out, &s)
		}
	}
	return out, nil
}

func (f *SyncFailures) MarkResolved(_ context.Context, id int64, at time.Time) error {
	return f.update(id, func(s *syncfailures.SyncFailure) { s.ResolvedAt = &at })
}

func (f *SyncFailures) IncrementAttempts(_ context.Context, id int64) error {
	return f.update(id, func(s *syncfailures.SyncFailure) { s.Attempts++ })
}

func (f *SyncFailures) update(id int64, fn func(*syncfailures.SyncFailure)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Rows {
		if f.Rows[i].ID == id {
			fn(&f.Rows[i])
			return nil
		}
	}
	return errors.New("sync failure not found")
}

// ==== ai ====

// AI returns Responses in order, then repeats the last one. Errs are
// returned first, one per call.
type AI struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	Requests  []ai.GenerateRequest
}

func (f *AI) Generate(_ context.Context, req ai.GenerateRequest) (ai.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if len(f.Errs) > 0 {
		err := f.Errs[0]
		f.Errs = f.Errs[1:]
		return ai.GenerateResult{}, err
	}
	raw := f.Responses[0]
	if len(f.Responses) > 1 {
		f.Responses = f.Responses[1:]
	}
	return ai.GenerateResult{Raw: raw, Provider: "fake", Model: "fake-1", TokensUsed: 42}, nil
}
