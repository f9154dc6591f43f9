package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/application/apptest"
	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/purchases"
	"github.com/bryanwahyu/wunderbrand/internal/domain/questionnaire"
	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const llmResponse = `{
  "summary": "Strong offer, low visibility.",
  "pillar_scores": {"positioning": 15, "messaging": 14, "visibility": 6, "credibility": 12, "conversion": 13},
  "insights": [{"pillar": "visibility", "summary": "Hard to find online.", "opportunity": "Own one channel."}],
  "recommendations": ["Post weekly"],
  "blueprint": {"positioning_statement": "For founders", "messaging_pillars": ["clarity"], "brand_voice": "warm", "audience_profile": "SMB"}
}`

type fixture struct {
	svc       *Service
	reports   *apptest.Reports
	gens      *apptest.Generations
	docs      *apptest.Documents
	ents      *apptest.Entitlements
	purchases *apptest.Purchases
	ai        *apptest.AI
	syncer    *apptest.Syncer
	failures  *apptest.SyncFailures
	clock     *apptest.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := questionnaire.Default()
	require.NoError(t, err)

	f := &fixture{
		reports:   apptest.NewReports(),
		gens:      &apptest.Generations{},
		docs:      apptest.NewDocuments(),
		ents:      apptest.NewEntitlements(),
		purchases: apptest.NewPurchases(),
		ai:        &apptest.AI{Responses: []string{llmResponse}},
		syncer:    &apptest.Syncer{},
		failures:  &apptest.SyncFailures{},
		clock:     &apptest.FixedClock{T: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.svc = &Service{
		Reports:      f.reports,
		Generations:  f.gens,
		Documents:    f.docs,
		Renderer:     &apptest.Renderer{},
		Entitlements: f.ents,
		Purchases:    f.purchases,
		AI:           f.ai,
		Catalog:      catalog,
		Marketing: &application.MarketingSync{
			Syncer:   f.syncer,
			Failures: f.failures,
			Log:      zap.NewNop(),
			Clock:    f.clock,
		},
		Log:       zap.NewNop(),
		Clock:     f.clock,
		Retry:     application.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond},
		PublicURL: "https://wunderbrand.test/",
	}
	return f
}

func answersFor(c *questionnaire.Catalog, t tier.Tier) map[string]string {
	out := map[string]string{}
	for _, q := range c.ForTier(t) {
		out[q.ID] = "answer to " + q.ID
	}
	return out
}

func (f *fixture) command(t tier.Tier) GenerateCommand {
	return GenerateCommand{
		Tier:    string(t),
		Email:   " Founder@Example.com ",
		Name:    "Ada Lovelace",
		Company: "Analytical",
		Answers: answersFor(f.svc.Catalog, t),
	}
}

func TestGenerateSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Generate(ctx, f.command(tier.Snapshot))
	require.NoError(t, err)

	assert.Equal(t, "founder@example.com", r.Email)
	assert.Equal(t, 60, r.Score)
	assert.Equal(t, scoring.PillarVisibility, r.PrimaryPillar)
	assert.Equal(t, scoring.BandMixed, r.Band)
	assert.Nil(t, r.Blueprint, "snapshot never carries blueprint content")

	stored, err := f.reports.Get(ctx, tier.Snapshot, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "snapshot/"+string(r.ID)+".pdf", stored.PDFKey)
	assert.Contains(t, f.docs.Objects, stored.PDFKey)

	require.Len(t, f.gens.Rows, 1)
	assert.Equal(t, r.ID, f.gens.Rows[0].ReportID)
	assert.Equal(t, 42, f.gens.Rows[0].TokensUsed)

	ent, err := f.ents.Get(ctx, "founder@example.com", tier.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, f.clock.T.Add(30*24*time.Hour), ent.WindowEnd)

	require.Len(t, f.syncer.Calls, 1)
	call := f.syncer.Calls[0]
	assert.Equal(t, []string{"wb-snapshot-completed", "wb-primary-visibility"}, call.Tags)
	assert.Equal(t, "Ada", call.Contact.FirstName)
	assert.Equal(t, "60", call.Contact.Fields[marketing.FieldScore])
	assert.Equal(t, "https://wunderbrand.test/results/snapshot/"+string(r.ID), call.Contact.Fields[marketing.FieldReportURL])
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t)

	cmd := f.command(tier.Snapshot)
	cmd.Tier = "platinum"
	_, err := f.svc.Generate(context.Background(), cmd)
	assert.ErrorIs(t, err, application.ErrInvalidInput)

	cmd = f.command(tier.Snapshot)
	cmd.Email = "not-an-email"
	_, err = f.svc.Generate(context.Background(), cmd)
	assert.ErrorIs(t, err, application.ErrInvalidInput)

	cmd = f.command(tier.Snapshot)
	delete(cmd.Answers, "business_name")
	_, err = f.svc.Generate(context.Background(), cmd)
	assert.ErrorIs(t, err, application.ErrInvalidInput)
	assert.ErrorIs(t, err, questionnaire.ErrMissingAnswer)

	assert.Empty(t, f.ai.Requests)
}

func TestGeneratePaidTierRequiresPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, f.command(tier.Blueprint))
	assert.ErrorIs(t, err, application.ErrForbidden)

	_, _ = f.purchases.Save(ctx, &purchases.Purchase{SessionID: "cs_1", Email: "founder@example.com", Tier: tier.BlueprintPlus})
	r, err := f.svc.Generate(ctx, f.command(tier.Blueprint))
	require.NoError(t, err)
	require.NotNil(t, r.Blueprint)
	assert.Equal(t, "For founders", r.Blueprint.PositioningStatement)
}

func TestGenerateRetriesAndMapsErrors(t *testing.T) {
	f := newFixture(t)
	f.ai.Errs = []error{errors.New("timeout")}

	_, err := f.svc.Generate(context.Background(), f.command(tier.Snapshot))
	require.NoError(t, err)
	assert.Len(t, f.ai.Requests, 2)

	f.ai.Errs = []error{errors.New("boom"), errors.New("boom")}
	_, err = f.svc.Generate(context.Background(), f.command(tier.Snapshot))
	assert.ErrorIs(t, err, application.ErrUpstream)

	f.ai.Errs = []error{fmt.Errorf("%w: rate", ai.ErrQuotaExceeded)}
	_, err = f.svc.Generate(context.Background(), f.command(tier.Snapshot))
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
	assert.NotErrorIs(t, err, application.ErrUpstream)

	f.ai.Responses = []string{"I cannot do that"}
	_, err = f.svc.Generate(context.Background(), f.command(tier.Snapshot))
	assert.ErrorIs(t, err, application.ErrUpstream)
	assert.ErrorIs(t, err, reports.ErrMalformedContent)
}

func TestGenerateSurvivesUploadAndSyncFailures(t *testing.T) {
	f := newFixture(t)
	f.docs.Err = errors.New("minio down")
	f.syncer.Err = errors.New("activecampaign down")

	r, err := f.svc.Generate(context.Background(), f.command(tier.Snapshot))
	require.NoError(t, err)
	assert.Empty(t, r.PDFKey)

	require.Len(t, f.failures.Rows, 1)
	assert.Equal(t, "founder@example.com", f.failures.Rows[0].Email)
	assert.Contains(t, f.failures.Rows[0].DetailsJSON, "wb-snapshot-completed")

	_, err = f.svc.DocumentURL(context.Background(), tier.Snapshot, r.ID)
	assert.ErrorIs(t, err, reports.ErrNotFound)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.purchases.Save(ctx, &purchases.Purchase{SessionID: "cs_1", Email: "founder@example.com", Tier: tier.SnapshotPlus})

	r, err := f.svc.Generate(ctx, f.command(tier.SnapshotPlus))
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	refreshed, err := f.svc.Refresh(ctx, tier.SnapshotPlus, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.RefreshCount)
	assert.Equal(t, "Strong offer, low visibility.", f.ai.Requests[1].Previous)

	ent, err := f.ents.Get(ctx, "founder@example.com", tier.SnapshotPlus)
	require.NoError(t, err)
	assert.Equal(t, 1, ent.RefreshesUsed)

	_, err = f.svc.Refresh(ctx, tier.SnapshotPlus, r.ID)
	assert.ErrorIs(t, err, application.ErrForbidden)
	assert.ErrorIs(t, err, entitlements.ErrNoRefreshesLeft)
}

func TestRefreshIsChargedOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.purchases.Save(ctx, &purchases.Purchase{SessionID: "cs_1", Email: "founder@example.com", Tier: tier.SnapshotPlus})

	r, err := f.svc.Generate(ctx, f.command(tier.SnapshotPlus))
	require.NoError(t, err)
	calls := len(f.ai.Requests)

	f.ents.SaveErr = errors.New("db down")
	for i := 0; i < 3; i++ {
		_, err = f.svc.Refresh(ctx, tier.SnapshotPlus, r.ID)
		require.Error(t, err)
	}
	assert.Len(t, f.ai.Requests, calls, "no LLM call without a recorded refresh")
	stored, err := f.reports.Get(ctx, tier.SnapshotPlus, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RefreshCount)

	f.ents.SaveErr = nil
	f.reports.SaveErr = errors.New("db down")
	_, err = f.svc.Refresh(ctx, tier.SnapshotPlus, r.ID)
	require.Error(t, err)
	ent, err := f.ents.Get(ctx, "founder@example.com", tier.SnapshotPlus)
	require.NoError(t, err)
	assert.Equal(t, 0, ent.RefreshesUsed, "refresh returned when the report is not saved")

	f.reports.SaveErr = nil
	f.ai.Errs = []error{fmt.Errorf("%w: rate", ai.ErrQuotaExceeded)}
	_, err = f.svc.Refresh(ctx, tier.SnapshotPlus, r.ID)
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
	ent, err = f.ents.Get(ctx, "founder@example.com", tier.SnapshotPlus)
	require.NoError(t, err)
	assert.Equal(t, 0, ent.RefreshesUsed)

	refreshed, err := f.svc.Refresh(ctx, tier.SnapshotPlus, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.RefreshCount)
	ent, err = f.ents.Get(ctx, "founder@example.com", tier.SnapshotPlus)
	require.NoError(t, err)
	assert.Equal(t, 1, ent.RefreshesUsed)
}

func TestRefreshSnapshotNotEntitled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Generate(ctx, f.command(tier.Snapshot))
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, tier.Snapshot, r.ID)
	assert.ErrorIs(t, err, application.ErrForbidden)
	assert.ErrorIs(t, err, entitlements.ErrNotEntitled)
}

func TestRefreshBlueprintPlusUnlimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.purchases.Save(ctx, &purchases.Purchase{SessionID: "cs_9", Email: "founder@example.com", Tier: tier.BlueprintPlus})

	r, err := f.svc.Generate(ctx, f.command(tier.BlueprintPlus))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Hour)
		_, err = f.svc.Refresh(ctx, tier.BlueprintPlus, r.ID)
		require.NoError(t, err)
	}

	f.clock.Advance(366 * 24 * time.Hour)
	_, err = f.svc.Refresh(ctx, tier.BlueprintPlus, r.ID)
	assert.ErrorIs(t, err, entitlements.ErrWindowClosed)
}

func TestDocumentURL(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Generate(context.Background(), f.command(tier.Snapshot))
	require.NoError(t, err)

	url, err := f.svc.DocumentURL(context.Background(), tier.Snapshot, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/snapshot/"+string(r.ID)+".pdf?sig=x", url)

	_, err = f.svc.DocumentURL(context.Background(), tier.Snapshot, "missing")
	assert.ErrorIs(t, err, reports.ErrNotFound)
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ada King Lovelace")
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "King Lovelace", last)

	first, last = SplitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)
}
