package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/purchases"
	"github.com/bryanwahyu/wunderbrand/internal/domain/questionnaire"
	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const pdfContentType = "application/pdf"

// Service implements the diagnostic use-cases: generate, view, refresh and
// download a report. It is safe for concurrent use.
type Service struct {
	Reports      reports.Repository
	Generations  reports.GenerationRepository
	Documents    reports.DocumentStore
	Renderer     reports.Renderer
	Entitlements entitlements.Repository
	Purchases    purchases.Repository
	AI           ai.Client
	Catalog      *questionnaire.Catalog
	Marketing    *application.MarketingSync
	Metrics      application.Metrics
	Log          *zap.Logger
	Clock        application.Clock

	Retry application.RetryPolicy
	// PublicURL is the front-end origin used for report links in ActiveCampaign.
	PublicURL string
	// LinkExpiry is how long presigned PDF links stay valid.
	LinkExpiry time.Duration
}

//
// ==== USE CASES ====
//

type GenerateCommand struct {
	Tier    string            `json:"tier"`
	Email   string            `json:"email"`
	Name    string            `json:"name"`
	Company string            `json:"company"`
	Website string            `json:"website"`
	Answers map[string]string `json:"answers"`
}

func (c GenerateCommand) validate(catalog *questionnaire.Catalog) (tier.Tier, string, error) {
	t, err := tier.Parse(c.Tier)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	email, err := application.NormalizeEmail(c.Email)
	if err != nil {
		return "", "", err
	}
	if err := catalog.Validate(t, c.Answers); err != nil {
		return "", "", fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	return t, email, nil
}

// Generate runs the full pipeline for a new report.
func (s *Service) Generate(ctx context.Context, cmd GenerateCommand) (*reports.Report, error) {
	t, email, err := cmd.validate(s.Catalog)
	if err != nil {
		return nil, err
	}
	if t.Paid() {
		if err := s.requirePurchase(ctx, email, t); err != nil {
			return nil, err
		}
	}

	now := s.Clock.Now()
	r := &reports.Report{
		ID:        reports.ReportID(uuid.New().String()),
		Tier:      t,
		Email:     email,
		Name:      strings.TrimSpace(cmd.Name),
		Company:   strings.TrimSpace(cmd.Company),
		Website:   strings.TrimSpace(cmd.Website),
		Answers:   cmd.Answers,
		CreatedAt: now,
		UpdatedAt: now,
	}

	gen, err := s.generate(ctx, r, "")
	if err != nil {
		return nil, err
	}
	if err := s.Reports.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	s.saveGeneration(ctx, gen)
	s.storeDocument(ctx, r)

	if err := s.ensureEntitlement(ctx, email, t, now); err != nil {
		s.Log.Error("failed to grant entitlement", zap.String("report_id", string(r.ID)), zap.Error(err))
	}

	s.metrics().ReportGenerated(string(t))
	s.Log.Info("report generated",
		zap.String("report_id", string(r.ID)),
		zap.String("tier", string(t)),
		zap.Int("score", r.Score),
		zap.String("primary_pillar", string(r.PrimaryPillar)),
	)

	s.Marketing.Sync(ctx, s.contactFor(r), []string{
		marketing.TagCompleted(t.Slug()),
		marketing.TagPrimary(string(r.PrimaryPillar)),
	})
	return r, nil
}

// Get returns the stored report for the tier.
func (s *Service) Get(ctx context.Context, t tier.Tier, id reports.ReportID) (*reports.Report, error) {
	return s.Reports.Get(ctx, t, id)
}

// Refresh re-runs a report with its stored answers and consumes one refresh.
func (s *Service) Refresh(ctx context.Context, t tier.Tier, id reports.ReportID) (*reports.Report, error) {
	r, err := s.Reports.Get(ctx, t, id)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()

	ent, err := s.Entitlements.Get(ctx, r.Email, r.Tier)
	if errors.Is(err, entitlements.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", application.ErrForbidden, entitlements.ErrNotEntitled)
	}
	if err != nil {
		return nil, fmt.Errorf("load entitlement: %w", err)
	}
	before := *ent
	if err := ent.Consume(now); err != nil {
		return nil, fmt.Errorf("%w: %w", application.ErrForbidden, err)
	}
	// The refresh is spent before the LLM runs and handed back if the report
	// cannot be regenerated.
	if err := s.Entitlements.Save(ctx, ent); err != nil {
		return nil, fmt.Errorf("save entitlement: %w", err)
	}

	gen, err := s.generate(ctx, r, r.Summary)
	if err != nil {
		s.restoreEntitlement(ctx, &before)
		return nil, err
	}
	r.RefreshCount++
	r.UpdatedAt = now
	if err := s.Reports.Save(ctx, r); err != nil {
		s.restoreEntitlement(ctx, &before)
		return nil, fmt.Errorf("save report: %w", err)
	}
	s.saveGeneration(ctx, gen)
	s.storeDocument(ctx, r)

	s.Log.Info("report refreshed",
		zap.String("report_id", string(r.ID)),
		zap.Int("refresh_count", r.RefreshCount),
		zap.Int("refreshes_remaining", ent.Remaining()),
	)
	s.Marketing.Sync(ctx, s.contactFor(r), nil)
	return r, nil
}

func (s *Service) restoreEntitlement(ctx context.Context, ent *entitlements.Entitlement) {
	if err := s.Entitlements.Save(ctx, ent); err != nil {
		s.Log.Error("failed to return refresh",
			zap.String("email", ent.Email),
			zap.String("tier", string(ent.Tier)),
			zap.Error(err),
		)
	}
}

// DocumentURL returns a presigned link to the report PDF.
func (s *Service) DocumentURL(ctx context.Context, t tier.Tier, id reports.ReportID) (string, error) {
	r, err := s.Reports.Get(ctx, t, id)
	if err != nil {
		return "", err
	}
	if !r.Tier.Allows(tier.FeaturePDF) || r.PDFKey == "" {
		return "", fmt.Errorf("%w: no document for report %s", reports.ErrNotFound, id)
	}
	url, err := s.Documents.PresignedURL(ctx, r.PDFKey, s.linkExpiry())
	if err != nil {
		return "", fmt.Errorf("%w: presign document: %w", application.ErrUpstream, err)
	}
	return url, nil
}

// Entitlement returns the refresh allowance for email at t.
func (s *Service) Entitlement(ctx context.Context, email string, t tier.Tier) (*entitlements.Entitlement, error) {
	email, err := application.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.Entitlements.Get(ctx, email, t)
}

// LatestReport finds the newest report email produced at t.
func (s *Service) LatestReport(ctx context.Context, email string, t tier.Tier) (*reports.Report, error) {
	email, err := application.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.Reports.LatestByEmail(ctx, t, email)
}

//
// ==== HELPERS ====
//

func (s *Service) requirePurchase(ctx context.Context, email string, t tier.Tier) error {
	ok, err := s.Purchases.HasTier(ctx, email, t)
	if err != nil {
		return fmt.Errorf("check purchase: %w", err)
	}
	if ok {
		return nil
	}
	ent, err := s.Entitlements.Get(ctx, email, t)
	if err == nil && ent.Active(s.Clock.Now()) {
		return nil
	}
	if err != nil && !errors.Is(err, entitlements.ErrNotFound) {
		return fmt.Errorf("check entitlement: %w", err)
	}
	return fmt.Errorf("%w: %s has not been purchased", application.ErrForbidden, t.Title())
}

// generate calls the LLM and applies the parsed content to r.
func (s *Service) generate(ctx context.Context, r *reports.Report, previous string) (*reports.Generation, error) {
	req := ai.GenerateRequest{
		Tier:       r.Tier,
		Company:    r.Company,
		Website:    r.Website,
		Transcript: s.Catalog.Transcript(r.Tier, r.Answers),
		Previous:   previous,
	}

	start := time.Now()
	res, err := application.WithRetry(ctx, s.Retry, func(ctx context.Context) (ai.GenerateResult, error) {
		return s.AI.Generate(ctx, req)
	})
	s.metrics().ObserveLLM(res.Provider, time.Since(start), err)
	if err != nil {
		if errors.Is(err, ai.ErrQuotaExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: generate content: %w", application.ErrUpstream, err)
	}

	content, err := reports.ParseContent(res.Raw)
	if err != nil {
		s.Log.Warn("unparseable llm response",
			zap.String("report_id", string(r.ID)),
			zap.String("model", res.Model),
			zap.Int("raw_len", len(res.Raw)),
		)
		return nil, fmt.Errorf("%w: %w", application.ErrUpstream, err)
	}
	r.Apply(content)

	return &reports.Generation{
		ID:         uuid.New().String(),
		ReportID:   r.ID,
		Tier:       r.Tier,
		Provider:   res.Provider,
		Model:      res.Model,
		Raw:        res.Raw,
		TokensUsed: res.TokensUsed,
		CreatedAt:  s.Clock.Now(),
	}, nil
}

func (s *Service) saveGeneration(ctx context.Context, g *reports.Generation) {
	if s.Generations == nil {
		return
	}
	if err := s.Generations.Save(ctx, g); err != nil {
		s.Log.Warn("failed to save generation", zap.String("report_id", string(g.ReportID)), zap.Error(err))
	}
}

// storeDocument renders and uploads the PDF. A failure leaves the report
// without a document; it can be re-rendered by a refresh.
func (s *Service) storeDocument(ctx context.Context, r *reports.Report) {
	if !r.Tier.Allows(tier.FeaturePDF) || s.Renderer == nil || s.Documents == nil {
		return
	}
	data, err := s.Renderer.Render(r)
	if err != nil {
		s.Log.Error("failed to render pdf", zap.String("report_id", string(r.ID)), zap.Error(err))
		return
	}
	key := DocumentKey(r)
	if err := s.Documents.PutDocument(ctx, key, data, pdfContentType); err != nil {
		s.Log.Error("failed to upload pdf", zap.String("report_id", string(r.ID)), zap.Error(err))
		return
	}
	if err := s.Reports.UpdatePDFKey(ctx, r.Tier, r.ID, key); err != nil {
		s.Log.Error("failed to record pdf key", zap.String("report_id", string(r.ID)), zap.Error(err))
		return
	}
	r.PDFKey = key
}

func (s *Service) ensureEntitlement(ctx context.Context, email string, t tier.Tier, now time.Time) error {
	_, err := s.Entitlements.Get(ctx, email, t)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entitlements.ErrNotFound) {
		return err
	}
	return s.Entitlements.Save(ctx, entitlements.Grant(email, t, now))
}

func (s *Service) contactFor(r *reports.Report) marketing.Contact {
	first, last := SplitName(r.Name)
	fields := map[string]string{
		marketing.FieldScore:         strconv.Itoa(r.Score),
		marketing.FieldPrimaryPillar: r.PrimaryPillar.Title(),
		marketing.FieldTier:          r.Tier.Title(),
	}
	if r.Company != "" {
		fields[marketing.FieldCompany] = r.Company
	}
	if s.PublicURL != "" {
		fields[marketing.FieldReportURL] = ReportURL(s.PublicURL, r.Tier, r.ID)
	}
	return marketing.Contact{Email: r.Email, FirstName: first, LastName: last, Fields: fields}
}

func (s *Service) linkExpiry() time.Duration {
	if s.LinkExpiry <= 0 {
		return 15 * time.Minute
	}
	return s.LinkExpiry
}

func (s *Service) metrics() application.Metrics {
	if s.Metrics == nil {
		return application.NopMetrics{}
	}
	return s.Metrics
}

// DocumentKey is the object key of a report PDF: <tier-slug>/<id>.pdf.
func DocumentKey(r *reports.Report) string {
	return fmt.Sprintf("%s/%s.pdf", r.Tier.Slug(), r.ID)
}

// ReportURL is the front-end link for a report.
func ReportURL(base string, t tier.Tier, id reports.ReportID) string {
	return fmt.Sprintf("%s/results/%s/%s", strings.TrimRight(base, "/"), t.Slug(), id)
}

// SplitName splits "Ada King Lovelace" into "Ada" and "King Lovelace".
func SplitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}
