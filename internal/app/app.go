// Package app wires configuration into repositories, adapters and services.
// Both cmd/api and cmd/wunderctl build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/application/billing"
	"github.com/bryanwahyu/wunderbrand/internal/application/diagnostics"
	"github.com/bryanwahyu/wunderbrand/internal/application/engagement"
	"github.com/bryanwahyu/wunderbrand/internal/application/jobs"
	"github.com/bryanwahyu/wunderbrand/internal/config"
	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/questionnaire"
	"github.com/bryanwahyu/wunderbrand/internal/infra/activecampaign"
	"github.com/bryanwahyu/wunderbrand/internal/infra/ai/gemini"
	"github.com/bryanwahyu/wunderbrand/internal/infra/ai/openai"
	"github.com/bryanwahyu/wunderbrand/internal/infra/calendly"
	"github.com/bryanwahyu/wunderbrand/internal/infra/db"
	"github.com/bryanwahyu/wunderbrand/internal/infra/httpserver"
	"github.com/bryanwahyu/wunderbrand/internal/infra/payments"
	"github.com/bryanwahyu/wunderbrand/internal/infra/pdf"
	"github.com/bryanwahyu/wunderbrand/internal/infra/storage"
	"github.com/bryanwahyu/wunderbrand/internal/middleware"
)

type App struct {
	Config  *config.Config
	Log     *zap.Logger
	DB      *sql.DB
	Dialect db.Dialect
	Store   *storage.Store
	Metrics *middleware.Metrics
	Catalog *questionnaire.Catalog

	Diagnostics *diagnostics.Service
	Billing     *billing.Service // nil when Stripe is not configured
	Engagement  *engagement.Service
	Scheduler   *jobs.Scheduler

	jobs []scheduled
}

// Build connects to the database and object store and assembles the services.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Dialect: db.Dialect(cfg.Database.Driver)}

	conn, err := db.Connect(ctx, a.Dialect, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.DB = conn
	if cfg.Server.AutoMigrate {
		if err := db.Migrate(ctx, conn, a.Dialect); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	a.Store, err = storage.New(ctx, storage.Options{
		Endpoint:  cfg.Minio.Endpoint,
		Region:    cfg.Minio.Region,
		Bucket:    cfg.Minio.BucketName,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
		Prefix:    cfg.Minio.Prefix,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}

	llm, err := newAIClient(ctx, cfg.AI)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	a.Catalog, err = questionnaire.Default()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("question catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = middleware.NewMetrics(reg)

	a.wire(llm)
	return a, nil
}

func (a *App) wire(llm ai.Client) {
	cfg, log := a.Config, a.Log
	clock := application.SystemClock{}

	reportRepo := db.NewReportRepository(a.DB, a.Dialect)
	entRepo := db.NewEntitlementRepository(a.DB, a.Dialect)
	purchaseRepo := db.NewPurchaseRepository(a.DB, a.Dialect)
	sessionRepo := db.NewSessionRepository(a.DB, a.Dialect)
	failureRepo := db.NewSyncFailureRepository(a.DB, a.Dialect)

	var syncer marketing.Syncer = disabledSyncer{log: log}
	if cfg.ActiveCampaign.Enabled() {
		syncer = activecampaign.NewClient(cfg.ActiveCampaign.BaseURL, cfg.ActiveCampaign.Token, log,
			activecampaign.WithConcurrency(cfg.ActiveCampaign.Concurrency))
	}
	mkt := &application.MarketingSync{
		Syncer:   syncer,
		Failures: failureRepo,
		Metrics:  a.Metrics,
		Log:      log.Named("marketing"),
		Clock:    clock,
	}

	a.Diagnostics = &diagnostics.Service{
		Reports:      reportRepo,
		Generations:  db.NewGenerationRepository(a.DB, a.Dialect),
		Documents:    a.Store,
		Renderer:     pdf.NewRenderer("WunderBrand"),
		Entitlements: entRepo,
		Purchases:    purchaseRepo,
		AI:           llm,
		Catalog:      a.Catalog,
		Marketing:    mkt,
		Metrics:      a.Metrics,
		Log:          log.Named("diagnostics"),
		Clock:        clock,
		Retry: application.RetryPolicy{
			MaxAttempts:     uint64(cfg.AI.MaxRetries),
			InitialInterval: cfg.AI.RetryInitial,
			MaxInterval:     application.DefaultRetryPolicy.MaxInterval,
		},
		PublicURL:  cfg.Server.PublicURL,
		LinkExpiry: cfg.Minio.LinkExpiry,
	}

	if cfg.Stripe.Enabled() {
		a.Billing = &billing.Service{
			Gateway: payments.NewGateway(payments.Config{
				SecretKey:     cfg.Stripe.SecretKey,
				WebhookSecret: cfg.Stripe.WebhookSecret,
				Prices:        cfg.StripePrices(),
				SuccessURL:    cfg.Stripe.SuccessURL,
				CancelURL:     cfg.Stripe.CancelURL,
			}),
			Purchases:    purchaseRepo,
			Entitlements: entRepo,
			Marketing:    mkt,
			Metrics:      a.Metrics,
			Log:          log.Named("billing"),
			Clock:        clock,
		}
	}

	a.Engagement = &engagement.Service{
		Verifier:  calendly.NewVerifier(cfg.Calendly.SigningKey, cfg.Calendly.Tolerance),
		Sessions:  sessionRepo,
		Surveys:   db.NewSurveyRepository(a.DB, a.Dialect),
		Syncer:    syncer,
		Marketing: mkt,
		Metrics:   a.Metrics,
		Log:       log.Named("engagement"),
		Clock:     clock,
	}

	jobLog := log.Named("jobs")
	a.Scheduler = jobs.NewScheduler(jobLog)
	a.jobs = []scheduled{
		{cfg.Jobs.EntitlementSweep, &jobs.EntitlementSweeper{Entitlements: entRepo, Clock: clock, Log: jobLog}},
		{cfg.Jobs.FollowupNudge, &jobs.FollowupNudge{
			Reports: reportRepo, Sessions: sessionRepo, Marketing: mkt,
			Clock: clock, Log: jobLog, Age: cfg.Jobs.NudgeAge,
		}},
		{cfg.Jobs.SyncRetry, &jobs.SyncRetry{
			Failures: failureRepo, Marketing: mkt, Clock: clock, Log: jobLog,
			MaxAttempts: cfg.Jobs.SyncMaxAttempts,
		}},
	}
}

type scheduled struct {
	spec string
	job  jobs.Job
}

// ScheduleJobs registers the jobs on the scheduler. With cron false every job
// is registered for RunOnce only.
func (a *App) ScheduleJobs(ctx context.Context, cron bool) error {
	for _, s := range a.jobs {
		spec := s.spec
		if !cron {
			spec = ""
		}
		if err := a.Scheduler.Add(ctx, spec, s.job); err != nil {
			return fmt.Errorf("schedule %s: %w", s.job.Name(), err)
		}
	}
	return nil
}

// Handler builds the HTTP router. The rate limiter's sweeper stops with ctx.
func (a *App) Handler(ctx context.Context) http.Handler {
	cfg := a.Config
	return httpserver.NewRouter(httpserver.Options{
		Diagnostics: a.Diagnostics,
		Billing:     a.Billing,
		Engagement:  a.Engagement,
		Catalog:     a.Catalog,
		Log:         a.Log.Named("http"),
		Metrics:     a.Metrics,
		RateLimiter: middleware.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		Health: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: a.DB},
			"storage":  middleware.CheckFunc(a.Store.Ping),
		},
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
}

func (a *App) Close() error {
	return a.DB.Close()
}

func newAIClient(ctx context.Context, c config.AI) (ai.Client, error) {
	switch c.Provider {
	case "openai":
		if c.OpenAIBase != "" {
			return openai.NewClientWithBaseURL(c.OpenAIKey, c.Model, c.OpenAIBase), nil
		}
		return openai.NewClient(c.OpenAIKey, c.Model), nil
	case "gemini":
		cli, err := gemini.NewClient(ctx, c.GeminiKey, c.Model)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return cli, nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", c.Provider)
}

// disabledSyncer stands in for ActiveCampaign in local runs.
type disabledSyncer struct{ log *zap.Logger }

func (d disabledSyncer) Sync(_ context.Context, c marketing.Contact, tags []string) (marketing.SyncResult, error) {
	d.log.Debug("marketing sync disabled", zap.String("email", c.Email), zap.Strings("tags", tags))
	return marketing.SyncResult{TagsApplied: tags}, nil
}
