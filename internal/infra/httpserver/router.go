package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/application/billing"
	"github.com/bryanwahyu/wunderbrand/internal/application/diagnostics"
	"github.com/bryanwahyu/wunderbrand/internal/application/engagement"
	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
	"github.com/bryanwahyu/wunderbrand/internal/domain/questionnaire"
	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
	"github.com/bryanwahyu/wunderbrand/internal/middleware"
)

// Options wires the router. Billing may be nil when Stripe is not configured;
// its routes are then not mounted.
type Options struct {
	Diagnostics *diagnostics.Service
	Billing     *billing.Service
	Engagement  *engagement.Service
	Catalog     *questionnaire.Catalog

	Log         *zap.Logger
	Metrics     *middleware.Metrics
	RateLimiter *middleware.RateLimiter
	Health      map[string]middleware.HealthChecker

	APIKeys        []string
	AllowedOrigins []string
}

type Router struct {
	diagnostics *diagnostics.Service
	billing     *billing.Service
	engagement  *engagement.Service
	catalog     *questionnaire.Catalog
	log         *zap.Logger
}

func NewRouter(o Options) http.Handler {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		diagnostics: o.Diagnostics,
		billing:     o.Billing,
		engagement:  o.Engagement,
		catalog:     o.Catalog,
		log:         log,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(log))
	mux.Use(chimw.Recoverer)
	if o.Metrics != nil {
		mux.Use(o.Metrics.Middleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(o.Health))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler)
	if o.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", o.Metrics.Handler())
	}

	// Webhooks authenticate by signature, not API key.
	mux.Route("/webhooks", func(rt chi.Router) {
		if r.billing != nil {
			rt.Post("/stripe", r.wrap(r.handleStripeWebhook))
		}
		rt.Post("/calendly", r.wrap(r.handleCalendlyWebhook))
	})

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(o.APIKeys))
		if o.RateLimiter != nil {
			rt.Use(o.RateLimiter.Middleware)
		}

		rt.Get("/questions", r.wrap(r.handleQuestions))
		rt.Post("/questions/next", r.wrap(r.handleNextQuestion))

		rt.Post("/reports", r.wrap(r.handleGenerate))
		rt.Get("/reports/latest", r.wrap(r.handleLatest))
		rt.Get("/reports/{tier}/{id}", r.wrap(r.handleGet))
		rt.Get("/reports/{tier}/{id}/pdf", r.wrap(r.handleDocument))
		rt.Post("/reports/{tier}/{id}/refresh", r.wrap(r.handleRefresh))

		rt.Get("/entitlements", r.wrap(r.handleEntitlement))

		if r.billing != nil {
			rt.Post("/checkout", r.wrap(r.handleCheckout))
		}

		rt.Post("/contacts/sync", r.wrap(r.handleContactSync))
		rt.Post("/surveys", r.wrap(r.handleSurvey))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest marks request decoding and parameter errors.
var errBadRequest = errors.New("bad request")

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			r.log.Error("request failed",
				zap.String("path", req.URL.Path),
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.Error(err),
			)
			msg = "internal error"
		}
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, application.ErrInvalidInput),
		errors.Is(err, tier.ErrUnknownTier),
		errors.Is(err, questionnaire.ErrMissingAnswer),
		errors.Is(err, questionnaire.ErrUnknownQuestion),
		errors.Is(err, questionnaire.ErrAnswerTooLong),
		errors.Is(err, followups.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reports.ErrNotFound),
		errors.Is(err, entitlements.ErrNotFound),
		errors.Is(err, followups.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, application.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

const maxBody = 1 << 20

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
