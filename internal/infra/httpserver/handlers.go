package httpserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/wunderbrand/internal/application/billing"
	"github.com/bryanwahyu/wunderbrand/internal/application/diagnostics"
	"github.com/bryanwahyu/wunderbrand/internal/application/engagement"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/questionnaire"
	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
	"github.com/bryanwahyu/wunderbrand/internal/infra/calendly"
	"github.com/bryanwahyu/wunderbrand/internal/middleware"
)

// GET /v1/questions?tier=snapshot
func (r *Router) handleQuestions(w http.ResponseWriter, req *http.Request) error {
	t, err := tierParam(req.URL.Query().Get("tier"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"tier":      t,
		"questions": r.catalog.ForTier(t),
	})
}

// POST /v1/questions/next
// Body: {"tier": "snapshot", "answers": {"q1": "..."}}
func (r *Router) handleNextQuestion(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Tier    string                `json:"tier"`
		Answers questionnaire.Answers `json:"answers"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	t, err := tierParam(body.Tier)
	if err != nil {
		return err
	}
	q, done := r.catalog.Next(t, body.Answers)
	answered, total := r.catalog.Progress(t, body.Answers)
	return writeJSON(w, http.StatusOK, map[string]any{
		"done":     done,
		"question": q,
		"answered": answered,
		"total":    total,
	})
}

// POST /v1/reports
func (r *Router) handleGenerate(w http.ResponseWriter, req *http.Request) error {
	var cmd diagnostics.GenerateCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	for k, v := range cmd.Answers {
		cmd.Answers[k] = middleware.SanitizeString(v)
	}
	rep, err := r.diagnostics.Generate(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, rep.View())
}

// GET /v1/reports/latest?email=&tier=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	t, err := tierParam(q.Get("tier"))
	if err != nil {
		return err
	}
	if err := middleware.ValidateEmail(q.Get("email")); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	rep, err := r.diagnostics.LatestReport(req.Context(), q.Get("email"), t)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep.View())
}

// GET /v1/reports/{tier}/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	t, id, err := reportParams(req)
	if err != nil {
		return err
	}
	rep, err := r.diagnostics.Get(req.Context(), t, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep.View())
}

// GET /v1/reports/{tier}/{id}/pdf redirects to a short-lived presigned link.
func (r *Router) handleDocument(w http.ResponseWriter, req *http.Request) error {
	t, id, err := reportParams(req)
	if err != nil {
		return err
	}
	url, err := r.diagnostics.DocumentURL(req.Context(), t, id)
	if err != nil {
		return err
	}
	http.Redirect(w, req, url, http.StatusFound)
	return nil
}

// POST /v1/reports/{tier}/{id}/refresh
func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) error {
	t, id, err := reportParams(req)
	if err != nil {
		return err
	}
	rep, err := r.diagnostics.Refresh(req.Context(), t, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep.View())
}

type entitlementResponse struct {
	*entitlements.Entitlement
	Remaining int  `json:"remaining"`
	Active    bool `json:"active"`
}

// GET /v1/entitlements?email=&tier=
func (r *Router) handleEntitlement(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	t, err := tierParam(q.Get("tier"))
	if err != nil {
		return err
	}
	ent, err := r.diagnostics.Entitlement(req.Context(), q.Get("email"), t)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, entitlementResponse{
		Entitlement: ent,
		Remaining:   ent.Remaining(),
		Active:      ent.Active(r.diagnostics.Clock.Now()),
	})
}

// POST /v1/checkout
func (r *Router) handleCheckout(w http.ResponseWriter, req *http.Request) error {
	var cmd billing.CheckoutCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	sess, err := r.billing.Checkout(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, sess)
}

// POST /v1/contacts/sync
func (r *Router) handleContactSync(w http.ResponseWriter, req *http.Request) error {
	var cmd engagement.ContactCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	res, err := r.engagement.SyncContact(req.Context(), cmd)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if res.Partial() {
		status = http.StatusMultiStatus
	}
	return writeJSON(w, status, res)
}

// POST /v1/surveys
func (r *Router) handleSurvey(w http.ResponseWriter, req *http.Request) error {
	var cmd engagement.SurveyCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	cmd.Comment = middleware.SanitizeString(cmd.Comment)
	sv, err := r.engagement.SubmitSurvey(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, sv)
}

// POST /webhooks/stripe
func (r *Router) handleStripeWebhook(w http.ResponseWriter, req *http.Request) error {
	payload, err := readBody(w, req)
	if err != nil {
		return err
	}
	applied, err := r.billing.HandleEvent(req.Context(), payload, req.Header.Get("Stripe-Signature"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"received": true, "applied": applied})
}

// POST /webhooks/calendly
func (r *Router) handleCalendlyWebhook(w http.ResponseWriter, req *http.Request) error {
	payload, err := readBody(w, req)
	if err != nil {
		return err
	}
	if err := r.engagement.HandleCalendly(req.Context(), req.Header.Get(calendly.SignatureHeader), payload); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func readBody(w http.ResponseWriter, req *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return b, nil
}

func tierParam(s string) (tier.Tier, error) {
	t, err := middleware.ValidateTier(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return t, nil
}

func reportParams(req *http.Request) (tier.Tier, reports.ReportID, error) {
	t, err := tierParam(chi.URLParam(req, "tier"))
	if err != nil {
		return "", "", err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return "", "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return t, reports.ReportID(id), nil
}
