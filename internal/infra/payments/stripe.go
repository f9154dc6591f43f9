// Package payments is the Stripe adapter for checkout sessions and webhooks.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/bryanwahyu/wunderbrand/internal/domain/purchases"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// Metadata keys set on every checkout session.
const (
	metaTier     = "tier"
	metaReportID = "report_id"
	metaEmail    = "email"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// Prices maps a paid tier to its Stripe price ID.
	Prices     map[tier.Tier]string
	SuccessURL string
	CancelURL  string
}

// Gateway implements purchases.Gateway.
type Gateway struct {
	api *client.API
	cfg Config
}

func NewGateway(cfg Config) *Gateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &Gateway{api: sc, cfg: cfg}
}

// NewGatewayWithBackends is for tests and proxies.
func NewGatewayWithBackends(cfg Config, backends *stripe.Backends) *Gateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, backends)
	return &Gateway{api: sc, cfg: cfg}
}

func (g *Gateway) CreateCheckout(ctx context.Context, req purchases.CheckoutRequest) (purchases.CheckoutSession, error) {
	price := g.cfg.Prices[req.Tier]
	if price == "" {
		return purchases.CheckoutSession{}, fmt.Errorf("%w: %s", purchases.ErrNoPrice, req.Tier)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SuccessURL:    stripe.String(expand(g.cfg.SuccessURL, req)),
		CancelURL:     stripe.String(expand(g.cfg.CancelURL, req)),
		CustomerEmail: stripe.String(req.Email),
	}
	if req.ReportID != "" {
		params.ClientReferenceID = stripe.String(req.ReportID)
		params.AddMetadata(metaReportID, req.ReportID)
	}
	params.AddMetadata(metaTier, string(req.Tier))
	params.AddMetadata(metaEmail, req.Email)
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return purchases.CheckoutSession{}, err
	}
	return purchases.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// expand fills {tier} and {report_id} in redirect URLs.
func expand(tmpl string, req purchases.CheckoutRequest) string {
	r := strings.NewReplacer("{tier}", req.Tier.Slug(), "{report_id}", req.ReportID)
	return r.Replace(tmpl)
}

func (g *Gateway) ParseEvent(payload []byte, signature string) (purchases.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrTooOld) || errors.Is(err, webhook.ErrInvalidHeader) {
			return purchases.Event{}, fmt.Errorf("%w: %v", purchases.ErrInvalidSignature, err)
		}
		return purchases.Event{}, fmt.Errorf("decode stripe event: %w", err)
	}

	out := purchases.Event{ID: ev.ID, Type: string(ev.Type)}
	if !out.IsCheckout() || ev.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return purchases.Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = sess.ID
	out.AmountTotal = sess.AmountTotal
	out.Currency = string(sess.Currency)
	out.PaymentStatus = string(sess.PaymentStatus)
	out.ReportID = sess.Metadata[metaReportID]
	if out.ReportID == "" {
		out.ReportID = sess.ClientReferenceID
	}
	if t, err := tier.Parse(sess.Metadata[metaTier]); err == nil {
		out.Tier = t
	}
	out.Email = sess.Metadata[metaEmail]
	switch {
	case sess.CustomerDetails != nil && sess.CustomerDetails.Email != "":
		out.Email = sess.CustomerDetails.Email
	case sess.CustomerEmail != "":
		out.Email = sess.CustomerEmail
	}
	return out, nil
}
