package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/domain/entitlements"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
	"github.com/bryanwahyu/wunderbrand/internal/domain/purchases"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// Service handles Stripe checkout and its webhook.
type Service struct {
	Gateway      purchases.Gateway
	Purchases    purchases.Repository
	Entitlements entitlements.Repository
	Marketing    *application.MarketingSync
	Metrics      application.Metrics
	Log          *zap.Logger
	Clock        application.Clock
}

type CheckoutCommand struct {
	Email    string `json:"email"`
	Tier     string `json:"tier"`
	ReportID string `json:"report_id"`
}

// Checkout opens a hosted checkout session for a paid tier.
func (s *Service) Checkout(ctx context.Context, cmd CheckoutCommand) (purchases.CheckoutSession, error) {
	t, err := tier.Parse(cmd.Tier)
	if err != nil {
		return purchases.CheckoutSession{}, fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	if !t.Paid() {
		return purchases.CheckoutSession{}, fmt.Errorf("%w: %s is free", application.ErrInvalidInput, t.Title())
	}
	email, err := application.NormalizeEmail(cmd.Email)
	if err != nil {
		return purchases.CheckoutSession{}, err
	}

	sess, err := s.Gateway.CreateCheckout(ctx, purchases.CheckoutRequest{
		Email:    email,
		Tier:     t,
		ReportID: strings.TrimSpace(cmd.ReportID),
	})
	if errors.Is(err, purchases.ErrNoPrice) {
		return purchases.CheckoutSession{}, fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	if err != nil {
		return purchases.CheckoutSession{}, fmt.Errorf("%w: create checkout: %w", application.ErrUpstream, err)
	}
	s.Log.Info("checkout created", zap.String("session_id", sess.ID), zap.String("tier", string(t)))
	return sess, nil
}

// HandleEvent verifies and applies a Stripe webhook. It reports whether the
// event changed anything. The entitlement is granted before the purchase row
// is written, so a redelivery after a failed grant still grants it.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) (bool, error) {
	ev, err := s.Gateway.ParseEvent(payload, signature)
	if err != nil {
		s.metrics().WebhookEvent("stripe", "rejected")
		if errors.Is(err, purchases.ErrInvalidSignature) {
			return false, fmt.Errorf("%w: %w", application.ErrUnauthorized, err)
		}
		return false, fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	if !ev.IsCheckout() {
		s.metrics().WebhookEvent("stripe", "ignored")
		s.Log.Debug("ignoring stripe event", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		return false, nil
	}
	email, err := application.NormalizeEmail(ev.Email)
	if !ev.Tier.Paid() || err != nil {
		s.metrics().WebhookEvent("stripe", "ignored")
		s.Log.Warn("checkout without tier or email metadata", zap.String("session_id", ev.SessionID))
		return false, nil
	}
	if !ev.Settled() {
		s.metrics().WebhookEvent("stripe", "pending")
		s.Log.Info("checkout awaiting payment",
			zap.String("session_id", ev.SessionID),
			zap.String("payment_status", ev.PaymentStatus),
		)
		return false, nil
	}

	seen, err := s.Purchases.Exists(ctx, ev.SessionID)
	if err != nil {
		return false, fmt.Errorf("load purchase: %w", err)
	}
	if seen {
		s.metrics().WebhookEvent("stripe", "duplicate")
		return false, nil
	}

	if err := s.grant(ctx, email, ev.Tier); err != nil {
		return false, fmt.Errorf("grant entitlement: %w", err)
	}
	inserted, err := s.Purchases.Save(ctx, &purchases.Purchase{
		SessionID:   ev.SessionID,
		Email:       email,
		Tier:        ev.Tier,
		ReportID:    ev.ReportID,
		AmountTotal: ev.AmountTotal,
		Currency:    ev.Currency,
		Status:      ev.PaymentStatus,
		CreatedAt:   s.Clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("save purchase: %w", err)
	}
	if !inserted {
		s.metrics().WebhookEvent("stripe", "duplicate")
		return false, nil
	}

	s.metrics().WebhookEvent("stripe", "applied")
	s.Log.Info("purchase recorded",
		zap.String("session_id", ev.SessionID),
		zap.String("tier", string(ev.Tier)),
		zap.Int64("amount_total", ev.AmountTotal),
	)
	s.Marketing.Sync(ctx, marketing.Contact{
		Email:  email,
		Fields: map[string]string{marketing.FieldTier: ev.Tier.Title()},
	}, []string{marketing.TagPurchased(ev.Tier.Slug())})
	return true, nil
}

// grant opens a window for t, or restarts one that has lapsed.
func (s *Service) grant(ctx context.Context, email string, t tier.Tier) error {
	now := s.Clock.Now()
	ent, err := s.Entitlements.Get(ctx, email, t)
	switch {
	case errors.Is(err, entitlements.ErrNotFound):
		ent = entitlements.Grant(email, t, now)
	case err != nil:
		return err
	case ent.Active(now):
		return nil
	default:
		ent.Renew(now)
	}
	return s.Entitlements.Save(ctx, ent)
}

func (s *Service) metrics() application.Metrics {
	if s.Metrics == nil {
		return application.NopMetrics{}
	}
	return s.Metrics
}
