package purchases

import (
	"context"
	"errors"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNoPrice          = errors.New("no price configured for tier")
)

// Checkout webhooks the service acts on. A completed session paid by a
// delayed method arrives unpaid and is followed by async_payment_succeeded.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// Checkout session payment statuses.
const (
	PaymentPaid              = "paid"
	PaymentUnpaid            = "unpaid"
	PaymentNoPaymentRequired = "no_payment_required"
)

type CheckoutRequest struct {
	Email    string
	Tier     tier.Tier
	ReportID string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a verified payment webhook, flattened.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	Email         string
	Tier          tier.Tier
	ReportID      string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
}

// IsCheckout reports whether the event carries a checkout session.
func (e Event) IsCheckout() bool {
	return e.Type == EventCheckoutCompleted || e.Type == EventAsyncPaymentSucceeded
}

// Settled reports whether the money has arrived.
func (e Event) Settled() bool {
	return e.PaymentStatus == PaymentPaid || e.PaymentStatus == PaymentNoPaymentRequired
}

// Gateway is the payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// ParseEvent verifies signature against payload and decodes it.
	ParseEvent(payload []byte, signature string) (Event, error)
}

// Repository port
type Repository interface {
	// Save inserts p and reports false when the session was already recorded.
	Save(ctx context.Context, p *Purchase) (bool, error)
	// Exists reports whether the session was already recorded.
	Exists(ctx context.Context, sessionID string) (bool, error)
	// HasTier reports whether email bought t or any tier above it.
	HasTier(ctx context.Context, email string, t tier.Tier) (bool, error)
}
