package purchases

import (
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// Purchase is a completed Stripe checkout.
type Purchase struct {
	SessionID   string    `json:"session_id"`
	Email       string    `json:"email"`
	Tier        tier.Tier `json:"tier"`
	ReportID    string    `json:"report_id,omitempty"`
	AmountTotal int64     `json:"amount_total"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
