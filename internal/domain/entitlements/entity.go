// Package entitlements models refresh allowances: how many times, and until
// when, a customer may re-run their diagnostic.
package entitlements

import (
	"errors"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

var (
	ErrNotFound        = errors.New("entitlement not found")
	ErrWindowClosed    = errors.New("refresh window closed")
	ErrNoRefreshesLeft = errors.New("no refreshes left")
	ErrNotEntitled     = errors.New("tier does not include refreshes")
)

// Entitlement is one row of refresh_entitlements, keyed by (email, tier).
type Entitlement struct {
	Email         string     `json:"email"`
	Tier          tier.Tier  `json:"tier"`
	WindowStart   time.Time  `json:"window_start"`
	WindowEnd     time.Time  `json:"window_end"`
	FreeRefreshes int        `json:"free_refreshes"`
	RefreshesUsed int        `json:"refreshes_used"`
	Unlimited     bool       `json:"unlimited"`
	Expired       bool       `json:"expired"`
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Grant opens a fresh window for email at tier according to its Policy.
func Grant(email string, t tier.Tier, now time.Time) *Entitlement {
	p := PolicyFor(t)
	return &Entitlement{
		Email:         email,
		Tier:          t,
		WindowStart:   now,
		WindowEnd:     now.Add(p.Window),
		FreeRefreshes: p.FreeRefreshes,
		Unlimited:     p.Unlimited,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Active reports whether now falls inside the window.
func (e *Entitlement) Active(now time.Time) bool {
	return !e.Expired && !now.Before(e.WindowStart) && now.Before(e.WindowEnd)
}

// Remaining is the number of refreshes left; -1 means unlimited.
func (e *Entitlement) Remaining() int {
	if e.Unlimited {
		return -1
	}
	if left := e.FreeRefreshes - e.RefreshesUsed; left > 0 {
		return left
	}
	return 0
}

// CanRefresh explains why a refresh is not allowed, or returns nil.
func (e *Entitlement) CanRefresh(now time.Time) error {
	if !e.Unlimited && e.FreeRefreshes == 0 {
		return ErrNotEntitled
	}
	if !e.Active(now) {
		return ErrWindowClosed
	}
	if e.Remaining() == 0 {
		return ErrNoRefreshesLeft
	}
	return nil
}

// Consume records one refresh. Callers check CanRefresh first.
func (e *Entitlement) Consume(now time.Time) error {
	if err := e.CanRefresh(now); err != nil {
		return err
	}
	e.RefreshesUsed++
	e.LastRefreshAt = &now
	e.UpdatedAt = now
	return nil
}

// Renew restarts a lapsed window under the tier's current policy and resets
// the refreshes used. CreatedAt is kept.
func (e *Entitlement) Renew(now time.Time) {
	created := e.CreatedAt
	*e = *Grant(e.Email, e.Tier, now)
	if !created.IsZero() {
		e.CreatedAt = created
	}
}
