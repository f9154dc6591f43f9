package entitlements

import (
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const day = 24 * time.Hour

// Policy is the refresh allowance attached to a tier.
type Policy struct {
	FreeRefreshes int
	Window        time.Duration
	Unlimited     bool
}

// PolicyFor returns the allowance for t. Blueprint+ gets unlimited refreshes
// for 365 days.
func PolicyFor(t tier.Tier) Policy {
	switch t {
	case tier.SnapshotPlus:
		return Policy{FreeRefreshes: 1, Window: 30 * day}
	case tier.Blueprint:
		return Policy{FreeRefreshes: 2, Window: 90 * day}
	case tier.BlueprintPlus:
		return Policy{Unlimited: true, Window: 365 * day}
	default:
		return Policy{Window: 30 * day}
	}
}
