// Package tier models the product levels and the features each one unlocks.
package tier

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTier = errors.New("unknown tier")

// Tier is a product level.
type Tier string

const (
	Snapshot      Tier = "snapshot"
	SnapshotPlus  Tier = "snapshot_plus"
	Blueprint     Tier = "blueprint"
	BlueprintPlus Tier = "blueprint_plus"
)

// All returns the tiers from cheapest to most complete.
func All() []Tier {
	return []Tier{Snapshot, SnapshotPlus, Blueprint, BlueprintPlus}
}

// Parse accepts canonical names plus the marketing spellings used by the
// front end ("snapshot+", "Blueprint Plus").
func Parse(s string) (Tier, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "+", "_plus")
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	switch Tier(n) {
	case Snapshot, SnapshotPlus, Blueprint, BlueprintPlus:
		return Tier(n), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Rank orders tiers; unknown tiers rank below snapshot.
func (t Tier) Rank() int {
	switch t {
	case Snapshot:
		return 1
	case SnapshotPlus:
		return 2
	case Blueprint:
		return 3
	case BlueprintPlus:
		return 4
	}
	return 0
}

func (t Tier) Valid() bool { return t.Rank() > 0 }

// AtLeast reports whether t includes everything other does.
func (t Tier) AtLeast(other Tier) bool { return t.Rank() >= other.Rank() }

// Paid reports whether the tier goes through checkout.
func (t Tier) Paid() bool { return t.Rank() > Snapshot.Rank() }

// Title is the product name.
func (t Tier) Title() string {
	switch t {
	case Snapshot:
		return "WunderBrand Snapshot"
	case SnapshotPlus:
		return "WunderBrand Snapshot+"
	case Blueprint:
		return "WunderBrand Blueprint"
	case BlueprintPlus:
		return "WunderBrand Blueprint+"
	}
	return string(t)
}

// DocumentName is the PDF deliverable title.
func (t Tier) DocumentName() string {
	switch t {
	case Snapshot:
		return "Brand Snapshot Report"
	case SnapshotPlus:
		return "Brand Snapshot+ Report"
	case Blueprint:
		return "Brand Blueprint"
	case BlueprintPlus:
		return "Brand Blueprint+ Playbook"
	}
	return "Brand Report"
}

// Table is the report table that stores results for the tier. Both blueprint
// tiers share brand_blueprint_results.
func (t Tier) Table() string {
	switch t {
	case Snapshot:
		return "brand_snapshot_reports"
	case SnapshotPlus:
		return "brand_snapshot_plus_reports"
	case Blueprint, BlueprintPlus:
		return "brand_blueprint_results"
	}
	return ""
}

// Slug is the tag-friendly form ("snapshot-plus").
func (t Tier) Slug() string {
	return strings.ReplaceAll(string(t), "_", "-")
}
