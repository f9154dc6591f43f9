package tier_test

import (
	"errors"
	"testing"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Parsing tier names", t, func() {
		cases := map[string]tier.Tier{
			"snapshot":       tier.Snapshot,
			"Snapshot+":      tier.SnapshotPlus,
			"snapshot-plus":  tier.SnapshotPlus,
			" blueprint ":    tier.Blueprint,
			"Blueprint Plus": tier.BlueprintPlus,
			"blueprint+":     tier.BlueprintPlus,
		}
		for in, want := range cases {
			got, err := tier.Parse(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("Unknown names fail", func() {
			_, err := tier.Parse("platinum")
			So(errors.Is(err, tier.ErrUnknownTier), ShouldBeTrue)
		})
	})
}

func TestFeatureGating(t *testing.T) {
	Convey("Snapshot only unlocks the free features", t, func() {
		So(tier.Snapshot.Allows(tier.FeatureScore), ShouldBeTrue)
		So(tier.Snapshot.Allows(tier.FeaturePDF), ShouldBeTrue)
		So(tier.Snapshot.Allows(tier.FeaturePillarInsights), ShouldBeFalse)
		So(tier.Snapshot.Allows(tier.FeatureRefresh), ShouldBeFalse)
	})

	Convey("Snapshot+ adds insights and refresh", t, func() {
		So(tier.SnapshotPlus.Allows(tier.FeaturePillarInsights), ShouldBeTrue)
		So(tier.SnapshotPlus.Allows(tier.FeatureRecommendations), ShouldBeTrue)
		So(tier.SnapshotPlus.Allows(tier.FeatureBlueprint), ShouldBeFalse)
	})

	Convey("Blueprint+ unlocks everything", t, func() {
		So(tier.BlueprintPlus.Features(), ShouldHaveLength, 9)
		So(tier.Blueprint.Allows(tier.FeatureActivationPlan), ShouldBeFalse)
		So(tier.BlueprintPlus.Allows(tier.FeatureActivationPlan), ShouldBeTrue)
	})

	Convey("Unknown tiers unlock nothing", t, func() {
		So(tier.Tier("gold").Allows(tier.FeatureScore), ShouldBeFalse)
		So(tier.Snapshot.Allows(tier.Feature("teleport")), ShouldBeFalse)
	})
}

func TestTables(t *testing.T) {
	Convey("Blueprint tiers share a table", t, func() {
		So(tier.Snapshot.Table(), ShouldEqual, "brand_snapshot_reports")
		So(tier.SnapshotPlus.Table(), ShouldEqual, "brand_snapshot_plus_reports")
		So(tier.Blueprint.Table(), ShouldEqual, tier.BlueprintPlus.Table())
		So(tier.Snapshot.Paid(), ShouldBeFalse)
		So(tier.Blueprint.Paid(), ShouldBeTrue)
		So(tier.SnapshotPlus.Slug(), ShouldEqual, "snapshot-plus")
	})
}
