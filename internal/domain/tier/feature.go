package tier

// Feature is a gated capability of a report.
type Feature string

const (
	FeatureScore            Feature = "score"
	FeaturePrimaryInsight   Feature = "primary_insight"
	FeaturePDF              Feature = "pdf"
	FeaturePillarInsights   Feature = "pillar_insights"
	FeatureRecommendations  Feature = "recommendations"
	FeatureRefresh          Feature = "refresh"
	FeatureBlueprint        Feature = "blueprint"
	FeatureActivationPlan   Feature = "activation_plan"
	FeatureUnlimitedRefresh Feature = "unlimited_refresh"
)

// minimum tier per feature
var featureFloor = map[Feature]Tier{
	FeatureScore:            Snapshot,
	FeaturePrimaryInsight:   Snapshot,
	FeaturePDF:              Snapshot,
	FeaturePillarInsights:   SnapshotPlus,
	FeatureRecommendations:  SnapshotPlus,
	FeatureRefresh:          SnapshotPlus,
	FeatureBlueprint:        Blueprint,
	FeatureActivationPlan:   BlueprintPlus,
	FeatureUnlimitedRefresh: BlueprintPlus,
}

// Allows reports whether t unlocks f.
func (t Tier) Allows(f Feature) bool {
	floor, ok := featureFloor[f]
	if !ok || !t.Valid() {
		return false
	}
	return t.AtLeast(floor)
}

// Features lists everything t unlocks, in a stable order.
func (t Tier) Features() []Feature {
	order := []Feature{
		FeatureScore, FeaturePrimaryInsight, FeaturePDF,
		FeaturePillarInsights, FeatureRecommendations, FeatureRefresh,
		FeatureBlueprint, FeatureActivationPlan, FeatureUnlimitedRefresh,
	}
	var out []Feature
	for _, f := range order {
		if t.Allows(f) {
			out = append(out, f)
		}
	}
	return out
}
