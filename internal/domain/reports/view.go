package reports

import (
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// View is what a client of the given tier is allowed to see.
type View struct {
	ID              ReportID           `json:"id"`
	Tier            tier.Tier          `json:"tier"`
	Email           string             `json:"email"`
	Company         string             `json:"company,omitempty"`
	Score           int                `json:"score"`
	Band            string             `json:"band"`
	PrimaryPillar   string             `json:"primary_pillar"`
	Summary         string             `json:"summary"`
	PrimaryInsight  *FormattedInsight  `json:"primary_insight,omitempty"`
	Insights        []FormattedInsight `json:"insights,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Blueprint       *BlueprintContent  `json:"blueprint,omitempty"`
	ActivationPlan  []string           `json:"activation_plan,omitempty"`
	HasDocument     bool               `json:"has_document"`
	RefreshCount    int                `json:"refresh_count"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

// View projects r through its tier's feature gates.
func (r *Report) View() View {
	v := View{
		ID:            r.ID,
		Tier:          r.Tier,
		Email:         r.Email,
		Company:       r.Company,
		Score:         r.Score,
		Band:          string(r.Band),
		PrimaryPillar: string(r.PrimaryPillar),
		Summary:       r.Summary,
		HasDocument:   r.PDFKey != "",
		RefreshCount:  r.RefreshCount,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	formatted := FormatPillarInsights(r)
	if r.Tier.Allows(tier.FeaturePrimaryInsight) {
		for i := range formatted {
			if formatted[i].Primary {
				pi := formatted[i]
				v.PrimaryInsight = &pi
				break
			}
		}
	}
	if r.Tier.Allows(tier.FeaturePillarInsights) {
		v.Insights = formatted
	}
	if r.Tier.Allows(tier.FeatureRecommendations) {
		v.Recommendations = r.Recommendations
	}
	if r.Tier.Allows(tier.FeatureBlueprint) {
		v.Blueprint = r.Blueprint
	}
	if r.Tier.Allows(tier.FeatureActivationPlan) {
		v.ActivationPlan = r.ActivationPlan
	}
	return v
}
