package reports

import (
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// ReportID is a generated UUID.
type ReportID string

// PillarInsight is the LLM commentary for one pillar.
type PillarInsight struct {
	Pillar      scoring.Pillar `json:"pillar"`
	Score       int            `json:"score"`
	Band        scoring.Band   `json:"band"`
	Summary     string         `json:"summary"`
	Opportunity string         `json:"opportunity,omitempty"`
}

// BlueprintContent is the strategic layer produced for Blueprint tiers.
type BlueprintContent struct {
	PositioningStatement string   `json:"positioning_statement"`
	MessagingPillars     []string `json:"messaging_pillars"`
	BrandVoice           string   `json:"brand_voice"`
	AudienceProfile      string   `json:"audience_profile"`
	Taglines             []string `json:"taglines,omitempty"`
}

// Aggregate root: Report
type Report struct {
	ID              ReportID             `json:"id"`
	Tier            tier.Tier            `json:"tier"`
	Email           string               `json:"email"`
	Name            string               `json:"name,omitempty"`
	Company         string               `json:"company,omitempty"`
	Website         string               `json:"website,omitempty"`
	Answers         map[string]string    `json:"answers,omitempty"`
	PillarScores    scoring.PillarScores `json:"pillar_scores"`
	Score           int                  `json:"score"`
	Band            scoring.Band         `json:"band"`
	PrimaryPillar   scoring.Pillar       `json:"primary_pillar"`
	Summary         string               `json:"summary"`
	Insights        []PillarInsight      `json:"insights,omitempty"`
	Recommendations []string             `json:"recommendations,omitempty"`
	Blueprint       *BlueprintContent    `json:"blueprint,omitempty"`
	ActivationPlan  []string             `json:"activation_plan,omitempty"`
	PDFKey          string               `json:"pdf_key,omitempty"`
	RefreshCount    int                  `json:"refresh_count"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Insight returns the insight for p, if the LLM produced one.
func (r *Report) Insight(p scoring.Pillar) (PillarInsight, bool) {
	for _, in := range r.Insights {
		if in.Pillar == p {
			return in, true
		}
	}
	return PillarInsight{}, false
}

// Generation is the raw LLM output kept for audit and reprocessing.
type Generation struct {
	ID         string    `json:"id"`
	ReportID   ReportID  `json:"report_id"`
	Tier       tier.Tier `json:"tier"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Raw        string    `json:"raw"`
	TokensUsed int       `json:"tokens_used"`
	CreatedAt  time.Time `json:"created_at"`
}
