package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

var ErrMalformedContent = errors.New("malformed report content")

// Content is the JSON document the LLM is asked to return.
type Content struct {
	Summary         string               `json:"summary"`
	PillarScores    scoring.PillarScores `json:"pillar_scores"`
	Insights        []PillarInsight      `json:"insights"`
	Recommendations []string             `json:"recommendations"`
	Blueprint       *BlueprintContent    `json:"blueprint,omitempty"`
	ActivationPlan  []string             `json:"activation_plan,omitempty"`
}

// ParseContent decodes an LLM response. Markdown code fences around the JSON
// are tolerated.
func ParseContent(raw string) (Content, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	var c Content
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Content{}, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if strings.TrimSpace(c.Summary) == "" && len(c.Insights) == 0 {
		return Content{}, fmt.Errorf("%w: empty summary and insights", ErrMalformedContent)
	}
	return c, nil
}

// Apply copies generated content onto r and derives the score fields.
// Content above r.Tier is discarded.
func (r *Report) Apply(c Content) {
	r.PillarScores = c.PillarScores.Clamp()
	r.Score = scoring.BrandAlignmentScore(r.PillarScores)
	r.Band = scoring.ClassifyOverall(r.Score)
	r.PrimaryPillar = scoring.PrimaryPillar(r.PillarScores)
	r.Summary = strings.TrimSpace(c.Summary)
	r.Insights = NormalizeInsights(r.PillarScores, c.Insights)
	r.Recommendations = nonEmpty(c.Recommendations)

	r.Blueprint = nil
	if r.Tier.Allows(tier.FeatureBlueprint) {
		r.Blueprint = c.Blueprint
	}
	r.ActivationPlan = nil
	if r.Tier.Allows(tier.FeatureActivationPlan) {
		r.ActivationPlan = nonEmpty(c.ActivationPlan)
	}
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
