package reports

import (
	"fmt"
	"sort"

	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
)

// FormattedInsight is a display-ready pillar line.
type FormattedInsight struct {
	Pillar      scoring.Pillar `json:"pillar"`
	Heading     string         `json:"heading"`
	Score       int            `json:"score"`
	Band        scoring.Band   `json:"band"`
	Summary     string         `json:"summary"`
	Opportunity string         `json:"opportunity,omitempty"`
	Primary     bool           `json:"primary"`
}

// FormatPillarInsights renders one line per pillar, weakest first. Pillars the
// LLM did not comment on still appear with their score and band. Scores come
// from r.PillarScores, not from the insight payload.
func FormatPillarInsights(r *Report) []FormattedInsight {
	out := make([]FormattedInsight, 0, len(scoring.AllPillars()))
	for _, p := range scoring.AllPillars() {
		score := r.PillarScores.Get(p)
		band := scoring.Classify(score)
		fi := FormattedInsight{
			Pillar:  p,
			Heading: fmt.Sprintf("%s — %d/%d (%s)", p.Title(), score, scoring.MaxPillarScore, band.Title()),
			Score:   score,
			Band:    band,
			Primary: p == r.PrimaryPillar,
		}
		if in, ok := r.Insight(p); ok {
			fi.Summary = in.Summary
			fi.Opportunity = in.Opportunity
		}
		out = append(out, fi)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

// NormalizeInsights aligns insight scores and bands with the pillar scores and
// drops entries for unknown or repeated pillars.
func NormalizeInsights(scores scoring.PillarScores, in []PillarInsight) []PillarInsight {
	seen := make(map[scoring.Pillar]bool, len(in))
	out := make([]PillarInsight, 0, len(in))
	for _, pi := range in {
		if !pi.Pillar.Valid() || seen[pi.Pillar] {
			continue
		}
		seen[pi.Pillar] = true
		pi.Score = scores.Get(pi.Pillar)
		pi.Band = scoring.Classify(pi.Score)
		out = append(out, pi)
	}
	return out
}
