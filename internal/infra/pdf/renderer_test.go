package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

func sampleReport(t tier.Tier) *reports.Report {
	r := &reports.Report{
		ID:      "r-1",
		Tier:    t,
		Company: "Analytical Engines",
		Summary: "Strong offer — quiet presence.",
		PillarScores: scoring.PillarScores{
			Positioning: 15, Messaging: 14, Visibility: 6, Credibility: 12, Conversion: 13,
		},
		Insights: []reports.PillarInsight{
			{Pillar: scoring.PillarVisibility, Summary: "Hard to find.", Opportunity: "Own one channel."},
		},
		Recommendations: []string{"Post weekly", "Collect testimonials"},
		Blueprint: &reports.BlueprintContent{
			PositioningStatement: "For founders who…",
			MessagingPillars:     []string{"Clarity", "Speed"},
			BrandVoice:           "Warm, direct",
		},
		ActivationPlan: []string{"Week 1: audit", "Week 2: publish"},
	}
	r.Score = scoring.BrandAlignmentScore(r.PillarScores)
	r.Band = scoring.ClassifyOverall(r.Score)
	r.PrimaryPillar = scoring.PrimaryPillar(r.PillarScores)
	return r
}

func TestRenderEveryTier(t *testing.T) {
	rd := NewRenderer("WunderBrand")
	rd.Now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	sizes := map[tier.Tier]int{}
	for _, tr := range tier.All() {
		out, err := rd.Render(sampleReport(tr))
		require.NoError(t, err, tr)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), tr)
		sizes[tr] = len(out)
	}
	assert.Greater(t, sizes[tier.BlueprintPlus], sizes[tier.Snapshot])
}

func TestRenderEmptyReport(t *testing.T) {
	out, err := NewRenderer("").Render(&reports.Report{ID: "r-0", Tier: tier.Snapshot})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
