package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const sampleContent = "```json\n" + `{
  "summary": "Clear offer, quiet presence.",
  "pillar_scores": {"positioning": 14, "messaging": 16, "visibility": 7, "credibility": 12, "conversion": 24},
  "insights": [
    {"pillar": "visibility", "score": 3, "summary": "Hard to find.", "opportunity": "Pick one channel."},
    {"pillar": "messaging", "summary": "Crisp one-liner."},
    {"pillar": "visibility", "summary": "duplicate"},
    {"pillar": "charisma", "summary": "not a pillar"}
  ],
  "recommendations": ["Publish weekly", "  ", "Add case studies"],
  "blueprint": {"positioning_statement": "For busy founders...", "messaging_pillars": ["speed"], "brand_voice": "warm"},
  "activation_plan": ["Week 1: audit"]
}` + "\n```"

func TestParseContent(t *testing.T) {
	c, err := ParseContent(sampleContent)
	require.NoError(t, err)
	assert.Equal(t, "Clear offer, quiet presence.", c.Summary)
	assert.Equal(t, 24, c.PillarScores.Conversion)
	assert.Len(t, c.Insights, 4)

	_, err = ParseContent("sorry, I can't help with that")
	assert.ErrorIs(t, err, ErrMalformedContent)

	_, err = ParseContent(`{"summary": ""}`)
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestApply(t *testing.T) {
	c, err := ParseContent(sampleContent)
	require.NoError(t, err)

	r := &Report{Tier: tier.Snapshot}
	r.Apply(c)

	assert.Equal(t, 20, r.PillarScores.Conversion, "clamped")
	// 14+16+7+12+20 = 69
	assert.Equal(t, 69, r.Score)
	assert.Equal(t, scoring.BandStrong, scoring.Classify(r.PillarScores.Conversion))
	assert.Equal(t, scoring.PillarVisibility, r.PrimaryPillar)
	assert.Equal(t, scoring.BandMixed, r.Band)
	require.Len(t, r.Insights, 2)
	assert.Equal(t, 7, r.Insights[0].Score, "score comes from pillar scores")
	assert.Equal(t, scoring.BandWeak, r.Insights[0].Band)
	assert.Equal(t, []string{"Publish weekly", "Add case studies"}, r.Recommendations)
	assert.Nil(t, r.Blueprint, "snapshot gets no blueprint")
	assert.Nil(t, r.ActivationPlan)

	bp := &Report{Tier: tier.BlueprintPlus}
	bp.Apply(c)
	require.NotNil(t, bp.Blueprint)
	assert.Equal(t, "warm", bp.Blueprint.BrandVoice)
	assert.Equal(t, []string{"Week 1: audit"}, bp.ActivationPlan)
}

func TestFormatPillarInsights(t *testing.T) {
	r := &Report{
		PillarScores:  scoring.PillarScores{Positioning: 14, Messaging: 16, Visibility: 7, Credibility: 12, Conversion: 9},
		PrimaryPillar: scoring.PillarVisibility,
		Insights:      []PillarInsight{{Pillar: scoring.PillarVisibility, Summary: "Hard to find."}},
	}
	out := FormatPillarInsights(r)
	require.Len(t, out, 5)

	assert.Equal(t, scoring.PillarVisibility, out[0].Pillar)
	assert.Equal(t, "Visibility — 7/20 (Weak)", out[0].Heading)
	assert.True(t, out[0].Primary)
	assert.Equal(t, "Hard to find.", out[0].Summary)

	assert.Equal(t, scoring.PillarConversion, out[1].Pillar)
	assert.Equal(t, scoring.PillarMessaging, out[4].Pillar)
	assert.Equal(t, "Messaging — 16/20 (Strong)", out[4].Heading)
	assert.False(t, out[4].Primary)
}

func TestViewGating(t *testing.T) {
	c, err := ParseContent(sampleContent)
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	build := func(tr tier.Tier) View {
		r := &Report{ID: "r1", Tier: tr, Email: "a@b.co", CreatedAt: now, UpdatedAt: now}
		r.Apply(c)
		return r.View()
	}

	snap := build(tier.Snapshot)
	require.NotNil(t, snap.PrimaryInsight)
	assert.Equal(t, scoring.PillarVisibility, snap.PrimaryInsight.Pillar)
	assert.Nil(t, snap.Insights)
	assert.Nil(t, snap.Recommendations)
	assert.Nil(t, snap.Blueprint)
	assert.Equal(t, "2026-03-01T12:00:00Z", snap.CreatedAt)

	plus := build(tier.SnapshotPlus)
	assert.Len(t, plus.Insights, 5)
	assert.Len(t, plus.Recommendations, 2)
	assert.Nil(t, plus.Blueprint)

	bp := build(tier.Blueprint)
	assert.NotNil(t, bp.Blueprint)
	assert.Nil(t, bp.ActivationPlan)

	bpp := build(tier.BlueprintPlus)
	assert.Len(t, bpp.ActivationPlan, 1)
}
