package questionnaire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

func snapshotAnswers(c *Catalog) Answers {
	a := Answers{}
	for _, q := range c.ForTier(tier.Snapshot) {
		a[q.ID] = "answer for " + q.ID
	}
	return a
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.ForTier(tier.Snapshot), 11)
	assert.Len(t, c.ForTier(tier.SnapshotPlus), 14)
	assert.Len(t, c.ForTier(tier.Blueprint), 16)
	assert.Len(t, c.ForTier(tier.BlueprintPlus), 17)

	q, ok := c.Lookup("business_name")
	require.True(t, ok)
	assert.True(t, q.Required)
}

func TestNext(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	q, done := c.Next(tier.Snapshot, Answers{})
	require.False(t, done)
	assert.Equal(t, "business_name", q.ID)

	q, done = c.Next(tier.Snapshot, Answers{"business_name": "Acme"})
	require.False(t, done)
	assert.Equal(t, "website", q.ID)

	// skipped optional question moves on
	q, done = c.Next(tier.Snapshot, Answers{"business_name": "Acme", "website": ""})
	require.False(t, done)
	assert.Equal(t, "industry", q.ID)

	// blank required answer is asked again
	q, _ = c.Next(tier.Snapshot, Answers{"business_name": "  "})
	assert.Equal(t, "business_name", q.ID)

	q, done = c.Next(tier.Snapshot, snapshotAnswers(c))
	assert.True(t, done)
	assert.Nil(t, q)

	// the same answers are not enough for snapshot+
	q, done = c.Next(tier.SnapshotPlus, snapshotAnswers(c))
	require.False(t, done)
	assert.Equal(t, "competitors", q.ID)
}

func TestValidate(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	t.Run("complete", func(t *testing.T) {
		assert.NoError(t, c.Validate(tier.Snapshot, snapshotAnswers(c)))
	})

	t.Run("missing required", func(t *testing.T) {
		a := snapshotAnswers(c)
		delete(a, "proof")
		err := c.Validate(tier.Snapshot, a)
		assert.ErrorIs(t, err, ErrMissingAnswer)
		assert.Contains(t, err.Error(), "proof")
	})

	t.Run("optional may be absent", func(t *testing.T) {
		a := snapshotAnswers(c)
		delete(a, "website")
		assert.NoError(t, c.Validate(tier.Snapshot, a))
	})

	t.Run("unknown question", func(t *testing.T) {
		a := snapshotAnswers(c)
		a["favourite_color"] = "teal"
		assert.ErrorIs(t, c.Validate(tier.Snapshot, a), ErrUnknownQuestion)
	})

	t.Run("question above tier", func(t *testing.T) {
		a := snapshotAnswers(c)
		a["growth_goal"] = "double revenue"
		assert.ErrorIs(t, c.Validate(tier.Snapshot, a), ErrUnknownQuestion)
	})

	t.Run("too long", func(t *testing.T) {
		a := snapshotAnswers(c)
		a["core_offer"] = strings.Repeat("x", MaxAnswerLength+1)
		assert.ErrorIs(t, c.Validate(tier.Snapshot, a), ErrAnswerTooLong)
	})
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	_, err := Parse([]byte("questions:\n  - id: a\n    pillar: messaging\n    min_tier: gold\n"))
	assert.ErrorIs(t, err, tier.ErrUnknownTier)

	_, err = Parse([]byte("questions:\n  - id: a\n    pillar: vibes\n    min_tier: snapshot\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("questions:\n  - id: a\n    pillar: messaging\n    min_tier: snapshot\n  - id: a\n    pillar: messaging\n    min_tier: snapshot\n"))
	assert.ErrorContains(t, err, "duplicate")
}

func TestTranscript(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	out := c.Transcript(tier.Snapshot, Answers{"industry": "Coffee", "business_name": "Bean There"})
	assert.True(t, strings.Index(out, "Bean There") < strings.Index(out, "Coffee"), "catalog order")
	assert.Contains(t, out, "Q (positioning)")
	assert.NotContains(t, out, "website")
}
