package followups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurveySegment(t *testing.T) {
	cases := []struct {
		rating int
		want   Segment
	}{
		{10, SegmentPromoter},
		{9, SegmentPromoter},
		{8, SegmentPassive},
		{7, SegmentPassive},
		{6, SegmentDetractor},
		{1, SegmentDetractor},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Survey{Rating: c.rating}.Segment(), "rating %d", c.rating)
	}
}

func TestSurveyValidate(t *testing.T) {
	assert.NoError(t, Survey{Rating: 1}.Validate())
	assert.NoError(t, Survey{Rating: 10}.Validate())
	assert.ErrorIs(t, Survey{Rating: 0}.Validate(), ErrInvalidRating)
	assert.ErrorIs(t, Survey{Rating: 11}.Validate(), ErrInvalidRating)
}
