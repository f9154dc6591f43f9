// Package scoring holds the WunderBrand score arithmetic: the pillar mean, the
// 0-100 alignment score, the weakest pillar and the strong/mixed/weak bands.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinPillarScore = 0
	MaxPillarScore = 20

	// scale maps the 0-20 pillar range onto 0-100.
	scale = 100 / MaxPillarScore

	weakCeiling  = 10
	mixedCeiling = 15
)

var ErrScoreOutOfRange = errors.New("pillar score out of range")

// Band classifies a pillar score.
type Band string

const (
	BandWeak   Band = "weak"
	BandMixed  Band = "mixed"
	BandStrong Band = "strong"
)

// Title is the capitalised band label.
func (b Band) Title() string {
	switch b {
	case BandWeak:
		return "Weak"
	case BandMixed:
		return "Mixed"
	case BandStrong:
		return "Strong"
	}
	return string(b)
}

// PillarScores are the five LLM-assigned sub-scores, each 0-20.
type PillarScores struct {
	Positioning int `json:"positioning"`
	Messaging   int `json:"messaging"`
	Visibility  int `json:"visibility"`
	Credibility int `json:"credibility"`
	Conversion  int `json:"conversion"`
}

// Get returns the score for p, or 0 for an unknown pillar.
func (s PillarScores) Get(p Pillar) int {
	switch p {
	case PillarPositioning:
		return s.Positioning
	case PillarMessaging:
		return s.Messaging
	case PillarVisibility:
		return s.Visibility
	case PillarCredibility:
		return s.Credibility
	case PillarConversion:
		return s.Conversion
	}
	return 0
}

// Set assigns the score for p. Unknown pillars are ignored.
func (s *PillarScores) Set(p Pillar, v int) {
	switch p {
	case PillarPositioning:
		s.Positioning = v
	case PillarMessaging:
		s.Messaging = v
	case PillarVisibility:
		s.Visibility = v
	case PillarCredibility:
		s.Credibility = v
	case PillarConversion:
		s.Conversion = v
	}
}

// Clamp returns a copy with every pillar forced into 0..20.
func (s PillarScores) Clamp() PillarScores {
	out := s
	for _, p := range pillarOrder {
		v := out.Get(p)
		if v < MinPillarScore {
			v = MinPillarScore
		}
		if v > MaxPillarScore {
			v = MaxPillarScore
		}
		out.Set(p, v)
	}
	return out
}

// Validate fails with ErrScoreOutOfRange naming the first offending pillar.
func (s PillarScores) Validate() error {
	for _, p := range pillarOrder {
		if v := s.Get(p); v < MinPillarScore || v > MaxPillarScore {
			return fmt.Errorf("%w: %s=%d", ErrScoreOutOfRange, p, v)
		}
	}
	return nil
}

func (s PillarScores) sum() int {
	total := 0
	for _, p := range pillarOrder {
		total += s.Get(p)
	}
	return total
}

func (s PillarScores) mean() float64 {
	return float64(s.sum()) / float64(len(pillarOrder))
}

// Mean is the rounded average of the five pillars (0-20).
func (s PillarScores) Mean() int {
	return int(math.Round(s.mean()))
}

// BrandAlignmentScore is the WunderBrand Score: the pillar mean scaled to 0-100.
func BrandAlignmentScore(s PillarScores) int {
	return int(math.Round(s.mean() * scale))
}

// PrimaryPillar returns the weakest pillar. Ties go to the earliest pillar in
// canonical order.
func PrimaryPillar(s PillarScores) Pillar {
	primary := pillarOrder[0]
	lowest := s.Get(primary)
	for _, p := range pillarOrder[1:] {
		if v := s.Get(p); v < lowest {
			primary, lowest = p, v
		}
	}
	return primary
}

// Classify bands a single 0-20 pillar score.
func Classify(score int) Band {
	switch {
	case score <= weakCeiling:
		return BandWeak
	case score <= mixedCeiling:
		return BandMixed
	default:
		return BandStrong
	}
}

// ClassifyOverall bands a 0-100 WunderBrand Score on the pillar scale.
func ClassifyOverall(score100 int) Band {
	return Classify(int(math.Round(float64(score100) / scale)))
}
