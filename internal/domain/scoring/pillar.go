package scoring

// Pillar is one of the five fixed brand-health categories.
type Pillar string

const (
	PillarPositioning Pillar = "positioning"
	PillarMessaging   Pillar = "messaging"
	PillarVisibility  Pillar = "visibility"
	PillarCredibility Pillar = "credibility"
	PillarConversion  Pillar = "conversion"
)

var pillarOrder = [...]Pillar{
	PillarPositioning,
	PillarMessaging,
	PillarVisibility,
	PillarCredibility,
	PillarConversion,
}

// AllPillars returns the pillars in their canonical order.
func AllPillars() []Pillar {
	out := make([]Pillar, len(pillarOrder))
	copy(out, pillarOrder[:])
	return out
}

// Title is the display name used in reports and PDFs.
func (p Pillar) Title() string {
	switch p {
	case PillarPositioning:
		return "Positioning"
	case PillarMessaging:
		return "Messaging"
	case PillarVisibility:
		return "Visibility"
	case PillarCredibility:
		return "Credibility"
	case PillarConversion:
		return "Conversion"
	}
	return string(p)
}

// Valid reports whether p is one of the five known pillars.
func (p Pillar) Valid() bool {
	for _, q := range pillarOrder {
		if p == q {
			return true
		}
	}
	return false
}
