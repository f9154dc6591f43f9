// Package questionnaire holds the conversational form: the ordered question
// catalog and the rules for walking and validating a set of answers.
package questionnaire

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const MaxAnswerLength = 2000

var (
	ErrMissingAnswer   = errors.New("missing required answer")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrAnswerTooLong   = errors.New("answer too long")
)

//go:embed questions.yaml
var defaultCatalog []byte

// Question is one step of the conversational form.
type Question struct {
	ID       string         `yaml:"id" json:"id"`
	Prompt   string         `yaml:"prompt" json:"prompt"`
	Pillar   scoring.Pillar `yaml:"pillar" json:"pillar"`
	Required bool           `yaml:"required" json:"required"`
	MinTier  tier.Tier      `yaml:"min_tier" json:"min_tier"`
}

// Answers maps question ID to the user's answer.
type Answers map[string]string

type Catalog struct {
	questions []Question
	byID      map[string]Question
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Questions []Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse question catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]Question, len(doc.Questions))}
	for _, q := range doc.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question without id: %q", q.Prompt)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if !q.MinTier.Valid() {
			return nil, fmt.Errorf("question %q: %w: %q", q.ID, tier.ErrUnknownTier, q.MinTier)
		}
		if !q.Pillar.Valid() {
			return nil, fmt.Errorf("question %q: unknown pillar %q", q.ID, q.Pillar)
		}
		c.questions = append(c.questions, q)
		c.byID[q.ID] = q
	}
	return c, nil
}

// ForTier returns the questions asked for t, in order.
func (c *Catalog) ForTier(t tier.Tier) []Question {
	var out []Question
	for _, q := range c.questions {
		if t.AtLeast(q.MinTier) {
			out = append(out, q)
		}
	}
	return out
}

// Lookup finds a question by ID.
func (c *Catalog) Lookup(id string) (Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Next returns the first question for t that has no answer yet. An optional
// question counts as answered once its key is present, even if empty.
func (c *Catalog) Next(t tier.Tier, answers Answers) (*Question, bool) {
	for _, q := range c.ForTier(t) {
		v, seen := answers[q.ID]
		if !seen || (q.Required && strings.TrimSpace(v) == "") {
			q := q
			return &q, false
		}
	}
	return nil, true
}

// Progress returns answered and total counts for t.
func (c *Catalog) Progress(t tier.Tier, answers Answers) (answered, total int) {
	qs := c.ForTier(t)
	for _, q := range qs {
		if _, ok := answers[q.ID]; ok {
			answered++
		}
	}
	return answered, len(qs)
}

// Validate checks a complete submission for t.
func (c *Catalog) Validate(t tier.Tier, answers Answers) error {
	for id, v := range answers {
		q, ok := c.byID[id]
		if !ok || !t.AtLeast(q.MinTier) {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
		}
		if len([]rune(v)) > MaxAnswerLength {
			return fmt.Errorf("%w: %s", ErrAnswerTooLong, id)
		}
	}
	for _, q := range c.ForTier(t) {
		if q.Required && strings.TrimSpace(answers[q.ID]) == "" {
			return fmt.Errorf("%w: %s", ErrMissingAnswer, q.ID)
		}
	}
	return nil
}

// Transcript renders the answers as prompt-ready question/answer pairs in
// catalog order. Unanswered questions are skipped.
func (c *Catalog) Transcript(t tier.Tier, answers Answers) string {
	var b strings.Builder
	for _, q := range c.ForTier(t) {
		v := strings.TrimSpace(answers[q.ID])
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "Q (%s): %s\nA: %s\n\n", q.Pillar, q.Prompt, v)
	}
	return strings.TrimSpace(b.String())
}
