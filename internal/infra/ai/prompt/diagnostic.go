package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

const baseSystemPrompt = `You are WunderBrand, a senior brand strategist. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Score each of the five pillars (positioning, messaging, visibility, credibility, conversion) as an integer from 0 to 20.
- 0-10 means weak, 11-15 mixed, 16-20 strong. Be honest; most small brands land in the mixed range.
- Base every statement on the answers given. If an answer is missing, say what is unknown instead of guessing.
- Write in second person ("you"), warm and direct, no jargon.
- summary is 2-3 sentences about the brand as a whole.
`

const snapshotSchema = `
Schema:
{
  "summary": "<string>",
  "pillar_scores": {"positioning": 0, "messaging": 0, "visibility": 0, "credibility": 0, "conversion": 0},
  "insights": [
    {"pillar": "<positioning|messaging|visibility|credibility|conversion>", "summary": "<string>", "opportunity": "<string>"}
  ],
  "recommendations": ["<string>"]%s
}`

const blueprintFields = `,
  "blueprint": {
    "positioning_statement": "<string>",
    "messaging_pillars": ["<string>"],
    "brand_voice": "<string>",
    "audience_profile": "<string>",
    "taglines": ["<string>"]
  }`

const activationFields = `,
  "activation_plan": ["<string>"]`

// GetSystemPrompt provides strict directions and the JSON schema for t.
func GetSystemPrompt(t tier.Tier) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)

	switch {
	case t.Allows(tier.FeaturePillarInsights):
		b.WriteString("- insights must contain exactly one entry per pillar, each with a concrete opportunity.\n")
		b.WriteString("- recommendations lists 5 to 7 prioritised actions, most impactful first.\n")
	default:
		b.WriteString("- insights must contain one entry per pillar; keep each summary to one sentence.\n")
		b.WriteString("- recommendations lists the 3 most impactful actions.\n")
	}
	extra := ""
	if t.Allows(tier.FeatureBlueprint) {
		b.WriteString("- blueprint turns the diagnosis into strategy: a one-sentence positioning statement, 3-4 messaging pillars, a brand voice description, an audience profile and 3 tagline options.\n")
		extra += blueprintFields
	}
	if t.Allows(tier.FeatureActivationPlan) {
		b.WriteString("- activation_plan is a 90-day plan as 6 to 12 dated steps (\"Week 1: ...\").\n")
		extra += activationFields
	}
	b.WriteString(fmt.Sprintf(snapshotSchema, extra))
	return b.String()
}

// GetUserPrompt wraps the questionnaire transcript.
func GetUserPrompt(req ai.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce the %s for the brand below and respond with the JSON per schema.\n\n", req.Tier.DocumentName())
	if req.Company != "" {
		fmt.Fprintf(&b, "Brand: %s\n", req.Company)
	}
	if req.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", req.Website)
	}
	if req.Previous != "" {
		fmt.Fprintf(&b, "\nThis is a refresh. The previous diagnosis said:\n%s\nCall out what changed.\n", req.Previous)
	}
	b.WriteString("\nQuestionnaire answers:\n")
	b.WriteString(req.Transcript)
	return b.String()
}
