package ai

import (
	"context"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// GenerateRequest carries everything a provider needs to write a report.
type GenerateRequest struct {
	Tier       tier.Tier
	Company    string
	Website    string
	Transcript string
	// Previous is the prior summary when refreshing a report.
	Previous string
}

// GenerateResult is the raw provider output.
type GenerateResult struct {
	Raw        string
	Provider   string
	Model      string
	TokensUsed int
}

type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}
