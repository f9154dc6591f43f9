package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/wunderbrand/internal/domain/ai"
	"github.com/bryanwahyu/wunderbrand/internal/infra/ai/prompt"
)

const (
	defaultModel = "gemini-2.5-flash"
	providerName = "gemini"
	maxTokens    = 4096
)

// Client generates diagnostic content with the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Generate(ctx context.Context, gr ai.GenerateRequest) (ai.GenerateResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt.GetUserPrompt(gr), genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.GetSystemPrompt(gr.Tier), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   maxTokens,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return ai.GenerateResult{}, fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
		}
		return ai.GenerateResult{}, fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return ai.GenerateResult{}, ai.ErrEmptyResponse
	}

	out := ai.GenerateResult{Raw: text, Provider: providerName, Model: c.model}
	if result.ModelVersion != "" {
		out.Model = result.ModelVersion
	}
	if result.UsageMetadata != nil {
		out.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}
