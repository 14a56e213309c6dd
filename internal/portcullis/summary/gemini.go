package summary

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// outputSchema constrains the reply to {"summary": string}.
var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A concise summary of the access logs.",
		},
	},
	Required: []string{"summary"},
}

// GeminiModel calls the Gemini API with a JSON response schema.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("summary: gemini api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("summary: gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   outputSchema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// UnavailableModel fails every call. It stands in when no API key is set so
// the rest of the server still runs.
type UnavailableModel struct{}

var ErrModelNotConfigured = errors.New("summary: no model configured")

func (UnavailableModel) Generate(context.Context, string) (string, error) {
	return "", ErrModelNotConfigured
}
