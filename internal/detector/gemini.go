package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini asks a Gemini vision model to describe the pet.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("detector: gemini api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("detector: create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Detect(ctx context.Context, in Input) (Analysis, error) {
	m := g.client.GenerativeModel(g.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.1)

	format := in.Image.Format
	if format == "" {
		format = "jpeg"
	}
	resp, err := m.GenerateContent(ctx,
		genai.ImageData(format, in.Image.Bytes),
		genai.Text(buildPrompt()),
	)
	if err != nil {
		return Analysis{}, fmt.Errorf("detector: gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Analysis{}, fmt.Errorf("detector: gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return parseLLMAnalysis(sb.String(), "gemini")
}

func (g *Gemini) Close() error { return g.client.Close() }
