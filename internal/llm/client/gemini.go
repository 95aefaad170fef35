package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-3-pro-preview"

// contentGenerator is the part of genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator asks a Gemini model for a JSON answer.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ErrProviderUnavailable)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Error().Err(err).Msg("create gemini client")
		return nil, err
	}
	return newGeminiGenerator(c.Models, model), nil
}

func newGeminiGenerator(models contentGenerator, model string) *GeminiGenerator {
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{models: models, model: model}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	parts, err := PromptParts(req)
	if err != nil {
		return nil, err
	}
	genParts := make([]*genai.Part, len(parts))
	for i, p := range parts {
		genParts[i] = genai.NewPartFromText(p)
	}

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(genParts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt(req.Locale), genai.RoleUser),
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.model, err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	return ParseResult(resp.Text())
}
