package mocks

import (
	"context"

	"oneclick/internal/llm/client"
	"oneclick/internal/models"
)

// GeneratorResolverMock hands out GenerateFunc as the generator for every
// candidate list.
type GeneratorResolverMock struct {
	GeneratorFunc func(candidates ...string) (client.Generator, *models.LLMModel, error)
	GenerateFunc  func(ctx context.Context, req client.Request) (*client.Result, error)
	Model         *models.LLMModel
}

func (m *GeneratorResolverMock) Generator(candidates ...string) (client.Generator, *models.LLMModel, error) {
	if m.GeneratorFunc != nil {
		return m.GeneratorFunc(candidates...)
	}
	model := m.Model
	if model == nil {
		model = &models.LLMModel{Key: "gemini|gemini-3-pro-preview", ProviderID: "gemini", Enabled: true}
	}
	return client.GeneratorFunc(func(ctx context.Context, req client.Request) (*client.Result, error) {
		if m.GenerateFunc != nil {
			return m.GenerateFunc(ctx, req)
		}
		return &client.Result{Answer: "ok"}, nil
	}), model, nil
}
