package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"oneclick/internal/llm/client"
	"oneclick/internal/models"
)

// ProviderFactory builds a generator for a provider, API key and model.
type ProviderFactory func(ctx context.Context, apiKey string, model *models.LLMModel) (client.Generator, error)

// DefaultProviders wires the providers in the model catalog.
func DefaultProviders() map[string]ProviderFactory {
	return map[string]ProviderFactory{
		"gemini": func(ctx context.Context, apiKey string, model *models.LLMModel) (client.Generator, error) {
			return client.NewGeminiGenerator(ctx, apiKey, model.APIName)
		},
		"openai": func(ctx context.Context, apiKey string, model *models.LLMModel) (client.Generator, error) {
			return client.NewOpenAIClient(ctx, apiKey, client.OpenAIModelOptions{
				Model:           model.APIName,
				ReasoningEffort: model.ReasoningEffort,
			})
		},
		"anthropic": func(ctx context.Context, apiKey string, model *models.LLMModel) (client.Generator, error) {
			return client.NewClaudeClient(ctx, apiKey, client.ClaudeModelOptions{
				Model:    model.APIName,
				Thinking: model.Thinking != nil && *model.Thinking,
			})
		},
	}
}

// APIKeySource yields the stored key for a provider.
type APIKeySource interface {
	GetApiKey(provider string) (string, error)
}

// ClientService resolves model keys to ready generators. Generators are
// cached per model and API key so a rotated key takes effect immediately.
type ClientService struct {
	context      context.Context
	keys         APIKeySource
	modelConfigs ModelConfigService
	providers    map[string]ProviderFactory

	mu    sync.Mutex
	cache map[string]cachedGenerator
}

type cachedGenerator struct {
	apiKey    string
	generator client.Generator
}

func NewClientService(keys APIKeySource, modelConfigs ModelConfigService, providers map[string]ProviderFactory) *ClientService {
	if providers == nil {
		providers = DefaultProviders()
	}
	return &ClientService{
		context:      context.Background(),
		keys:         keys,
		modelConfigs: modelConfigs,
		providers:    providers,
		cache:        make(map[string]cachedGenerator),
	}
}

func (s *ClientService) Startup(ctx context.Context) error {
	s.context = ctx
	if s.keys == nil {
		return fmt.Errorf("keyring service not configured")
	}
	if s.modelConfigs == nil {
		return fmt.Errorf("model config service not configured")
	}
	return nil
}

// Generator returns a generator for the first enabled model among
// candidates, or any enabled model when none of them is usable.
func (s *ClientService) Generator(candidates ...string) (client.Generator, *models.LLMModel, error) {
	model, err := s.modelConfigs.ResolveModel(candidates...)
	if err != nil {
		return nil, nil, err
	}
	gen, err := s.instantiateLLMClient(model)
	if err != nil {
		return nil, nil, err
	}
	return gen, model, nil
}

func (s *ClientService) instantiateLLMClient(model *models.LLMModel) (client.Generator, error) {
	providerID := strings.TrimSpace(model.ProviderID)
	if providerID == "" {
		return nil, fmt.Errorf("model %s is missing provider information", model.DisplayName)
	}
	factory, ok := s.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported provider %s", client.ErrProviderUnavailable, providerID)
	}

	apiKey, err := s.keys.GetApiKey(providerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrProviderUnavailable, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key for %s is not configured", client.ErrProviderUnavailable, providerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[model.Key]; ok && cached.apiKey == apiKey {
		return cached.generator, nil
	}
	gen, err := factory(s.context, apiKey, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", providerID, err)
	}
	s.cache[model.Key] = cachedGenerator{apiKey: apiKey, generator: gen}
	log.Debug().Str("model", model.Key).Msg("generator created")
	return gen, nil
}
