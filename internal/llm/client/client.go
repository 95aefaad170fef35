package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"oneclick/internal/models"
)

const (
	DefaultOpenAIModel = "gpt-5-mini"
	DefaultClaudeModel = "claude-sonnet-4-5"

	claudeMaxTokens      = 16000
	claudeThinkingBudget = 4096
)

// chatModel is the part of an eino chat model the generator uses.
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ChatClient generates answers through an eino chat model. Earlier turns are
// replayed as real chat messages rather than a JSON blob.
type ChatClient struct {
	ChatModel chatModel
	Provider  string
	Model     string
}

type OpenAIModelOptions struct {
	Model           string
	ReasoningEffort string
}

type ClaudeModelOptions struct {
	Model    string
	Thinking bool
}

func NewOpenAIClient(ctx context.Context, key string, opts OpenAIModelOptions) (*ChatClient, error) {
	cfg, err := openAIConfig(key, opts)
	if err != nil {
		return nil, err
	}
	cm, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("model", cfg.Model).Msg("create openai chat model")
		return nil, err
	}
	return &ChatClient{ChatModel: cm, Provider: "openai", Model: cfg.Model}, nil
}

func openAIConfig(key string, opts OpenAIModelOptions) (*openai.ChatModelConfig, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: openai api key is empty", ErrProviderUnavailable)
	}
	cfg := &openai.ChatModelConfig{APIKey: key, Model: strings.TrimSpace(opts.Model)}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	switch effort := strings.ToLower(strings.TrimSpace(opts.ReasoningEffort)); effort {
	case "":
	case "low", "medium", "high":
		cfg.ReasoningEffort = openai.ReasoningEffortLevel(effort)
	default:
		return nil, fmt.Errorf("unsupported reasoning effort %q for %s", opts.ReasoningEffort, cfg.Model)
	}
	return cfg, nil
}

func NewClaudeClient(ctx context.Context, key string, opts ClaudeModelOptions) (*ChatClient, error) {
	cfg, err := claudeConfig(key, opts)
	if err != nil {
		return nil, err
	}
	cm, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("model", cfg.Model).Msg("create claude chat model")
		return nil, err
	}
	return &ChatClient{ChatModel: cm, Provider: "anthropic", Model: cfg.Model}, nil
}

func claudeConfig(key string, opts ClaudeModelOptions) (*claude.Config, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: anthropic api key is empty", ErrProviderUnavailable)
	}
	cfg := &claude.Config{APIKey: key, Model: strings.TrimSpace(opts.Model), MaxTokens: claudeMaxTokens}
	if cfg.Model == "" {
		cfg.Model = DefaultClaudeModel
	}
	if opts.Thinking {
		// The budget must stay below MaxTokens.
		cfg.Thinking = &claude.Thinking{Enable: true, BudgetTokens: claudeThinkingBudget}
	}
	return cfg, nil
}

func (c *ChatClient) Generate(ctx context.Context, req Request) (*Result, error) {
	parts, err := PromptParts(Request{Prompt: req.Prompt, Files: req.Files, Locale: req.Locale})
	if err != nil {
		return nil, err
	}
	// The history section is empty here; the turns go in as messages.
	messages := []*schema.Message{schema.SystemMessage(SystemPrompt(req.Locale))}
	history, _ := normalizeConversationHistory(historyMessages(req.History), "")
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(strings.Join(parts[:2], "\n\n")))

	out, err := c.ChatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.Provider, c.Model, err)
	}
	if out == nil {
		return nil, ErrEmptyResponse
	}
	return ParseResult(out.Content)
}

func historyMessages(history []models.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case models.RoleUserTurn:
			out = append(out, schema.UserMessage(m.Content))
		case models.RoleAssistantTurn:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}

const defaultFallbackUserMessage = "Continue from the previous conversation."

// normalizeConversationHistory ensures the first non-system message is from
// the user. Leading assistant messages are dropped; when no user message
// remains a fallback one is inserted. It reports whether history changed.
func normalizeConversationHistory(history []*schema.Message, fallback string) ([]*schema.Message, bool) {
	firstNonSystem := -1
	for i, m := range history {
		if m != nil && m.Role != schema.System {
			firstNonSystem = i
			break
		}
	}
	if firstNonSystem < 0 || history[firstNonSystem].Role == schema.User {
		return history, false
	}

	prefix := history[:firstNonSystem]
	rest := history[firstNonSystem:]
	for i, m := range rest {
		if m != nil && m.Role == schema.User {
			out := make([]*schema.Message, 0, len(prefix)+len(rest)-i)
			out = append(out, prefix...)
			out = append(out, rest[i:]...)
			return out, true
		}
	}

	if strings.TrimSpace(fallback) == "" {
		fallback = defaultFallbackUserMessage
	}
	out := make([]*schema.Message, 0, len(history)+1)
	out = append(out, prefix...)
	out = append(out, schema.UserMessage(fallback))
	out = append(out, rest...)
	return out, true
}
