// Package client talks to the language model providers that turn a user
// instruction into project files.
package client

import (
	"context"
	"errors"

	"oneclick/internal/models"
)

var (
	ErrEmptyResponse       = errors.New("generator returned an empty response")
	ErrMalformedResponse   = errors.New("generator response does not match the expected schema")
	ErrProviderUnavailable = errors.New("generator provider is not configured")
)

// Generator produces the next assistant turn for a project.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Request carries one instruction with the project it applies to. Files and
// History are copies owned by the generator for the duration of the call.
type Request struct {
	Prompt  string
	Files   map[string]string
	History []models.ChatMessage
	Locale  string
}

// Result is a validated generator answer. Files holds only the paths the
// model created or changed.
type Result struct {
	Answer    string            `json:"answer" validate:"required"`
	InputType string            `json:"inputType,omitempty" validate:"omitempty,oneof=single multiple text"`
	Options   []Option          `json:"options,omitempty" validate:"dive"`
	Choices   []Choice          `json:"choices,omitempty" validate:"dive"`
	Files     map[string]string `json:"files,omitempty" validate:"dive,keys,required,endkeys"`
	Thought   string            `json:"thought,omitempty"`
}

type Option struct {
	Label string `json:"label" validate:"required"`
	Value string `json:"value"`
}

type Choice struct {
	Label  string `json:"label" validate:"required"`
	Prompt string `json:"prompt" validate:"required"`
}

// ChoiceOptions converts options for storage on a conversation turn.
func (r *Result) ChoiceOptions() []models.ChoiceOption {
	if len(r.Options) == 0 {
		return nil
	}
	out := make([]models.ChoiceOption, len(r.Options))
	for i, o := range r.Options {
		out[i] = models.ChoiceOption{Label: o.Label, Value: o.Value}
	}
	return out
}

func (r *Result) FollowUps() []models.FollowUpChoice {
	if len(r.Choices) == 0 {
		return nil
	}
	out := make([]models.FollowUpChoice, len(r.Choices))
	for i, c := range r.Choices {
		out[i] = models.FollowUpChoice{Label: c.Label, Prompt: c.Prompt}
	}
	return out
}
