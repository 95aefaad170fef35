package client

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"

	"oneclick/internal/models"
)

const DefaultHistoryTurns = 15

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// countTokens estimates the prompt cost of text. It falls back to four bytes
// per token when the encoder is unavailable.
func countTokens(text string) int {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("tokenizer unavailable, estimating by length")
			return
		}
		codec = c
	})
	if codec != nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return (len(text) + 3) / 4
}

// TrimHistory keeps the newest maxTurns turns, then drops the oldest until
// the remainder fits tokenBudget. The newest turn is always kept. A budget of
// zero disables the token check. The result never opens with an assistant
// turn.
func TrimHistory(history []models.ChatMessage, maxTurns, tokenBudget int) []models.ChatMessage {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryTurns
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	if tokenBudget > 0 && len(history) > 0 {
		costs := make([]int, len(history))
		total := 0
		for i, m := range history {
			costs[i] = countTokens(m.Content)
			total += costs[i]
		}
		start := 0
		for total > tokenBudget && start < len(history)-1 {
			total -= costs[start]
			start++
		}
		history = history[start:]
	}
	trimmed := dropLeadingAssistant(history)
	out := make([]models.ChatMessage, len(trimmed))
	copy(out, trimmed)
	return out
}
