package client

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"oneclick/internal/assets"
	"oneclick/internal/models"
)

var languageNames = map[string]string{
	"bn": "BENGALI",
	"en": "ENGLISH",
	"hi": "HINDI",
}

// SystemPrompt renders the persona for the answer locale. Unknown locales are
// passed through so the model can still follow them.
func SystemPrompt(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	lang, ok := languageNames[locale]
	if !ok {
		lang = strings.ToUpper(locale)
	}
	if lang == "" {
		lang = languageNames["bn"]
	}
	return strings.ReplaceAll(assets.SystemPrompt, "{{LANGUAGE}}", lang)
}

// historyTurn is the shape of a turn as shown to the model.
type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptParts returns the user, code and history sections sent with every
// request.
func PromptParts(req Request) ([]string, error) {
	files := req.Files
	if files == nil {
		files = map[string]string{}
	}
	code, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encode files: %w", err)
	}
	turns := make([]historyTurn, 0, len(req.History))
	for _, m := range req.History {
		turns = append(turns, historyTurn{Role: m.Role, Content: m.Content})
	}
	history, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return []string{
		"User: " + req.Prompt,
		"Current Code: " + string(code),
		"History: " + string(history),
	}, nil
}

// dropLeadingAssistant removes assistant turns before the first user turn;
// providers expect a conversation to open with the user.
func dropLeadingAssistant(history []models.ChatMessage) []models.ChatMessage {
	for i, m := range history {
		if m.Role == models.RoleUserTurn {
			return history[i:]
		}
	}
	return nil
}
