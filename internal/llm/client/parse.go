package client

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

var validate = validator.New()

// ParseResult decodes and validates a raw model answer. Markdown code fences
// around the JSON are tolerated.
func ParseResult(raw string) (*Result, error) {
	text := stripCodeFence(raw)
	if text == "" || text == "{}" {
		return nil, ErrEmptyResponse
	}

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	res.Answer = strings.TrimSpace(res.Answer)

	if len(res.Files) > 0 {
		files := make(map[string]string, len(res.Files))
		for p, content := range res.Files {
			clean, ok := cleanFilePath(p)
			if !ok {
				return nil, fmt.Errorf("%w: invalid file path %q", ErrMalformedResponse, p)
			}
			files[clean] = content
		}
		res.Files = files
	}

	if err := validate.Struct(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &res, nil
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// Drop the language tag line.
		text = text[nl+1:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// cleanFilePath normalizes a project path and rejects absolute or escaping
// ones.
func cleanFilePath(p string) (string, bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}
