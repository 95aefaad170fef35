package assets

import _ "embed"

// ModelsData holds the raw JSON catalog of generator models.
//
//go:embed models.json
var ModelsData []byte

// PackagesData holds the TOML token package catalog seeded on startup.
//
//go:embed packages.toml
var PackagesData []byte

// AndroidWorkflow is the CI descriptor committed with every build push.
//
//go:embed workflows/android.yml
var AndroidWorkflow string

// SystemPrompt is the generator persona. {{LANGUAGE}} is replaced per request.
//
//go:embed prompts/system.txt
var SystemPrompt string
