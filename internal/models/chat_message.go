package models

const (
	RoleUserTurn      = "user"
	RoleAssistantTurn = "assistant"
)

const (
	InputSingle   = "single"
	InputMultiple = "multiple"
	InputText     = "text"
)

// ChoiceOption is a selectable answer offered by the assistant.
type ChoiceOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FollowUpChoice is a suggested next instruction.
type FollowUpChoice struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// ChatMessage is one conversation turn. CreatedAt is RFC3339Nano.
type ChatMessage struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	CreatedAt string            `json:"createdAt"`
	InputType string            `json:"inputType,omitempty"`
	Options   []ChoiceOption    `json:"options,omitempty"`
	Choices   []FollowUpChoice  `json:"choices,omitempty"`
	Files     map[string]string `json:"files,omitempty"`
}
