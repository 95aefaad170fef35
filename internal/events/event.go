package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

const (
	BuildPhase   = "build:phase"
	BuildLog     = "build:log"
	StudioTurn   = "studio:turn"
	StudioFiles  = "studio:files"
	AccountToken = "account:tokens"
)

// Event is the payload pushed to a user's event stream.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionKey string            `json:"-"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// With returns a copy of e carrying an extra metadata pair.
func (e Event) With(key, value string) Event {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

type contextKey string

const sessionContextKey contextKey = "oneclick/events/session"

// WithSession returns a derived context annotated with the given session key
// so emitters can scope payloads to one user.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	if strings.TrimSpace(sessionKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionKey)
}

// SessionFromContext extracts the session key associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func New(eventType EventType, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewInfo creates an info Event.
func NewInfo(message string) Event {
	return New(EventInfo, message)
}

// NewWarn creates a warn Event.
func NewWarn(message string) Event {
	return New(EventWarn, message)
}

// NewError creates an error Event.
func NewError(message string) Event {
	return New(EventError, message)
}

// NewSuccess creates a success Event.
func NewSuccess(message string) Event {
	return New(EventSuccess, message)
}
