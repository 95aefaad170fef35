package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Emitter delivers named events.
type Emitter interface {
	Emit(ctx context.Context, name string, evt Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, name string, evt Event)

func (f EmitterFunc) Emit(ctx context.Context, name string, evt Event) {
	f(ctx, name, evt)
}

// Nop discards every event.
var Nop Emitter = EmitterFunc(func(context.Context, string, Event) {})

// Scoped stamps events with sessionKey, falling back to the key carried by
// the context, before handing them to next.
func Scoped(next Emitter, sessionKey string) Emitter {
	if next == nil {
		next = Nop
	}
	return EmitterFunc(func(ctx context.Context, name string, evt Event) {
		if evt.SessionKey == "" {
			evt.SessionKey = sessionKey
		}
		if evt.SessionKey == "" {
			evt.SessionKey = SessionFromContext(ctx)
		}
		next.Emit(ctx, name, evt)
	})
}

// Multi fans an event out to every emitter in order.
func Multi(emitters ...Emitter) Emitter {
	return EmitterFunc(func(ctx context.Context, name string, evt Event) {
		for _, e := range emitters {
			if e != nil {
				e.Emit(ctx, name, evt)
			}
		}
	})
}

// Logger writes events to the global zerolog logger at a level matching
// their type.
var Logger Emitter = EmitterFunc(func(_ context.Context, name string, evt Event) {
	entry := log.Info()
	switch evt.Type {
	case EventError:
		entry = log.Error()
	case EventWarn:
		entry = log.Warn()
	case EventInfo:
		entry = log.Debug()
	}
	entry = entry.Str("event", name).Str("session", evt.SessionKey)
	for k, v := range evt.Metadata {
		entry = entry.Str(k, v)
	}
	entry.Msg(evt.Message)
})
