package services

import (
	"context"

	"oneclick/internal/events"
)

// EventEmitterService fans events out to connected streams and the log.
type EventEmitterService struct {
	broadcaster *events.Broadcaster
	emitter     events.Emitter
}

func NewEventEmitterService(b *events.Broadcaster) *EventEmitterService {
	if b == nil {
		return &EventEmitterService{emitter: events.Logger}
	}
	return &EventEmitterService{
		broadcaster: b,
		emitter:     events.Multi(b, events.Logger),
	}
}

// Emitter returns the sink services hand to orchestrators and sessions.
func (e *EventEmitterService) Emitter() events.Emitter {
	if e == nil {
		return events.Nop
	}
	return e.emitter
}

// EmitEvent sends evt to the streams of sessionKey.
func (e *EventEmitterService) EmitEvent(ctx context.Context, sessionKey, name string, evt events.Event) {
	if e == nil {
		return
	}
	events.Scoped(e.emitter, sessionKey).Emit(ctx, name, evt)
}

func (e *EventEmitterService) Broadcaster() *events.Broadcaster {
	if e == nil {
		return nil
	}
	return e.broadcaster
}
