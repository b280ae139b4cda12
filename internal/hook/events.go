package hook

import (
	"sync"

	"lpIncentive/internal/model"
)

// EventSink receives events emitted by the hook.
type EventSink interface {
	Emit(event model.HookEvent)
}

// EventBuffer collects events until drained.
type EventBuffer struct {
	mu     sync.Mutex
	events []model.HookEvent
}

func (b *EventBuffer) Emit(event model.HookEvent) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

// Drain returns the buffered events and empties the buffer.
func (b *EventBuffer) Drain() []model.HookEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

type discardSink struct{}

func (discardSink) Emit(model.HookEvent) {}
