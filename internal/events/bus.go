package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously; Publish never blocks the init loop.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(ProcessReapedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ProcessReapedEvent:
		event.Publish(b.dispatcher, e)
	case OrphanStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case CommandSpawnedEvent:
		event.Publish(b.dispatcher, e)
	case CommandRekeyedEvent:
		event.Publish(b.dispatcher, e)
	case CommandDroppedEvent:
		event.Publish(b.dispatcher, e)
	case SignalReceivedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the events it receives.
// Returns an unsubscribe function, a no-op for unknown handler types.
// Usage: unsub := bus.Subscribe(func(e CommandDroppedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ProcessReapedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OrphanStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandSpawnedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandRekeyedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SignalReceivedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T into ch. Events are dropped
// when ch is full. Used by the SSE endpoint, which selects over a channel.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeAll forwards every event type into ch. Returns one function that
// removes all the subscriptions.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[ProcessReapedEvent](bus, ch),
		SubscribeToChannel[OrphanStateChangedEvent](bus, ch),
		SubscribeToChannel[CommandSpawnedEvent](bus, ch),
		SubscribeToChannel[CommandRekeyedEvent](bus, ch),
		SubscribeToChannel[CommandDroppedEvent](bus, ch),
		SubscribeToChannel[SignalReceivedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
