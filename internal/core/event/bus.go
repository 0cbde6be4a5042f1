package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus built once per simulation session.
// Events emitted in tick N are readable in tick N+1. SwapBuffers() is called at
// tick start by the dispatch system. Publish bypasses the buffers for
// notifications that cannot wait for the next tick (critical errors).
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer (will be readable next tick).
// A nil bus drops the event.
func Emit[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	t := reflect.TypeFor[T]()
	b.back[t] = append(b.back[t], event)
}

// Publish delivers an event to its handlers immediately, in subscription order.
func Publish[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	for _, h := range b.handlers[reflect.TypeFor[T]()] {
		h.(func(T))(event)
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeFor[T]()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() int {
	n := 0
	for t, events := range b.front {
		handlers := b.handlers[t]
		for _, ev := range events {
			for _, h := range handlers {
				// Subscribe and Emit use the same type key, so the
				// handler's parameter type matches ev's dynamic type.
				callHandler(h, ev)
			}
			n++
		}
		b.front[t] = events[:0]
	}
	return n
}

// Queued returns the number of events waiting in the back buffer.
func (b *Bus) Queued() int {
	n := 0
	for _, events := range b.back {
		n += len(events)
	}
	return n
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
