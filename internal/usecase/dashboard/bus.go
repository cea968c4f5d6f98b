package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler reacts to a dashboard refresh signal.
type Handler func(ctx context.Context) error

type subscription struct {
	name string
	fn   Handler
}

// Bus dispatches refresh signals to registered handlers in registration order.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn under name. Registering a name again replaces its handler.
func (b *Bus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.subs {
		if b.subs[i].name == name {
			b.subs[i].fn = fn
			return
		}
	}
	b.subs = append(b.subs, subscription{name: name, fn: fn})
}

// Unsubscribe removes the handler registered under name.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.subs {
		if b.subs[i].name == name {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish runs every handler, one after another, and joins their errors.
func (b *Bus) Publish(ctx context.Context) error {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
