package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viant/nodeflow/internal/idgen"
	"github.com/viant/nodeflow/internal/logging"
)

// Handler receives published events.
type Handler func(ctx context.Context, e *Event[any])

type subscription struct {
	id      string
	seq     uint64
	handler Handler
	types   map[Type]bool
}

func (s *subscription) accepts(t Type) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus is a synchronous in-process publish/subscribe channel. Publish
// invokes matching handlers in subscription order on the caller goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	seq    uint64
	logger *slog.Logger
}

// Option customises a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	ret := &Bus{subs: map[string]*subscription{}}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = logging.Discard()
	}
	return ret
}

// Subscribe registers handler for the given types (all types when none)
// and returns the subscription id.
func (b *Bus) Subscribe(handler Handler, types ...Type) string {
	sub := &subscription{id: idgen.WithPrefix("sub"), handler: handler}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	b.mu.Lock()
	b.seq++
	sub.seq = b.seq
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub.id
}

// SubscribeOf registers a handler receiving only events whose payload is T.
func SubscribeOf[T any](b *Bus, handler func(ctx context.Context, e *Event[T]), types ...Type) string {
	return b.Subscribe(func(ctx context.Context, e *Event[any]) {
		data, ok := e.Data.(T)
		if !ok {
			return
		}
		handler(ctx, &Event[T]{ID: e.ID, Type: e.Type, NodeID: e.NodeID, CreatedAt: e.CreatedAt, Data: data})
	}, types...)
}

// Unsubscribe removes a subscription; it returns false when id is unknown.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; !ok {
		return false
	}
	delete(b.subs, id)
	return true
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Reset drops every subscription.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.subs = map[string]*subscription{}
	b.mu.Unlock()
}

// Publish delivers e to every matching subscriber. Handler panics are
// recovered and logged so that one faulty consumer cannot break the engine.
func (b *Bus) Publish(ctx context.Context, e *Event[any]) {
	if b == nil || e == nil {
		return
	}
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.accepts(e.Type) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()
	sortBySeq(subs)
	for _, sub := range subs {
		b.deliver(ctx, sub, e)
	}
}

// Emit is a convenience wrapper building and publishing an event.
func (b *Bus) Emit(ctx context.Context, eventType Type, nodeID string, data any) {
	b.Publish(ctx, NewEvent[any](eventType, nodeID, data))
}

func (b *Bus) deliver(ctx context.Context, sub *subscription, e *Event[any]) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "subscription", sub.id, "type", e.Type, "panic", r)
		}
	}()
	sub.handler(ctx, e)
}

func sortBySeq(subs []*subscription) {
	for i := 1; i < len(subs); i++ {
		for j := i; j > 0 && subs[j].seq < subs[j-1].seq; j-- {
			subs[j], subs[j-1] = subs[j-1], subs[j]
		}
	}
}
