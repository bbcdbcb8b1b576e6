package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handler processes a delivered event.
type Handler func(ctx context.Context, ev Event) error

// FilterFunc is a predicate for filtering events.
// Return true to allow the event, false to filter it out.
type FilterFunc func(ev Event) bool

// Priority determines handler execution order.
// Lower values execute first.
type Priority int

const (
	// PriorityHigh is for handlers that other handlers depend on.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for logging handlers that run last.
	PriorityLow Priority = 300
)

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*Subscription)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(s *Subscription) {
		s.priority = p
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(s *Subscription) {
		s.filter = f
	}
}

// WithOnce sets the subscription to auto-cancel after the first event.
func WithOnce() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// Subscription is a registered handler for a topic pattern.
type Subscription struct {
	id       string
	pattern  Topic
	handler  Handler
	priority Priority
	filter   FilterFunc
	once     bool
	seq      uint64
	canceled atomic.Bool
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic {
	return s.pattern
}

// IsActive returns true until the subscription is cancelled.
func (s *Subscription) IsActive() bool {
	return !s.canceled.Load()
}

func (s *Subscription) shouldDeliver(ev Event) bool {
	if !s.IsActive() || !ev.Topic.Matches(s.pattern) {
		return false
	}
	return s.filter == nil || s.filter(ev)
}

// Stats contains bus counters.
type Stats struct {
	EventsPublished   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

// Bus delivers events synchronously to matching subscriptions.
// It is safe for concurrent use; handlers may subscribe and unsubscribe
// while an event is being delivered.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	seq    uint64
	closed bool

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{
		id:       uuid.NewString(),
		pattern:  pattern,
		handler:  handler,
		priority: PriorityNormal,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.seq++
	sub.seq = b.seq
	b.subs = append(b.subs, sub)
	sort.SliceStable(b.subs, func(i, j int) bool {
		if b.subs[i].priority != b.subs[j].priority {
			return b.subs[i].priority < b.subs[j].priority
		}
		return b.subs[i].seq < b.subs[j].seq
	})
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.canceled.Store(true)
	if !b.remove(sub.id) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers ev to every matching subscription in priority order.
// Handler errors and panics do not stop delivery; they are joined and
// returned once all handlers have run.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if !ev.Topic.IsValid() || ev.Topic.segmentsContainWildcard() {
		return ErrInvalidTopic
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.shouldDeliver(ev) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	b.eventsPublished.Add(1)

	var errs []error
	for _, s := range subs {
		if s.once {
			if !s.canceled.CompareAndSwap(false, true) {
				continue
			}
			b.remove(s.id)
		} else if !s.IsActive() {
			continue
		}
		if err := b.dispatch(ctx, s, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dispatch runs a single handler, converting a panic into a *PanicError.
func (b *Bus) dispatch(ctx context.Context, s *Subscription, ev Event) (err error) {
	b.handlersExecuted.Add(1)
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &PanicError{SubscriptionID: s.id, Topic: ev.Topic, Value: r}
		}
	}()
	if herr := s.handler(ctx, ev); herr != nil {
		b.handlerErrors.Add(1)
		return &HandlerError{SubscriptionID: s.id, Topic: ev.Topic, Err: herr}
	}
	return nil
}

// Close cancels every subscription. Later calls to Publish and Subscribe
// return ErrBusClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.closed = true
	for _, s := range b.subs {
		s.canceled.Store(true)
	}
	b.subs = nil
	return nil
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}
