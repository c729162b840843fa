// Package events is an in-process publish/subscribe channel. Plugins are handed a Bus at
// construction instead of reaching for a process wide singleton, so their lifetime on the bus is
// explicit: they subscribe in their constructor and unsubscribe when destroyed.
//
// Events are routed by their dynamic Go type. Delivery is synchronous, on the publisher's
// goroutine, in the order events are published, and a handler may publish further events.
//
//	bus := events.NewBus(logger)
//	defer bus.Close()
//
//	sub, err := events.Subscribe(bus, func(ev flash.ModeRequestEvent) { ... })
//	...
//	bus.Publish(flash.ModeRequestEvent{Mode: flash.Auto})
//	bus.Unsubscribe(sub)
package events

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/camview/logging"
)

var (
	// ErrBusClosed is returned by every operation on a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrSubscriptionNotFound is returned when unsubscribing something that is not subscribed.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("event handler cannot be nil")

	// ErrNilEvent is returned when publishing nil.
	ErrNilEvent = errors.New("cannot publish a nil event")
)

// Subscription identifies one registered handler.
type Subscription struct {
	id        uuid.UUID
	eventType reflect.Type
}

// ID is the subscription's unique id.
func (s Subscription) ID() uuid.UUID {
	return s.id
}

// EventType is the type of event the handler receives.
func (s Subscription) EventType() reflect.Type {
	return s.eventType
}

func (s Subscription) String() string {
	return fmt.Sprintf("%s(%s)", s.eventType, s.id)
}

// SubscriptionStats are the counters of a single subscription.
type SubscriptionStats struct {
	// Delivered is the number of events handed to the handler.
	Delivered uint64
	// Panicked is the number of deliveries where the handler panicked.
	Panicked uint64
}

// Stats is a snapshot of the bus counters.
type Stats struct {
	// TotalPublished is the number of events published.
	TotalPublished uint64
	// TotalDelivered is the number of handler invocations.
	TotalDelivered uint64
	// Unrouted is the number of events published with no subscriber for their type.
	Unrouted uint64
	// Subscriptions is the number of live subscriptions.
	Subscriptions int
}

// Bus routes events to the handlers subscribed to their type. It is safe for concurrent use.
type Bus struct {
	logger logging.Logger

	mu         sync.RWMutex
	byType     map[reflect.Type][]*subscriber
	interfaces []*subscriber
	byID       map[uuid.UUID]*subscriber

	closed         atomic.Bool
	totalPublished atomic.Uint64
	totalDelivered atomic.Uint64
	unrouted       atomic.Uint64
}

// NewBus returns an open bus.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		logger: logger,
		byType: map[reflect.Type][]*subscriber{},
		byID:   map[uuid.UUID]*subscriber{},
	}
}

// Subscribe registers fn for every event whose type is T. If T is an interface, fn receives every
// event that implements it. The handler is live when Subscribe returns.
func Subscribe[T any](b *Bus, fn func(T)) (Subscription, error) {
	if fn == nil {
		return Subscription{}, ErrNilHandler
	}
	eventType := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(eventType, func(event any) {
		fn(event.(T))
	})
}

func (b *Bus) subscribe(eventType reflect.Type, handler func(any)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return Subscription{}, ErrBusClosed
	}

	sub := newSubscriber(eventType, handler)
	if eventType.Kind() == reflect.Interface {
		b.interfaces = append(b.interfaces, sub)
	} else {
		b.byType[eventType] = append(b.byType[eventType], sub)
	}
	b.byID[sub.id] = sub

	b.logger.Debugw("subscribed", "subscription", sub.id.String(), "event_type", eventType.String())
	return Subscription{id: sub.id, eventType: eventType}, nil
}

// Unsubscribe removes a subscription. Once it returns no new call of the handler starts, including
// the remaining deliveries of an event being published. It never waits: a call already running,
// on this goroutine lower in the stack or on another one, runs to completion. Handlers that must
// not act after their owner is torn down check that themselves. A handler may unsubscribe its own
// subscription.
func (b *Bus) Unsubscribe(s Subscription) error {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return ErrBusClosed
	}
	sub, ok := b.byID[s.id]
	if !ok {
		b.mu.Unlock()
		return errors.Wrapf(ErrSubscriptionNotFound, "%s", s)
	}
	delete(b.byID, s.id)
	if sub.eventType.Kind() == reflect.Interface {
		b.interfaces = without(b.interfaces, sub)
	} else {
		remaining := without(b.byType[sub.eventType], sub)
		if len(remaining) == 0 {
			delete(b.byType, sub.eventType)
		} else {
			b.byType[sub.eventType] = remaining
		}
	}
	b.mu.Unlock()

	sub.deactivate()
	b.logger.Debugw("unsubscribed", "subscription", s.id.String(), "event_type", sub.eventType.String())
	return nil
}

func without(subs []*subscriber, target *subscriber) []*subscriber {
	out := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub != target {
			out = append(out, sub)
		}
	}
	return out
}

// Publish delivers event to every handler subscribed to its type, in subscription order, before
// returning. A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(event any) error {
	if event == nil {
		return ErrNilEvent
	}
	if b.closed.Load() {
		return ErrBusClosed
	}
	b.totalPublished.Inc()

	eventType := reflect.TypeOf(event)
	b.mu.RLock()
	targets := append([]*subscriber{}, b.byType[eventType]...)
	for _, sub := range b.interfaces {
		if eventType.Implements(sub.eventType) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.unrouted.Inc()
		b.logger.Debugw("no subscribers for event", "event_type", eventType.String())
		return nil
	}

	for _, sub := range targets {
		if sub.deliver(event, b.logger) {
			b.totalDelivered.Inc()
		}
	}
	return nil
}

// SubscriptionStats returns the counters of a live subscription.
func (b *Bus) SubscriptionStats(s Subscription) (SubscriptionStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.byID[s.id]
	if !ok {
		return SubscriptionStats{}, errors.Wrapf(ErrSubscriptionNotFound, "%s", s)
	}
	return SubscriptionStats{
		Delivered: sub.delivered.Load(),
		Panicked:  sub.panicked.Load(),
	}, nil
}

// Stats returns a snapshot of the bus counters. It keeps working after Close.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		TotalPublished: b.totalPublished.Load(),
		TotalDelivered: b.totalDelivered.Load(),
		Unrouted:       b.unrouted.Load(),
		Subscriptions:  len(b.byID),
	}
}

// Close removes every subscription and rejects further use. Like Unsubscribe it does not wait
// for running handlers, so a handler may close the bus. Closing twice is a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	if !b.closed.CompareAndSwap(false, true) {
		b.mu.Unlock()
		return nil
	}
	subs := make([]*subscriber, 0, len(b.byID))
	for _, sub := range b.byID {
		subs = append(subs, sub)
	}
	b.byType = map[reflect.Type][]*subscriber{}
	b.interfaces = nil
	b.byID = map[uuid.UUID]*subscriber{}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deactivate()
	}
	return nil
}
