package events

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"go.viam.com/camview/logging"
)

// subscriber is one registered handler. active is read before each delivery and no lock is held
// while the handler runs, so a handler can publish, unsubscribe or close the bus.
type subscriber struct {
	id        uuid.UUID
	eventType reflect.Type
	handler   func(any)

	active atomic.Bool

	delivered atomic.Uint64
	panicked  atomic.Uint64
}

func newSubscriber(eventType reflect.Type, handler func(any)) *subscriber {
	sub := &subscriber{
		id:        uuid.New(),
		eventType: eventType,
		handler:   handler,
	}
	sub.active.Store(true)
	return sub
}

// deliver calls the handler unless the subscriber was deactivated. It reports whether the
// handler ran.
func (s *subscriber) deliver(event any, logger logging.Logger) (ran bool) {
	if !s.active.Load() {
		return false
	}
	s.delivered.Inc()
	defer func() {
		if r := recover(); r != nil {
			s.panicked.Inc()
			logger.Errorw("event handler panicked",
				"subscription", s.id.String(),
				"event_type", s.eventType.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	ran = true
	s.handler(event)
	return ran
}

// deactivate stops deliveries that have not started yet. It does not wait for running ones.
func (s *subscriber) deactivate() {
	s.active.Store(false)
}
