package realtime

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// Event names written on the notification stream.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventPing         = "ping"
)

// Event - one frame on a stream. Data is the JSON payload.
type Event struct {
	Name string
	Data []byte
}

// ConnectedEvent is written once when a stream opens.
func ConnectedEvent() Event {
	return Event{Name: EventConnected, Data: []byte(`{"status": "connected"}`)}
}

// PingEvent is written when a stream has been idle for the heartbeat interval.
func PingEvent() Event {
	return Event{Name: EventPing, Data: []byte(`{}`)}
}

// Subscription - the delivery queue of one open stream. It is created by
// Registry.Register and stays valid until Registry.Unregister.
type Subscription struct {
	id     string
	userID uint
	events chan Event
	clock  clock.Clock
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) UserID() uint {
	return s.userID
}

// offer enqueues ev without blocking and reports whether there was room.
func (s *Subscription) offer(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Next waits for the next queued event. It returns ok=false with a nil error
// when timeout passes without one, and the context error when ctx is done.
// Events come out in the order they were published.
func (s *Subscription) Next(ctx context.Context, timeout time.Duration) (ev Event, ok bool, err error) {
	select {
	case ev = <-s.events:
		return ev, true, nil
	default:
	}

	timer := s.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev = <-s.events:
		return ev, true, nil
	case <-timer.Chan():
		return Event{}, false, nil
	case <-ctx.Done():
		return Event{}, false, ctx.Err()
	}
}
