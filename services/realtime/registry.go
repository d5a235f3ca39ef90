// Package realtime fans newly stored notifications out to the open
// notification streams of their recipients.
//
// Delivery is best effort: a stream that is not draining its queue loses
// events, and the notification rows stay the record of truth.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("stackit.realtime")

// DefaultBufferSize - queued events per subscription when none is configured.
const DefaultBufferSize = 64

type RegistryConfig struct {
	// BufferSize bounds each subscription's queue.
	BufferSize int

	// Clock drives the idle timeout of Subscription.Next.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *Metrics
}

// Registry maps users to the set of their open subscriptions. A user can have
// several at once, one per open stream.
type Registry struct {
	mu          sync.Mutex
	subscribers map[uint]map[*Subscription]struct{}

	bufferSize int
	clock      clock.Clock
	metrics    *Metrics
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	return &Registry{
		subscribers: make(map[uint]map[*Subscription]struct{}),
		bufferSize:  cfg.BufferSize,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
	}
}

// Register adds a new subscription for userID.
func (r *Registry) Register(userID uint) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		userID: userID,
		events: make(chan Event, r.bufferSize),
		clock:  r.clock,
	}

	r.mu.Lock()
	set, ok := r.subscribers[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		r.subscribers[userID] = set
	}
	set[sub] = struct{}{}
	r.mu.Unlock()

	r.metrics.subscribed()
	logger.Debugf("user %d subscribed (%s)", userID, sub.id)
	return sub
}

// Unregister removes sub from userID's set. Removing a subscription that is
// already gone, or that belongs to another user, does nothing.
func (r *Registry) Unregister(userID uint, sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	set := r.subscribers[userID]
	_, found := set[sub]
	if found {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.subscribers, userID)
		}
	}
	r.mu.Unlock()

	if found {
		r.metrics.unsubscribed()
		logger.Debugf("user %d unsubscribed (%s)", userID, sub.id)
	}
}

// Publish offers ev to every subscription of userID and returns how many
// accepted it. It never blocks: a full subscription drops the event.
//
// The lock is held across the offers, so all of a user's subscriptions see
// events in the same order and none is offered an event after Unregister
// returned.
func (r *Registry) Publish(userID uint, ev Event) int {
	var delivered int
	var dropped []string

	r.mu.Lock()
	for sub := range r.subscribers[userID] {
		if sub.offer(ev) {
			delivered++
		} else {
			dropped = append(dropped, sub.id)
		}
	}
	r.mu.Unlock()

	r.metrics.published(delivered, len(dropped))
	for _, id := range dropped {
		logger.Warningf("dropped %q event for user %d (%s): queue full", ev.Name, userID, id)
	}
	return delivered
}

// Subscribers returns the number of open subscriptions of userID.
func (r *Registry) Subscribers(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers[userID])
}

// Len returns the number of users with at least one subscription.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}
