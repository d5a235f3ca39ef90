package notifications

import (
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/respond"
	"stackit-backend/services/realtime"
)

var logger = loggo.GetLogger("stackit.http.stream")

// DefaultHeartbeat - idle time after which a ping is written.
const DefaultHeartbeat = 30 * time.Second

// Stream serves GET /api/notifications/stream as text/event-stream. It must
// sit behind RequireUser. Each open stream holds one registry subscription
// for as long as the client stays connected.
type Stream struct {
	Registry  *realtime.Registry
	Heartbeat time.Duration
}

func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u := authentication.CurrentUser(r.Context())
	if u == nil {
		respond.Error(w, r, errors.Unauthorizedf("authentication required"))
		return
	}
	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	if !canFlush(w) {
		respond.Error(w, r, errors.NotSupportedf("streaming on this connection"))
		return
	}
	rc := http.NewResponseController(w)
	// The server write timeout would cut every stream short.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warningf("clearing write deadline: %v", err)
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := s.Registry.Register(u.ID)
	defer s.Registry.Unregister(u.ID, sub)
	logger.Debugf("stream %s opened for user %d", sub.ID(), u.ID)

	send := func(ev realtime.Event) error {
		if err := realtime.WriteEvent(w, ev); err != nil {
			return err
		}
		return errors.Annotate(rc.Flush(), "flushing stream")
	}
	if err := send(realtime.ConnectedEvent()); err != nil {
		logger.Debugf("stream %s: %v", sub.ID(), err)
		return
	}

	ctx := r.Context()
	for {
		ev, ok, err := sub.Next(ctx, heartbeat)
		if err != nil {
			logger.Debugf("stream %s closed: %v", sub.ID(), err)
			return
		}
		if !ok {
			ev = realtime.PingEvent()
		}
		if err := send(ev); err != nil {
			logger.Debugf("stream %s: %v", sub.ID(), err)
			return
		}
	}
}

// canFlush reports whether w, or a writer it wraps, is an http.Flusher.
func canFlush(w http.ResponseWriter) bool {
	for {
		switch t := w.(type) {
		case http.Flusher:
			return true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return false
		}
	}
}
