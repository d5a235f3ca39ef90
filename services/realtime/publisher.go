package realtime

import (
	"encoding/json"

	"stackit-backend/models/notification"
)

// Publisher pushes stored notifications to their recipient's streams.
type Publisher struct {
	registry *Registry
}

func NewPublisher(registry *Registry) *Publisher {
	return &Publisher{registry: registry}
}

// Publish sends n to every open stream of n.UserID. It must only be called
// once n is committed. Nothing here fails the caller; problems are logged.
func (p *Publisher) Publish(n notification.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		logger.Errorf("encoding notification %d: %v", n.ID, err)
		return
	}
	delivered := p.registry.Publish(n.UserID, Event{Name: EventNotification, Data: data})
	logger.Tracef("notification %d for user %d reached %d streams", n.ID, n.UserID, delivered)
}
