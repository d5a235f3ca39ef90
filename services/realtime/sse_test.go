package realtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"stackit-backend/models/notification"
	"stackit-backend/services/realtime"
)

type SSESuite struct{}

var _ = gc.Suite(&SSESuite{})

func (*SSESuite) TestWriteEvent(c *gc.C) {
	var buf bytes.Buffer
	c.Assert(realtime.WriteEvent(&buf, realtime.ConnectedEvent()), jc.ErrorIsNil)
	c.Assert(realtime.WriteEvent(&buf, realtime.PingEvent()), jc.ErrorIsNil)
	c.Assert(buf.String(), gc.Equals,
		"event: connected\ndata: {\"status\": \"connected\"}\n\n"+
			"event: ping\ndata: {}\n\n")
}

func (*SSESuite) TestWriteEventMultiline(c *gc.C) {
	var buf bytes.Buffer
	err := realtime.WriteEvent(&buf, realtime.Event{Name: "notification", Data: []byte("{\n  \"id\": 1\r\n}")})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(buf.String(), gc.Equals, "event: notification\ndata: {\ndata:   \"id\": 1\ndata: }\n\n")
}

type PublisherSuite struct{}

var _ = gc.Suite(&PublisherSuite{})

func (*PublisherSuite) TestPublishNotification(c *gc.C) {
	registry := realtime.NewRegistry(realtime.RegistryConfig{})
	sub := registry.Register(3)
	publisher := realtime.NewPublisher(registry)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	publisher.Publish(notification.Notification{
		ID:        9,
		UserID:    3,
		Type:      notification.KindAnswer,
		SourceID:  42,
		CreatedAt: created,
	})

	ev, ok, err := sub.Next(context.Background(), time.Second)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(ok, jc.IsTrue)
	c.Assert(ev.Name, gc.Equals, realtime.EventNotification)

	var payload map[string]interface{}
	c.Assert(json.Unmarshal(ev.Data, &payload), jc.ErrorIsNil)
	c.Assert(payload, jc.DeepEquals, map[string]interface{}{
		"id":         float64(9),
		"user_id":    float64(3),
		"type":       "answer",
		"source_id":  float64(42),
		"read":       false,
		"created_at": "2026-01-02T03:04:05Z",
	})
}

func (*PublisherSuite) TestPublishWithoutStreams(c *gc.C) {
	registry := realtime.NewRegistry(realtime.RegistryConfig{})
	realtime.NewPublisher(registry).Publish(notification.Notification{ID: 1, UserID: 5})
	c.Assert(registry.Len(), gc.Equals, 0)
}
