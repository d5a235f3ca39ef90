package services_test

import (
	"context"
	"sync"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
	"gorm.io/gorm"

	"stackit-backend/models/notification"
	"stackit-backend/models/users"
	"stackit-backend/services"
	coretesting "stackit-backend/testing"
)

// recordingPublisher keeps what would have been pushed to open streams.
type recordingPublisher struct {
	mu        sync.Mutex
	published []notification.Notification
	onPublish func(notification.Notification)
}

func (p *recordingPublisher) Publish(n notification.Notification) {
	if p.onPublish != nil {
		p.onPublish(n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
}

func (p *recordingPublisher) all() []notification.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notification.Notification(nil), p.published...)
}

type NotificationSuite struct {
	db        *gorm.DB
	publisher *recordingPublisher
	service   *services.NotificationService
}

var _ = gc.Suite(&NotificationSuite{})

func (s *NotificationSuite) SetUpTest(c *gc.C) {
	s.db = coretesting.NewDB(c)
	s.publisher = &recordingPublisher{}
	s.service = &services.NotificationService{DB: s.db, Publisher: s.publisher}
}

func (s *NotificationSuite) TearDownTest(c *gc.C) {
	coretesting.CloseDB(c, s.db)
}

func (s *NotificationSuite) TestCreatePersistsBeforePublishing(c *gc.C) {
	s.publisher.onPublish = func(n notification.Notification) {
		var stored notification.Notification
		c.Check(s.db.First(&stored, n.ID).Error, jc.ErrorIsNil)
		c.Check(stored.SourceID, gc.Equals, uint(42))
	}
	n, err := s.service.Create(context.Background(), 7, notification.KindAnswer, 42)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(n.ID, gc.Not(gc.Equals), uint(0))
	c.Assert(n.Read, jc.IsFalse)

	published := s.publisher.all()
	c.Assert(published, gc.HasLen, 1)
	c.Check(published[0].ID, gc.Equals, n.ID)
	c.Check(published[0].UserID, gc.Equals, uint(7))
	c.Check(published[0].Type, gc.Equals, notification.KindAnswer)
}

func (s *NotificationSuite) TestCreateRejectsUnknownKind(c *gc.C) {
	_, err := s.service.Create(context.Background(), 7, notification.Kind("like"), 1)
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
	c.Assert(s.publisher.all(), gc.HasLen, 0)
}

func (s *NotificationSuite) TestCreateWithoutPublisher(c *gc.C) {
	svc := &services.NotificationService{DB: s.db}
	_, err := svc.Create(context.Background(), 1, notification.KindMention, 3)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *NotificationSuite) TestList(c *gc.C) {
	ctx := context.Background()
	var ids []uint
	for i := uint(1); i <= 3; i++ {
		n, err := s.service.Create(ctx, 1, notification.KindComment, i)
		c.Assert(err, jc.ErrorIsNil)
		ids = append(ids, n.ID)
	}
	_, err := s.service.Create(ctx, 2, notification.KindComment, 9)
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.service.MarkRead(ctx, 1, ids[0])
	c.Assert(err, jc.ErrorIsNil)

	items, total, err := s.service.List(ctx, 1, services.Page{}, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(total, gc.Equals, int64(3))
	c.Assert(items, gc.HasLen, 3)
	c.Check(items[0].ID, gc.Equals, ids[2])
	c.Check(items[2].ID, gc.Equals, ids[0])

	items, total, err = s.service.List(ctx, 1, services.Page{}, true)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(total, gc.Equals, int64(2))
	c.Assert(items, gc.HasLen, 2)

	items, total, err = s.service.List(ctx, 1, services.Page{Page: 2, PerPage: 2}, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(total, gc.Equals, int64(3))
	c.Assert(items, gc.HasLen, 1)
	c.Check(items[0].ID, gc.Equals, ids[0])

	unread, err := s.service.UnreadCount(ctx, 1)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(unread, gc.Equals, int64(2))
}

func (s *NotificationSuite) TestMarkReadOwnerOnly(c *gc.C) {
	ctx := context.Background()
	n, err := s.service.Create(ctx, 1, notification.KindAnswer, 5)
	c.Assert(err, jc.ErrorIsNil)

	_, err = s.service.MarkRead(ctx, 2, n.ID)
	c.Assert(err, jc.Satisfies, errors.IsForbidden)
	_, err = s.service.MarkRead(ctx, 1, n.ID+100)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)

	got, err := s.service.MarkRead(ctx, 1, n.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(got.Read, jc.IsTrue)

	var stored notification.Notification
	c.Assert(s.db.First(&stored, n.ID).Error, jc.ErrorIsNil)
	c.Assert(stored.Read, jc.IsTrue)
}

func (s *NotificationSuite) TestMarkAllRead(c *gc.C) {
	ctx := context.Background()
	for i := uint(1); i <= 3; i++ {
		_, err := s.service.Create(ctx, 1, notification.KindMention, i)
		c.Assert(err, jc.ErrorIsNil)
	}
	_, err := s.service.Create(ctx, 2, notification.KindMention, 1)
	c.Assert(err, jc.ErrorIsNil)

	changed, err := s.service.MarkAllRead(ctx, 1)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(changed, gc.Equals, int64(3))

	changed, err = s.service.MarkAllRead(ctx, 1)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(changed, gc.Equals, int64(0))

	unread, err := s.service.UnreadCount(ctx, 2)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(unread, gc.Equals, int64(1))
}

func (s *NotificationSuite) TestSendDigest(c *gc.C) {
	ctx := context.Background()
	mailer := &recordingMailer{}
	s.service.Mailer = mailer
	u := coretesting.CreateUser(c, s.db, "alice", users.RoleUser)

	n, err := s.service.SendDigest(ctx, u.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(n, gc.Equals, 0)
	c.Assert(mailer.sent, gc.HasLen, 0)

	_, err = s.service.Create(ctx, u.ID, notification.KindAnswer, 42)
	c.Assert(err, jc.ErrorIsNil)
	read, err := s.service.Create(ctx, u.ID, notification.KindComment, 7)
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.service.MarkRead(ctx, u.ID, read.ID)
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.service.Create(ctx, u.ID, notification.KindMention, 9)
	c.Assert(err, jc.ErrorIsNil)

	n, err = s.service.SendDigest(ctx, u.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(n, gc.Equals, 2)
	c.Assert(mailer.sent, gc.HasLen, 1)
	sent := mailer.sent[0]
	c.Check(sent.To, gc.Equals, "alice@example.com")
	c.Check(sent.Subject, gc.Equals, "Your StackIt notifications")
	c.Check(sent.Body, jc.Contains, "You have 2 unread notifications")
	c.Check(sent.Body, jc.Contains, "New answer to your question (#42")
	c.Check(sent.Body, jc.Contains, "You were mentioned (#9")
	c.Check(sent.Body, gc.Not(jc.Contains), "#7")
}

func (s *NotificationSuite) TestSendDigestErrors(c *gc.C) {
	_, err := s.service.SendDigest(context.Background(), 1)
	c.Assert(err, jc.Satisfies, errors.IsNotSupported)

	s.service.Mailer = &recordingMailer{}
	_, err = s.service.SendDigest(context.Background(), 999)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}
