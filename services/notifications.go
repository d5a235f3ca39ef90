package services

import (
	"context"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"stackit-backend/models/notification"
	"stackit-backend/models/users"
)

// digestLimit caps how many unread notifications one digest lists.
const digestLimit = 50

// Publisher pushes a stored notification to the recipient's open streams.
type Publisher interface {
	Publish(n notification.Notification)
}

// NotificationService stores notifications and hands them to the publisher.
type NotificationService struct {
	DB        *gorm.DB
	Publisher Publisher
	Paginator Paginator
	// Mailer sends digests. Nil disables SendDigest.
	Mailer Mailer
}

// Create persists a notification for userID and then publishes it. Publishing
// never fails; a recipient without an open stream reads it from the list.
func (s *NotificationService) Create(ctx context.Context, userID uint, kind notification.Kind, sourceID uint) (*notification.Notification, error) {
	if !kind.Valid() {
		return nil, errors.NotValidf("notification type %q", kind)
	}
	n := &notification.Notification{
		UserID:   userID,
		Type:     kind,
		SourceID: sourceID,
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return nil, errors.Annotatef(err, "creating %s notification for user %d", kind, userID)
	}
	if s.Publisher != nil {
		s.Publisher.Publish(*n)
	}
	return n, nil
}

// notify is Create for callers that must not fail on a notification.
func (s *NotificationService) notify(ctx context.Context, userID uint, kind notification.Kind, sourceID uint) {
	if s == nil {
		return
	}
	if _, err := s.Create(ctx, userID, kind, sourceID); err != nil {
		logger.Errorf("notifying user %d: %v", userID, err)
	}
}

// List returns a page of userID's notifications, newest first, and the total.
func (s *NotificationService) List(ctx context.Context, userID uint, pg Page, unreadOnly bool) ([]notification.Notification, int64, error) {
	pg = s.Paginator.Normalize(pg)
	q := s.DB.WithContext(ctx).Model(&notification.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "counting notifications")
	}
	items := []notification.Notification{}
	err := q.Order("created_at DESC, id DESC").
		Offset(pg.Offset()).
		Limit(pg.PerPage).
		Find(&items).Error
	if err != nil {
		return nil, 0, errors.Annotate(err, "listing notifications")
	}
	return items, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	return n, errors.Trace(err)
}

// MarkRead flags one notification read. Only the recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*notification.Notification, error) {
	var n notification.Notification
	if err := s.DB.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, findErr(err, "notification", id)
	}
	if n.UserID != userID {
		return nil, errors.Forbiddenf("notification %d belongs to another user", id)
	}
	if !n.Read {
		if err := s.DB.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
			return nil, errors.Annotatef(err, "marking notification %d read", id)
		}
		n.Read = true
	}
	return &n, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, errors.Annotate(res.Error, "marking notifications read")
	}
	return res.RowsAffected, nil
}

// SendDigest mails userID a summary of their unread notifications and returns
// how many it listed. Nothing is sent when there are none.
func (s *NotificationService) SendDigest(ctx context.Context, userID uint) (int, error) {
	if s.Mailer == nil {
		return 0, errors.NotSupportedf("notification digest without a mailer")
	}
	var u users.User
	if err := s.DB.WithContext(ctx).First(&u, userID).Error; err != nil {
		return 0, findErr(err, "user", userID)
	}
	var unread []notification.Notification
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, false).
		Order("created_at DESC, id DESC").
		Limit(digestLimit).
		Find(&unread).Error
	if err != nil {
		return 0, errors.Annotate(err, "loading unread notifications")
	}
	if len(unread) == 0 {
		return 0, nil
	}
	if err := s.Mailer.Send(ctx, digestMail(u.Username, u.Email, unread)); err != nil {
		return 0, errors.Annotatef(err, "sending digest to user %d", userID)
	}
	logger.Debugf("sent digest of %d notifications to user %d", len(unread), userID)
	return len(unread), nil
}
