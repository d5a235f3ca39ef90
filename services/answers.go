package services

import (
	"context"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"stackit-backend/models/notification"
	"stackit-backend/models/qa"
	"stackit-backend/models/users"
)

type AnswerInput struct {
	QuestionID uint   `json:"question_id"`
	Content    string `json:"content"`
}

// AnswerService manages answers, votes and comments. New answers and comments
// notify the post owner and every mentioned user.
type AnswerService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Paginator     Paginator
}

// Get loads an answer with its author, votes and comments.
func (s *AnswerService) Get(ctx context.Context, id uint) (*qa.Answer, error) {
	var a qa.Answer
	err := s.DB.WithContext(ctx).
		Preload("Author").
		Preload("Votes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.Author").
		First(&a, id).Error
	if err != nil {
		return nil, findErr(err, "answer", id)
	}
	return &a, nil
}

func (s *AnswerService) Create(ctx context.Context, author *users.User, in AnswerInput) (*qa.Answer, error) {
	if err := ValidateAnswer(in); err != nil {
		return nil, err
	}
	var q qa.Question
	if err := s.DB.WithContext(ctx).First(&q, in.QuestionID).Error; err != nil {
		return nil, findErr(err, "question", in.QuestionID)
	}
	a := qa.Answer{
		QuestionID: q.ID,
		UserID:     author.ID,
		Content:    SanitizeHTML(in.Content),
	}
	if err := s.DB.WithContext(ctx).Omit("Author").Create(&a).Error; err != nil {
		return nil, errors.Annotatef(err, "creating answer on question %d", q.ID)
	}

	if q.UserID != author.ID {
		s.Notifications.notify(ctx, q.UserID, notification.KindAnswer, a.ID)
	}
	s.notifyMentions(ctx, a.Content, author.ID, a.ID)
	return s.Get(ctx, a.ID)
}

// notifyMentions sends a mention notification to every existing user named
// in content except the author.
func (s *AnswerService) notifyMentions(ctx context.Context, content string, authorID, sourceID uint) {
	names := ExtractMentions(content)
	if len(names) == 0 {
		return
	}
	var mentioned []users.User
	if err := s.DB.WithContext(ctx).Where("username IN ?", names).Find(&mentioned).Error; err != nil {
		logger.Errorf("resolving mentions: %v", err)
		return
	}
	for _, u := range mentioned {
		if u.ID != authorID {
			s.Notifications.notify(ctx, u.ID, notification.KindMention, sourceID)
		}
	}
}

// load fetches an answer the user may change.
func (s *AnswerService) load(ctx context.Context, u *users.User, id uint) (*qa.Answer, error) {
	var a qa.Answer
	if err := s.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, findErr(err, "answer", id)
	}
	if !canModify(u, a.UserID) {
		return nil, errors.Forbiddenf("permission denied")
	}
	return &a, nil
}

func (s *AnswerService) Update(ctx context.Context, u *users.User, id uint, content string) (*qa.Answer, error) {
	a, err := s.load(ctx, u, id)
	if err != nil {
		return nil, err
	}
	errs := ValidationErrors{}
	validateAnswerContent(errs, content)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(a).Update("content", SanitizeHTML(content)).Error; err != nil {
		return nil, errors.Annotatef(err, "updating answer %d", id)
	}
	return s.Get(ctx, id)
}

func (s *AnswerService) Delete(ctx context.Context, u *users.User, id uint) error {
	if _, err := s.load(ctx, u, id); err != nil {
		return err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteAnswers(tx, []uint{id})
	})
	if err != nil {
		return errors.Trace(err)
	}
	logger.Infof("user %d deleted answer %d", u.ID, id)
	return nil
}

// Accept marks the answer accepted and clears any earlier accepted answer
// on the same question. Only the question author may accept.
func (s *AnswerService) Accept(ctx context.Context, u *users.User, id uint) (*qa.Answer, error) {
	var a qa.Answer
	if err := s.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, findErr(err, "answer", id)
	}
	var q qa.Question
	if err := s.DB.WithContext(ctx).First(&q, a.QuestionID).Error; err != nil {
		return nil, findErr(err, "question", a.QuestionID)
	}
	if q.UserID != u.ID {
		return nil, errors.Forbiddenf("only the question author can accept an answer")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&qa.Answer{}).
			Where("question_id = ? AND accepted = ? AND id <> ?", q.ID, true, a.ID).
			Update("accepted", false).Error
		if err != nil {
			return errors.Annotate(err, "resetting accepted answer")
		}
		return errors.Annotate(tx.Model(&a).Update("accepted", true).Error, "accepting answer")
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.Get(ctx, id)
}

// Vote records an up or down vote. Repeating the same vote takes it back,
// the opposite vote replaces it.
func (s *AnswerService) Vote(ctx context.Context, u *users.User, id uint, voteType string) (*qa.Answer, error) {
	if voteType != qa.VoteUp && voteType != qa.VoteDown {
		return nil, errors.BadRequestf("invalid vote type %q, must be 'up' or 'down'", voteType)
	}
	var a qa.Answer
	if err := s.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, findErr(err, "answer", id)
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v qa.Vote
		err := tx.Where("answer_id = ? AND user_id = ?", id, u.ID).First(&v).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v = qa.Vote{AnswerID: id, UserID: u.ID, VoteType: voteType}
			return errors.Annotate(tx.Create(&v).Error, "creating vote")
		case err != nil:
			return errors.Annotate(err, "loading vote")
		case v.VoteType == voteType:
			return errors.Annotate(tx.Delete(&v).Error, "removing vote")
		default:
			return errors.Annotate(tx.Model(&v).Update("vote_type", voteType).Error, "changing vote")
		}
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.Get(ctx, id)
}

// Comment adds a comment to an answer and notifies the answer author.
func (s *AnswerService) Comment(ctx context.Context, author *users.User, answerID uint, content string) (*qa.Comment, error) {
	if err := ValidateComment(content); err != nil {
		return nil, err
	}
	var a qa.Answer
	if err := s.DB.WithContext(ctx).First(&a, answerID).Error; err != nil {
		return nil, findErr(err, "answer", answerID)
	}
	c := qa.Comment{
		AnswerID: a.ID,
		UserID:   author.ID,
		Content:  SanitizeHTML(content),
	}
	if err := s.DB.WithContext(ctx).Omit("Author").Create(&c).Error; err != nil {
		return nil, errors.Annotatef(err, "creating comment on answer %d", a.ID)
	}

	if a.UserID != author.ID {
		s.Notifications.notify(ctx, a.UserID, notification.KindComment, c.ID)
	}
	s.notifyMentions(ctx, c.Content, author.ID, c.ID)
	c.Author = *author
	return &c, nil
}

func (s *AnswerService) Comments(ctx context.Context, answerID uint) ([]qa.Comment, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&qa.Answer{}).Where("id = ?", answerID).Count(&n).Error; err != nil {
		return nil, errors.Annotate(err, "loading answer")
	}
	if n == 0 {
		return nil, errors.NotFoundf("answer %d", answerID)
	}
	comments := []qa.Comment{}
	err := s.DB.WithContext(ctx).Preload("Author").
		Where("answer_id = ?", answerID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, errors.Annotate(err, "listing comments")
}

// ListByUser returns a page of userID's answers, newest first.
func (s *AnswerService) ListByUser(ctx context.Context, userID uint, pg Page) ([]qa.Answer, int64, error) {
	pg = s.Paginator.Normalize(pg)
	q := s.DB.WithContext(ctx).Model(&qa.Answer{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "counting answers")
	}
	list := []qa.Answer{}
	err := q.Preload("Author").Preload("Votes").
		Order("created_at DESC, id DESC").
		Offset(pg.Offset()).Limit(pg.PerPage).
		Find(&list).Error
	if err != nil {
		return nil, 0, errors.Annotate(err, "listing answers")
	}
	return list, total, nil
}
