package services

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"stackit-backend/models/qa"
	"stackit-backend/models/users"
)

type QuestionInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// QuestionFilter narrows a question listing. Empty fields match everything.
type QuestionFilter struct {
	Tag    string
	Search string
	UserID uint
}

type QuestionService struct {
	DB        *gorm.DB
	Paginator Paginator
}

// canModify - authors and admins may change a post.
func canModify(u *users.User, ownerID uint) bool {
	return u != nil && (u.ID == ownerID || u.IsAdmin())
}

// normalizeTags lower-cases, trims and de-duplicates tag names, keeping order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// List returns a page of questions, newest first, with their answer counts.
func (s *QuestionService) List(ctx context.Context, f QuestionFilter, pg Page) ([]qa.QuestionView, int64, error) {
	pg = s.Paginator.Normalize(pg)
	q := s.DB.WithContext(ctx).Model(&qa.Question{})
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		q = q.Joins("JOIN question_tags ON question_tags.question_id = questions.id").
			Joins("JOIN tags ON tags.id = question_tags.tag_id").
			Where("tags.name = ?", tag)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(questions.title) LIKE ? OR LOWER(questions.description) LIKE ?", like, like)
	}
	if f.UserID != 0 {
		q = q.Where("questions.user_id = ?", f.UserID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "counting questions")
	}
	var list []qa.Question
	err := q.Preload("Author").Preload("Tags").
		Order("questions.created_at DESC, questions.id DESC").
		Offset(pg.Offset()).Limit(pg.PerPage).
		Find(&list).Error
	if err != nil {
		return nil, 0, errors.Annotate(err, "listing questions")
	}

	counts, err := s.answerCounts(ctx, list)
	if err != nil {
		return nil, 0, err
	}
	views := make([]qa.QuestionView, 0, len(list))
	for i := range list {
		v := list[i].View(false)
		n := counts[list[i].ID]
		v.AnswerCount = &n
		views = append(views, v)
	}
	return views, total, nil
}

func (s *QuestionService) answerCounts(ctx context.Context, list []qa.Question) (map[uint]int, error) {
	counts := make(map[uint]int, len(list))
	if len(list) == 0 {
		return counts, nil
	}
	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	var rows []struct {
		QuestionID uint
		N          int
	}
	err := s.DB.WithContext(ctx).Model(&qa.Answer{}).
		Select("question_id, COUNT(*) AS n").
		Where("question_id IN ?", ids).
		Group("question_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Annotate(err, "counting answers")
	}
	for _, r := range rows {
		counts[r.QuestionID] = r.N
	}
	return counts, nil
}

// Get loads a question with its answers, their votes and comments. The
// accepted answer comes first, the rest oldest first.
func (s *QuestionService) Get(ctx context.Context, id uint) (*qa.Question, error) {
	var q qa.Question
	err := s.DB.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("accepted DESC, created_at ASC, id ASC")
		}).
		Preload("Answers.Author").
		Preload("Answers.Votes").
		Preload("Answers.Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Answers.Comments.Author").
		First(&q, id).Error
	if err != nil {
		return nil, findErr(err, "question", id)
	}
	return &q, nil
}

// tagsFor returns the stored tags named, creating the missing ones.
func tagsFor(tx *gorm.DB, names []string) ([]qa.Tag, error) {
	tags := make([]qa.Tag, 0, len(names))
	for _, name := range names {
		tag := qa.Tag{Name: name}
		if err := tx.Where(qa.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, errors.Annotatef(err, "storing tag %q", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *QuestionService) Create(ctx context.Context, author *users.User, in QuestionInput) (*qa.Question, error) {
	in.Tags = normalizeTags(in.Tags)
	if err := ValidateQuestion(in); err != nil {
		return nil, err
	}
	q := qa.Question{
		UserID:      author.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: SanitizeHTML(in.Description),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := tagsFor(tx, in.Tags)
		if err != nil {
			return err
		}
		q.Tags = tags
		return errors.Annotate(tx.Omit("Author", "Tags.*").Create(&q).Error, "creating question")
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Debugf("user %d asked question %d", author.ID, q.ID)
	return s.Get(ctx, q.ID)
}

// Update replaces title, description and tags. Authors and admins only.
func (s *QuestionService) Update(ctx context.Context, u *users.User, id uint, in QuestionInput) (*qa.Question, error) {
	var q qa.Question
	if err := s.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, findErr(err, "question", id)
	}
	if !canModify(u, q.UserID) {
		return nil, errors.Forbiddenf("permission denied")
	}
	in.Tags = normalizeTags(in.Tags)
	if err := ValidateQuestion(in); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&q).Updates(map[string]interface{}{
			"title":       strings.TrimSpace(in.Title),
			"description": SanitizeHTML(in.Description),
		}).Error
		if err != nil {
			return errors.Annotatef(err, "updating question %d", id)
		}
		tags, err := tagsFor(tx, in.Tags)
		if err != nil {
			return err
		}
		return errors.Annotate(tx.Model(&q).Omit("Tags.*").Association("Tags").Replace(tags), "replacing tags")
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.Get(ctx, id)
}

// Delete removes a question with its answers, their votes and comments.
func (s *QuestionService) Delete(ctx context.Context, u *users.User, id uint) error {
	var q qa.Question
	if err := s.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return findErr(err, "question", id)
	}
	if !canModify(u, q.UserID) {
		return errors.Forbiddenf("permission denied")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answerIDs []uint
		if err := tx.Model(&qa.Answer{}).Where("question_id = ?", id).Pluck("id", &answerIDs).Error; err != nil {
			return errors.Annotate(err, "loading answers")
		}
		if err := deleteAnswers(tx, answerIDs); err != nil {
			return err
		}
		if err := tx.Model(&q).Association("Tags").Clear(); err != nil {
			return errors.Annotate(err, "clearing tags")
		}
		return errors.Annotate(tx.Delete(&q).Error, "deleting question")
	})
	if err != nil {
		return errors.Trace(err)
	}
	logger.Infof("user %d deleted question %d", u.ID, id)
	return nil
}

// Tags lists every tag with its question count, most used first.
func (s *QuestionService) Tags(ctx context.Context) ([]qa.TagCount, error) {
	out := []qa.TagCount{}
	err := s.DB.WithContext(ctx).Model(&qa.Tag{}).
		Select("tags.id, tags.name, COUNT(question_tags.question_id) AS question_count").
		Joins("LEFT JOIN question_tags ON question_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("question_count DESC, tags.name ASC").
		Scan(&out).Error
	return out, errors.Annotate(err, "listing tags")
}

// deleteAnswers removes answers with their votes and comments. It must run
// inside a transaction.
func deleteAnswers(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("answer_id IN ?", ids).Delete(&qa.Vote{}).Error; err != nil {
		return errors.Annotate(err, "deleting votes")
	}
	if err := tx.Where("answer_id IN ?", ids).Delete(&qa.Comment{}).Error; err != nil {
		return errors.Annotate(err, "deleting comments")
	}
	return errors.Annotate(tx.Where("id IN ?", ids).Delete(&qa.Answer{}).Error, "deleting answers")
}
