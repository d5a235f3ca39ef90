package qa

import (
	"time"

	"stackit-backend/models/users"
)

type Question struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      uint       `gorm:"index;not null"`
	Author      users.User `gorm:"foreignKey:UserID"`
	Title       string     `gorm:"size:255;not null"`
	Description string     `gorm:"type:text;not null"`
	Tags        []Tag      `gorm:"many2many:question_tags"`
	Answers     []Answer   `gorm:"foreignKey:QuestionID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Tag struct {
	ID        uint       `gorm:"primaryKey"`
	Name      string     `gorm:"size:50;uniqueIndex;not null"`
	Questions []Question `gorm:"many2many:question_tags"`
}

// TagCount - a tag with the number of questions carrying it.
type TagCount struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	QuestionCount int64  `json:"question_count"`
}

type QuestionView struct {
	ID          uint         `json:"id"`
	UserID      uint         `json:"user_id"`
	Author      string       `json:"author"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Answers     []AnswerView `json:"answers,omitempty"`
	AnswerCount *int         `json:"answer_count,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// View renders the question. Answers are included only when they were loaded
// and withAnswers is set.
func (q *Question) View(withAnswers bool) QuestionView {
	v := QuestionView{
		ID:          q.ID,
		UserID:      q.UserID,
		Author:      q.Author.Username,
		Title:       q.Title,
		Description: q.Description,
		Tags:        make([]string, 0, len(q.Tags)),
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
	for _, t := range q.Tags {
		v.Tags = append(v.Tags, t.Name)
	}
	if withAnswers {
		v.Answers = make([]AnswerView, 0, len(q.Answers))
		for i := range q.Answers {
			v.Answers = append(v.Answers, q.Answers[i].View(true))
		}
		n := len(q.Answers)
		v.AnswerCount = &n
	}
	return v
}
