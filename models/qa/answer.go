package qa

import (
	"time"

	"stackit-backend/models/users"
)

const (
	VoteUp   = "up"
	VoteDown = "down"
)

type Answer struct {
	ID         uint       `gorm:"primaryKey"`
	QuestionID uint       `gorm:"index;not null"`
	UserID     uint       `gorm:"index;not null"`
	Author     users.User `gorm:"foreignKey:UserID"`
	Content    string     `gorm:"type:text;not null"`
	Accepted   bool       `gorm:"default:false"`
	Votes      []Vote     `gorm:"foreignKey:AnswerID"`
	Comments   []Comment  `gorm:"foreignKey:AnswerID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Vote - one per user and answer.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	AnswerID  uint      `gorm:"uniqueIndex:idx_vote_answer_user;not null"`
	UserID    uint      `gorm:"uniqueIndex:idx_vote_answer_user;not null"`
	VoteType  string    `gorm:"size:10;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Comment struct {
	ID        uint       `gorm:"primaryKey"`
	AnswerID  uint       `gorm:"index;not null"`
	UserID    uint       `gorm:"index;not null"`
	Author    users.User `gorm:"foreignKey:UserID"`
	Content   string     `gorm:"type:text;not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

// VoteCounts - tally of an answer's votes.
type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Score     int `json:"score"`
}

func CountVotes(votes []Vote) VoteCounts {
	var vc VoteCounts
	for _, v := range votes {
		switch v.VoteType {
		case VoteUp:
			vc.Upvotes++
		case VoteDown:
			vc.Downvotes++
		}
	}
	vc.Score = vc.Upvotes - vc.Downvotes
	return vc
}

type AnswerView struct {
	ID         uint          `json:"id"`
	QuestionID uint          `json:"question_id"`
	UserID     uint          `json:"user_id"`
	Author     string        `json:"author"`
	Content    string        `json:"content"`
	Accepted   bool          `json:"accepted"`
	Comments   []CommentView `json:"comments,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	VoteCounts
}

func (a *Answer) View(withComments bool) AnswerView {
	v := AnswerView{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		UserID:     a.UserID,
		Author:     a.Author.Username,
		Content:    a.Content,
		Accepted:   a.Accepted,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
		VoteCounts: CountVotes(a.Votes),
	}
	if withComments {
		v.Comments = make([]CommentView, 0, len(a.Comments))
		for i := range a.Comments {
			v.Comments = append(v.Comments, a.Comments[i].View())
		}
	}
	return v
}

type CommentView struct {
	ID        uint      `json:"id"`
	AnswerID  uint      `json:"answer_id"`
	UserID    uint      `json:"user_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) View() CommentView {
	return CommentView{
		ID:        c.ID,
		AnswerID:  c.AnswerID,
		UserID:    c.UserID,
		Author:    c.Author.Username,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
