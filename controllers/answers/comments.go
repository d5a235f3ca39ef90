package answers

import (
	"net/http"

	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/respond"
	"stackit-backend/models/qa"
)

// CreateComment - POST /api/answers/{id}/comments
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.Answers.Comment(r.Context(), authentication.CurrentUser(r.Context()), id, in.Content)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c.View())
}

// GetComments - GET /api/answers/{id}/comments
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	comments, err := h.Answers.Comments(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	views := make([]qa.CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, comments[i].View())
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"comments": views})
}
