package authentication

import (
	"net/http"

	"github.com/gorilla/mux"

	"stackit-backend/controllers/respond"
	"stackit-backend/models/qa"
	"stackit-backend/services"
)

// GetProfile - GET /api/users/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, CurrentUser(r.Context()).View(true))
}

// UpdateProfile - PUT /api/users/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.Users.UpdateProfile(r.Context(), CurrentUser(r.Context()).ID, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    u.View(true),
	})
}

// PublicProfile - GET /api/users/{username}
func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.Profile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// UserQuestions - GET /api/users/{username}/questions
func (h *Handler) UserQuestions(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	pg := h.Paginator.Normalize(respond.Page(r))
	views, total, err := h.Questions.List(r.Context(), services.QuestionFilter{UserID: u.ID}, pg)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Paged("questions", views, total, pg))
}

// UserAnswers - GET /api/users/{username}/answers
func (h *Handler) UserAnswers(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	pg := h.Paginator.Normalize(respond.Page(r))
	list, total, err := h.Answers.ListByUser(r.Context(), u.ID, pg)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	views := make([]qa.AnswerView, 0, len(list))
	for i := range list {
		views = append(views, list[i].View(false))
	}
	respond.JSON(w, http.StatusOK, respond.Paged("answers", views, total, pg))
}
