// Package answers serves answers, votes, acceptance and comments.
package answers

import (
	"net/http"

	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/respond"
	"stackit-backend/services"
)

type Handler struct {
	Answers *services.AnswerService
}

// Create - POST /api/answers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.AnswerInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.Answers.Create(r.Context(), authentication.CurrentUser(r.Context()), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, a.View(true))
}

// Update - PUT /api/answers/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
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
	a, err := h.Answers.Update(r.Context(), authentication.CurrentUser(r.Context()), id, in.Content)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a.View(true))
}

// Delete - DELETE /api/answers/{id}, also mounted for admins.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Answers.Delete(r.Context(), authentication.CurrentUser(r.Context()), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Accept - PUT /api/answers/{id}/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.Answers.Accept(r.Context(), authentication.CurrentUser(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a.View(true))
}

// Vote - POST /api/answers/{id}/vote {"vote_type": "up"|"down"}
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in struct {
		VoteType string `json:"vote_type"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	a, err := h.Answers.Vote(r.Context(), authentication.CurrentUser(r.Context()), id, in.VoteType)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, a.View(false))
}
