// Package questions serves the question and tag endpoints.
package questions

import (
	"net/http"

	"github.com/juju/errors"

	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/respond"
	"stackit-backend/services"
)

type Handler struct {
	Questions *services.QuestionService
	Uploader  *services.ImageUploader
	Paginator services.Paginator
}

// List - GET /api/questions?page=&per_page=&tag=&search=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pg := h.Paginator.Normalize(respond.Page(r))
	q := r.URL.Query()
	views, total, err := h.Questions.List(r.Context(), services.QuestionFilter{
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
	}, pg)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Paged("questions", views, total, pg))
}

// Get - GET /api/questions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	q, err := h.Questions.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, q.View(true))
}

// Create - POST /api/questions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.QuestionInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	q, err := h.Questions.Create(r.Context(), authentication.CurrentUser(r.Context()), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, q.View(true))
}

// Update - PUT /api/questions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in services.QuestionInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	q, err := h.Questions.Update(r.Context(), authentication.CurrentUser(r.Context()), id, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, q.View(true))
}

// Delete - DELETE /api/questions/{id}, also mounted for admins.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Questions.Delete(r.Context(), authentication.CurrentUser(r.Context()), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage - POST /api/questions/upload-image, multipart field "image".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploader.MaxBytes+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, r, errors.BadRequestf("no image provided"))
		return
	}
	defer file.Close()

	url, err := h.Uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Tags - GET /api/tags
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Questions.Tags(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}
