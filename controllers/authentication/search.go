package authentication

import (
	"net/http"

	"stackit-backend/controllers/respond"
	"stackit-backend/models/users"
)

// SearchUsers - GET /api/admin/users?search=&page=&per_page=
// Matches username or email. Admins see emails.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	pg := h.Paginator.Normalize(respond.Page(r))
	list, total, err := h.Users.List(r.Context(), r.URL.Query().Get("search"), pg)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	views := make([]users.View, 0, len(list))
	for i := range list {
		views = append(views, list[i].View(true))
	}
	respond.JSON(w, http.StatusOK, respond.Paged("users", views, total, pg))
}
