// Package admin serves the moderation endpoints. Every route requires the
// admin role.
package admin

import (
	"fmt"
	"net/http"

	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/respond"
	"stackit-backend/services"
)

type Handler struct {
	Users *services.UserService
}

// Ban - PUT /api/admin/users/{id}/ban {"banned": bool}, banned defaults to true.
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	in := struct {
		Banned *bool `json:"banned"`
	}{}
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
	}
	banned := in.Banned == nil || *in.Banned
	u, err := h.Users.SetBanned(r.Context(), authentication.CurrentUser(r.Context()), id, banned)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	action := "banned"
	if !banned {
		action = "unbanned"
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("User %s successfully", action),
		"user":    u.View(true),
	})
}
