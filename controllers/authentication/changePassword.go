package authentication

import (
	"net/http"

	"stackit-backend/controllers/respond"
)

// ChangePassword - PUT /api/users/profile/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u := CurrentUser(r.Context())
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Users.ChangePassword(r.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Password changed successfully")
}
