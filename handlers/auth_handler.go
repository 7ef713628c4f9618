package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-hub/middleware"
	"github.com/Dosada05/tournament-hub/services"
)

type AuthHandler struct {
	users *services.UserService
	auth  *middleware.Authenticator
}

func NewAuthHandler(users *services.UserService, auth *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{users: users, auth: auth}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.users.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	token, err := h.auth.IssueToken(user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"token": token, "user": user})
}
