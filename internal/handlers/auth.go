package handlers

import (
	"net/http"

	"github.com/givdo/givdo/internal/models"
)

type facebookLoginRequest struct {
	AccessToken string `json:"access_token"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// FacebookLogin trades a Facebook access token for a session token.
//
// Request payload:
//
//	{"access_token": "EAAB..."}
//
// Response payload:
//
//	{"token": "{jwt}", "user": {...}}
func (s *Server) FacebookLogin(w http.ResponseWriter, r *http.Request) {
	var req facebookLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.Login.Login(r.Context(), req.AccessToken)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}
