// internal/handlers/friend.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/middleware"
	"github.com/givdo/givdo/internal/models"
)

type friendView struct {
	UserID uuid.UUID `json:"user_id"`
	UID    string    `json:"uid"`
	Name   string    `json:"name"`
	Image  string    `json:"image"`
}

type friendsResponse struct {
	Friends []friendView `json:"friends"`
	After   string       `json:"after,omitempty"`
}

// InvitableFriends pages through the caller's friends on the graph and makes
// sure each one has a local user to challenge. Pass ?after= to continue.
func (s *Server) InvitableFriends(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	page, err := s.Friends.InvitableFriends(r.Context(), user.ProviderToken, r.URL.Query().Get("after"))
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}

	profiles := make([]models.Profile, 0, len(page.Friends))
	for _, f := range page.Friends {
		p := models.Profile{ID: f.ID}
		if f.Name != "" {
			name := f.Name
			p.Name = &name
		}
		if img := f.Picture.Data.URL; img != "" {
			p.Image = &img
		}
		profiles = append(profiles, p)
	}
	friends, err := s.Users.ForProviderBatch(r.Context(), user.Provider, profiles)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}

	resp := friendsResponse{Friends: make([]friendView, 0, len(friends)), After: page.After}
	for _, f := range friends {
		resp.Friends = append(resp.Friends, friendView{UserID: f.ID, UID: f.UID, Name: f.Name, Image: f.Image})
	}
	writeJSON(w, http.StatusOK, resp)
}
