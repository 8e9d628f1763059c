package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/middleware"
	"github.com/givdo/givdo/internal/models"
)

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFrom(r.Context()))
}

// Activities lists the caller's newest activities; ?limit= overrides the default count.
func (s *Server) Activities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	user := middleware.UserFrom(r.Context())
	acts, err := s.Users.RecentActivities(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if acts == nil {
		acts = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}

func (s *Server) Badges(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	badges, err := s.Users.Badges(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if badges == nil {
		badges = []models.Badge{}
	}
	writeJSON(w, http.StatusOK, badges)
}

type addBadgesRequest struct {
	BadgeIDs []uuid.UUID `json:"badge_ids"`
}

// AddBadges awards badges to the caller. Awarding a badge twice keeps both.
func (s *Server) AddBadges(w http.ResponseWriter, r *http.Request) {
	var req addBadgesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := middleware.UserFrom(r.Context())
	if err := s.Users.AddBadges(r.Context(), user.ID, req.BadgeIDs); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.Badges(w, r)
}

func (s *Server) CreateBadge(w http.ResponseWriter, r *http.Request) {
	var b models.Badge
	if !decodeJSON(w, r, &b) {
		return
	}
	b.ID = uuid.Nil
	if err := s.Users.CreateBadge(r.Context(), &b); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type setOrganizationRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
}

// SetOrganization picks the organization the caller plays for.
func (s *Server) SetOrganization(w http.ResponseWriter, r *http.Request) {
	var req setOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := middleware.UserFrom(r.Context())
	if err := s.Users.SetOrganization(r.Context(), user.ID, req.OrganizationID); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	updated, err := s.Users.Get(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
