package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

type registerOrganizationRequest struct {
	FacebookID string `json:"facebook_id"`
}

// RegisterOrganization adds an organization by its Facebook page id and
// schedules caching its profile.
func (s *Server) RegisterOrganization(w http.ResponseWriter, r *http.Request) {
	var req registerOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	org, err := s.Organizations.Register(r.Context(), req.FacebookID)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (s *Server) ShowOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	org, err := s.Organizations.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// CacheOrganization schedules a refresh of one organization.
func (s *Server) CacheOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	if _, err := s.Organizations.Get(r.Context(), id); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if err := s.Organizations.Enqueue(r.Context(), id); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// CacheOrganizations schedules every uncached organization.
func (s *Server) CacheOrganizations(w http.ResponseWriter, r *http.Request) {
	n, err := s.Organizations.CacheAll(r.Context())
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": n})
}
