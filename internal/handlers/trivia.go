package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/models"
)

type createTriviaRequest struct {
	Title      string     `json:"title"`
	CategoryID *uuid.UUID `json:"category_id"`
	Options    []struct {
		Text    string `json:"text"`
		Correct bool   `json:"correct"`
	} `json:"options"`
}

// CreateTrivia stores a new question.
func (s *Server) CreateTrivia(w http.ResponseWriter, r *http.Request) {
	var req createTriviaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t := &models.Trivia{Title: req.Title}
	if req.CategoryID != nil {
		t.CategoryID = *req.CategoryID
	}
	for _, o := range req.Options {
		t.Options = append(t.Options, models.TriviaOption{Text: o.Text, Correct: o.Correct})
	}
	if err := s.Games.CreateTrivia(r.Context(), t); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
