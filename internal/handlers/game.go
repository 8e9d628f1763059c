// internal/handlers/game.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/game"
	"github.com/givdo/givdo/internal/middleware"
	"github.com/givdo/givdo/internal/models"
)

// SingleGame returns the caller's open single player game with their next trivia.
func (s *Server) SingleGame(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	g, err := s.Games.CurrentSingle(r.Context(), user)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.renderGame(w, r, g, user)
}

// VersusGame returns the open game between the caller and the friend with
// the given provider uid, creating one when needed.
func (s *Server) VersusGame(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	friend, err := s.Users.Friend(r.Context(), user, r.PathValue("uid"))
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	g, err := s.Games.CurrentVersus(r.Context(), user, friend)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.renderGame(w, r, g, user)
}

func (s *Server) ShowGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	s.renderGame(w, r, g, middleware.UserFrom(r.Context()))
}

// AnswerTrivia records the caller's answer and returns the updated game.
func (s *Server) AnswerTrivia(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var params game.AnswerParams
	if !decodeJSON(w, r, &params) {
		return
	}
	user := middleware.UserFrom(r.Context())
	g, _, err := s.Games.Answer(r.Context(), gameID, user, params)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.renderGame(w, r, g, user)
}

func (s *Server) loadGame(w http.ResponseWriter, r *http.Request) (*models.Game, bool) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid game id")
		return nil, false
	}
	g, err := s.Games.Get(r.Context(), gameID)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return nil, false
	}
	return g, true
}

// renderGame attaches the next trivia when user is a player with rounds left.
func (s *Server) renderGame(w http.ResponseWriter, r *http.Request, g *models.Game, user *models.User) {
	var next *models.Trivia
	if g.Player(user.ID) != nil {
		t, err := s.Games.NextTrivia(r.Context(), g, user)
		if err != nil && !isNotFound(err) {
			writeError(w, r, s.Logger, err)
			return
		}
		next = t
	}
	writeJSON(w, http.StatusOK, gameView(g, next))
}
