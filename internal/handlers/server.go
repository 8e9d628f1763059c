// Package handlers exposes the trivia API over HTTP and websockets.
package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/auth"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/game"
	"github.com/givdo/givdo/internal/middleware"
	"github.com/givdo/givdo/internal/organizations"
	"github.com/givdo/givdo/internal/users"
)

// FriendLister pages through a user's invitable friends on the social graph.
type FriendLister interface {
	InvitableFriends(ctx context.Context, token, after string) (*facebook.FriendsPage, error)
}

// Server holds the services behind the HTTP routes.
type Server struct {
	Users         *users.Service
	Games         *game.Service
	Hub           *game.Hub
	Organizations *organizations.Cacher
	Login         *auth.FacebookLogin
	Sessions      *auth.Sessions
	Friends       FriendLister
	Logger        *logrus.Logger
}

// Routes builds the request multiplexer. Every route except login requires
// a session.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := middleware.RequireUser(s.Sessions, s.Users, s.Logger)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}

	mux.HandleFunc("POST /auth/facebook", s.FacebookLogin)

	handle("GET /games/single", s.SingleGame)
	handle("GET /games/versus/{uid}", s.VersusGame)
	handle("GET /games/{id}", s.ShowGame)
	handle("POST /games/{id}/answers", s.AnswerTrivia)
	handle("GET /games/ws/{id}", s.GameWS)

	handle("GET /users/me", s.Me)
	handle("GET /users/me/activities", s.Activities)
	handle("GET /users/me/badges", s.Badges)
	handle("POST /users/me/badges", s.AddBadges)
	handle("PUT /users/me/organization", s.SetOrganization)
	handle("GET /friends/invitable", s.InvitableFriends)

	handle("POST /badges", s.CreateBadge)
	handle("POST /trivia", s.CreateTrivia)

	handle("POST /organizations", s.RegisterOrganization)
	handle("GET /organizations/{id}", s.ShowOrganization)
	handle("POST /organizations/{id}/cache", s.CacheOrganization)
	handle("POST /organizations/cache", s.CacheOrganizations)

	return middleware.LogMiddleware(s.Logger)(mux)
}
