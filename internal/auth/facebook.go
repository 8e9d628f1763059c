package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/models"
)

// Graph is the part of the Facebook client used to validate access tokens.
type Graph interface {
	GetObject(ctx context.Context, token, id string) (*facebook.Object, error)
	GetPicture(ctx context.Context, token, id, size string) (string, error)
}

// Provisioner finds or creates users from a provider identity.
type Provisioner interface {
	ForProvider(ctx context.Context, provider, uid string, attrs models.UserAttributes) (*models.User, error)
}

// FacebookLogin exchanges a Facebook access token for a local user and session token.
type FacebookLogin struct {
	graph    Graph
	users    Provisioner
	sessions *Sessions
	logger   *logrus.Logger
}

func NewFacebookLogin(graph Graph, users Provisioner, sessions *Sessions, logger *logrus.Logger) *FacebookLogin {
	return &FacebookLogin{graph: graph, users: users, sessions: sessions, logger: logger}
}

// Login resolves accessToken to the Facebook profile behind it, provisions
// the matching user with the token, name and picture, and issues a session.
// A token the graph rejects yields ErrUnauthenticated.
func (l *FacebookLogin) Login(ctx context.Context, accessToken string) (*models.User, string, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, "", fmt.Errorf("%w: missing access token", ErrUnauthenticated)
	}

	me, err := l.graph.GetObject(ctx, accessToken, "me")
	if err != nil {
		if errors.Is(err, facebook.ErrUpstream) {
			return nil, "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return nil, "", err
	}

	attrs := models.UserAttributes{ProviderToken: &accessToken}
	if me.Name != "" {
		attrs.Name = &me.Name
	}
	picture, err := l.graph.GetPicture(ctx, accessToken, "me", "large")
	if err != nil {
		l.logger.WithError(err).WithField("uid", me.ID).Warn("failed to fetch profile picture")
	} else if picture != "" {
		attrs.Image = &picture
	}

	user, err := l.users.ForProvider(ctx, facebook.Provider, me.ID, attrs)
	if err != nil {
		return nil, "", err
	}
	token, err := l.sessions.CreateJWT(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign session for %s: %w", user.ID, err)
	}

	l.logger.WithField("user", user.ID).Info("facebook login")
	return user, token, nil
}
