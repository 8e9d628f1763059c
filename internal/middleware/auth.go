// internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/models"
)

type contextKey struct{}

// TokenVerifier turns a session token into the user id it was issued for.
type TokenVerifier interface {
	AuthenticateJWT(token string) (uuid.UUID, error)
}

type UserLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// authCookie is accepted in place of the Authorization header so browser
// websocket clients can authenticate.
const authCookie = "auth_token"

// RequireUser rejects requests without a valid session with 401 and puts the
// authenticated user in the request context.
func RequireUser(tokens TokenVerifier, users UserLoader, logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthenticated(w)
				return
			}
			userID, err := tokens.AuthenticateJWT(token)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected session token")
				unauthenticated(w)
				return
			}
			user, err := users.Get(r.Context(), userID)
			if err != nil {
				logger.WithError(err).WithField("user", userID).Debug("session for unknown user")
				unauthenticated(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFrom returns the authenticated user, or nil outside RequireUser.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(contextKey{}).(*models.User)
	return u
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(authCookie); err == nil {
		return c.Value
	}
	return ""
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthenticated"})
}
