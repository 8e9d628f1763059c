package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givdo/givdo/internal/logging"
	"github.com/givdo/givdo/internal/models"
)

type stubTokens map[string]uuid.UUID

func (s stubTokens) AuthenticateJWT(token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, errors.New("bad token")
	}
	return id, nil
}

type stubUsers map[uuid.UUID]*models.User

func (s stubUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func TestRequireUser(t *testing.T) {
	alice := &models.User{ID: uuid.New(), Name: "Alice"}
	ghost := uuid.New()
	tokens := stubTokens{"good": alice.ID, "ghost": ghost}
	users := stubUsers{alice.ID: alice}

	var seen *models.User
	h := RequireUser(tokens, users, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"bearer", "Bearer good", "", http.StatusNoContent},
		{"lowercase scheme", "bearer good", "", http.StatusNoContent},
		{"cookie", "", "good", http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", "", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", "", http.StatusUnauthorized},
		{"unknown user", "Bearer ghost", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/users/me/activities", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: authCookie, Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, alice.ID, seen.ID)
		})
	}
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	h := LogMiddleware(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
