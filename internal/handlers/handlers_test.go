package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givdo/givdo/internal/auth"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/game"
	"github.com/givdo/givdo/internal/logging"
	"github.com/givdo/givdo/internal/memstore"
	"github.com/givdo/givdo/internal/models"
	"github.com/givdo/givdo/internal/organizations"
	"github.com/givdo/givdo/internal/users"
)

const testRounds = 3

// stubGraph serves both login and organization lookups.
type stubGraph struct{}

func (stubGraph) AppAccessToken(context.Context) (string, error) { return "app", nil }

func (stubGraph) GetObject(_ context.Context, token, id string) (*facebook.Object, error) {
	switch {
	case id == "me" && token == "fb-good":
		return &facebook.Object{ID: "fb-1", Name: "Ada"}, nil
	case id == "page-1":
		return &facebook.Object{ID: id, Name: "Food Bank", Location: &facebook.Location{City: "Austin", State: "TX"}}, nil
	}
	return nil, fmt.Errorf("%w: status 400", facebook.ErrUpstream)
}

func (stubGraph) GetPicture(_ context.Context, _, id, _ string) (string, error) {
	return "https://img.example/" + id + ".jpg", nil
}

type stubFriends struct{}

func (stubFriends) InvitableFriends(_ context.Context, _, after string) (*facebook.FriendsPage, error) {
	page := &facebook.FriendsPage{Friends: make([]facebook.Friend, 2)}
	page.Friends[0].ID, page.Friends[0].Name = "f1", "Bob"
	page.Friends[1].ID = "f2"
	if after == "" {
		page.After = "cursor-1"
	}
	return page, nil
}

type testEnv struct {
	store    *memstore.Store
	sessions *auth.Sessions
	handler  http.Handler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.Discard()
	store := memstore.New()
	sessions, err := auth.NewSessions(time.Hour)
	require.NoError(t, err)

	userSvc := users.NewService(store, logger)
	hub := game.NewHub()
	srv := &Server{
		Users:         userSvc,
		Games:         game.NewService(store, hub, testRounds, logger),
		Hub:           hub,
		Organizations: organizations.NewCacher(store, stubGraph{}, nil, nil, time.Second, logger),
		Login:         auth.NewFacebookLogin(stubGraph{}, userSvc, sessions, logger),
		Sessions:      sessions,
		Friends:       stubFriends{},
		Logger:        logger,
	}
	return &testEnv{store: store, sessions: sessions, handler: srv.Routes()}
}

func (e *testEnv) user(t *testing.T, uid string) (*models.User, string) {
	t.Helper()
	u, err := e.store.UpsertUser(context.Background(), facebook.Provider, uid, models.UserAttributes{})
	require.NoError(t, err)
	token, err := e.sessions.CreateJWT(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) trivia(t *testing.T, n int) {
	t.Helper()
	_, token := e.user(t, "author")
	for i := 0; i < n; i++ {
		body := map[string]any{
			"title":   fmt.Sprintf("Question %d", i),
			"options": []map[string]any{{"text": "yes", "correct": true}, {"text": "no"}},
		}
		w := e.do(t, http.MethodPost, "/trivia", token, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRequiresAuthentication(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/games/single", "/users/me/activities", "/friends/invitable"} {
		w := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
	}
}

func TestFacebookLogin(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/auth/facebook", "", map[string]string{"access_token": "fb-good"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[loginResponse](t, w)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.Equal(t, "https://img.example/me.jpg", resp.User.Image)

	w = e.do(t, http.MethodGet, "/users/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	assert.Equal(t, resp.User.ID, me.ID)

	w = e.do(t, http.MethodPost, "/auth/facebook", "", map[string]string{"access_token": "fb-bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSingleGameFlow(t *testing.T) {
	e := newEnv(t)
	e.trivia(t, testRounds)
	_, token := e.user(t, "player")

	w := e.do(t, http.MethodGet, "/games/single", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	g := decode[GameView](t, w)
	assert.Equal(t, models.ModeSingle, g.Mode)
	require.Len(t, g.Players, 1)
	assert.Equal(t, testRounds, g.Players[0].RoundsLeft)
	assert.False(t, g.Players[0].Finished)
	require.NotNil(t, g.Trivia)
	require.Len(t, g.Trivia.Options, 2)
	assert.NotContains(t, w.Body.String(), "correct")

	again := decode[GameView](t, e.do(t, http.MethodGet, "/games/single", token, nil))
	assert.Equal(t, g.ID, again.ID)

	for i := 0; i < testRounds; i++ {
		require.NotNil(t, g.Trivia, "round %d", i)
		body := game.AnswerParams{TriviaID: g.Trivia.ID, TriviaOptionID: g.Trivia.Options[0].ID}
		w = e.do(t, http.MethodPost, "/games/"+g.ID.String()+"/answers", token, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		g = decode[GameView](t, w)
		assert.Equal(t, testRounds-i-1, g.Players[0].RoundsLeft)
	}
	assert.True(t, g.Players[0].Finished)
	assert.True(t, g.Players[0].Winner)
	assert.Equal(t, testRounds, g.Players[0].Score)
	assert.Nil(t, g.Trivia)

	w = e.do(t, http.MethodPost, "/games/"+g.ID.String()+"/answers", token, game.AnswerParams{})
	assert.Equal(t, http.StatusConflict, w.Code)

	next := decode[GameView](t, e.do(t, http.MethodGet, "/games/single", token, nil))
	assert.NotEqual(t, g.ID, next.ID)
}

func TestAnswerErrors(t *testing.T) {
	e := newEnv(t)
	e.trivia(t, 2)
	_, token := e.user(t, "player")
	_, otherToken := e.user(t, "other")
	g := decode[GameView](t, e.do(t, http.MethodGet, "/games/single", token, nil))
	path := "/games/" + g.ID.String() + "/answers"

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString("{nope"))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, path, token, game.AnswerParams{TriviaID: g.Trivia.ID, TriviaOptionID: uuid.New()})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPost, path, token, game.AnswerParams{TriviaID: uuid.New(), TriviaOptionID: uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, path, otherToken, game.AnswerParams{TriviaID: g.Trivia.ID, TriviaOptionID: g.Trivia.Options[0].ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/games/not-a-uuid/answers", token, game.AnswerParams{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVersusGame(t *testing.T) {
	e := newEnv(t)
	e.trivia(t, 1)
	me, token := e.user(t, "me")

	w := e.do(t, http.MethodGet, "/games/versus/friend-uid", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	g := decode[GameView](t, w)
	assert.Equal(t, models.ModeVersus, g.Mode)
	require.Len(t, g.Players, 2)
	assert.Equal(t, me.ID, g.Players[0].UserID)

	again := decode[GameView](t, e.do(t, http.MethodGet, "/games/versus/friend-uid", token, nil))
	assert.Equal(t, g.ID, again.ID)

	w = e.do(t, http.MethodGet, "/games/versus/me", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBadgesAndActivities(t *testing.T) {
	e := newEnv(t)
	e.trivia(t, 1)
	_, token := e.user(t, "player")

	w := e.do(t, http.MethodPost, "/badges", token, map[string]string{"name": "Starter"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	badge := decode[models.Badge](t, w)

	w = e.do(t, http.MethodPost, "/users/me/badges", token, addBadgesRequest{BadgeIDs: []uuid.UUID{badge.ID, badge.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]models.Badge](t, w), 2)

	e.do(t, http.MethodGet, "/games/single", token, nil)

	w = e.do(t, http.MethodGet, "/users/me/activities?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	acts := decode[[]models.Activity](t, w)
	require.Len(t, acts, 2)
	assert.Equal(t, models.ActivityGameStarted, acts[0].Kind)

	w = e.do(t, http.MethodGet, "/users/me/activities?limit=x", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/badges", token, map[string]string{"name": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOrganizations(t *testing.T) {
	e := newEnv(t)
	e.trivia(t, 1)
	_, token := e.user(t, "supporter")

	w := e.do(t, http.MethodPost, "/organizations", token, registerOrganizationRequest{FacebookID: "page-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	org := decode[models.Organization](t, w)

	// without a queue the caching runs inline
	w = e.do(t, http.MethodGet, "/organizations/"+org.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cached := decode[models.Organization](t, w)
	assert.True(t, cached.Cached)
	assert.Equal(t, "Food Bank", cached.Name)
	assert.Equal(t, "Austin", cached.City)

	w = e.do(t, http.MethodPost, "/organizations/"+org.ID.String()+"/cache", token, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = e.do(t, http.MethodPost, "/organizations/"+uuid.NewString()+"/cache", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/organizations", token, registerOrganizationRequest{FacebookID: "missing-page"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/organizations/cache", token, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = e.do(t, http.MethodPut, "/users/me/organization", token, setOrganizationRequest{OrganizationID: org.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[models.User](t, w)
	require.NotNil(t, me.OrganizationID)
	assert.Equal(t, org.ID, *me.OrganizationID)

	g := decode[GameView](t, e.do(t, http.MethodGet, "/games/single", token, nil))
	require.NotNil(t, g.Players[0].Organization)
	assert.Equal(t, "Food Bank", g.Players[0].Organization.Name)

	w = e.do(t, http.MethodPut, "/users/me/organization", token, setOrganizationRequest{OrganizationID: uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvitableFriends(t *testing.T) {
	e := newEnv(t)
	_, token := e.user(t, "me")

	w := e.do(t, http.MethodGet, "/friends/invitable", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[friendsResponse](t, w)
	require.Len(t, resp.Friends, 2)
	assert.Equal(t, "f1", resp.Friends[0].UID)
	assert.Equal(t, "Bob", resp.Friends[0].Name)
	assert.Equal(t, "cursor-1", resp.After)

	again := decode[friendsResponse](t, e.do(t, http.MethodGet, "/friends/invitable?after=cursor-1", token, nil))
	assert.Equal(t, resp.Friends[0].UserID, again.Friends[0].UserID)
	assert.Empty(t, again.After)
	assert.Equal(t, 3, e.store.CountUsers())
}
