// Package memstore is a mutex-guarded in-memory implementation of every
// persistence interface used by the services. It backs the server when no
// database is configured and the service tests.
package memstore

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/models"
)

type identity struct {
	provider, uid string
}

type Store struct {
	mu sync.Mutex

	users      map[uuid.UUID]*models.User
	identities map[identity]uuid.UUID
	badges     map[uuid.UUID]*models.Badge
	userBadges map[uuid.UUID][]uuid.UUID
	activities []models.Activity
	seq        int64

	orgs       map[uuid.UUID]*models.Organization
	categories map[string]*models.Category
	trivia     map[uuid.UUID]*models.Trivia
	triviaIDs  []uuid.UUID

	games   map[uuid.UUID]*models.Game
	gameIDs []uuid.UUID // creation order

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[uuid.UUID]*models.User),
		identities: make(map[identity]uuid.UUID),
		badges:     make(map[uuid.UUID]*models.Badge),
		userBadges: make(map[uuid.UUID][]uuid.UUID),
		orgs:       make(map[uuid.UUID]*models.Organization),
		categories: make(map[string]*models.Category),
		trivia:     make(map[uuid.UUID]*models.Trivia),
		games:      make(map[uuid.UUID]*models.Game),
		now:        time.Now,
	}
}

// SetClock overrides the timestamp source used for created_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- users ---

func (s *Store) upsertLocked(provider, uid string, attrs models.UserAttributes) *models.User {
	key := identity{provider, uid}
	if id, ok := s.identities[key]; ok {
		u := s.users[id]
		attrs.Apply(u)
		return u
	}
	u := &models.User{
		ID:        uuid.New(),
		Provider:  provider,
		UID:       uid,
		CreatedAt: s.now(),
	}
	attrs.Apply(u)
	s.users[u.ID] = u
	s.identities[key] = u.ID
	return u
}

func (s *Store) UpsertUser(_ context.Context, provider, uid string, attrs models.UserAttributes) (*models.User, error) {
	if err := models.ValidateIdentity(provider, uid); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.upsertLocked(provider, uid, attrs)), nil
}

func (s *Store) UpsertUsers(_ context.Context, provider string, profiles []models.Profile) ([]*models.User, error) {
	for _, p := range profiles {
		if err := models.ValidateIdentity(provider, p.ID); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.User, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, cloneUser(s.upsertLocked(provider, p.ID, p.Attributes())))
	}
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneUser(u), nil
}

// CountUsers is a test helper reporting how many users exist.
func (s *Store) CountUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) SetUserOrganization(_ context.Context, userID, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	if _, ok := s.orgs[orgID]; !ok {
		return models.ErrNotFound
	}
	id := orgID
	u.OrganizationID = &id
	return nil
}

func (s *Store) InsertActivity(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.seq++
	a.Seq = s.seq
	s.activities = append(s.activities, *a)
	return nil
}

func (s *Store) RecentActivities(_ context.Context, userID uuid.UUID, limit int) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Activity
	for _, a := range s.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateBadge registers a badge definition.
func (s *Store) CreateBadge(_ context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	c := *b
	s.badges[b.ID] = &c
	return nil
}

func (s *Store) AddBadges(_ context.Context, userID uuid.UUID, badgeIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return models.ErrNotFound
	}
	for _, id := range badgeIDs {
		if _, ok := s.badges[id]; !ok {
			return models.ErrNotFound
		}
	}
	s.userBadges[userID] = append(s.userBadges[userID], badgeIDs...)
	return nil
}

func (s *Store) UserBadges(_ context.Context, userID uuid.UUID) ([]models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Badge
	for _, id := range s.userBadges[userID] {
		out = append(out, *s.badges[id])
	}
	return out, nil
}

// --- organizations ---

func (s *Store) CreateOrganization(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.orgs {
		if cur.FacebookID == o.FacebookID {
			verr := &models.ValidationError{}
			verr.Add("facebook_id", "has already been taken")
			return verr
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	c := *o
	s.orgs[o.ID] = &c
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (s *Store) UncachedOrganizations(_ context.Context) ([]*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Organization
	for _, o := range s.orgs {
		if !o.Cached {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FacebookID < out[j].FacebookID })
	return out, nil
}

func (s *Store) CacheOrganization(_ context.Context, o *models.Organization) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orgs[o.ID]
	if !ok {
		return false, models.ErrNotFound
	}
	if cur.Cached {
		return false, nil
	}
	c := *o
	c.Cached = true
	s.orgs[o.ID] = &c
	return true, nil
}

// --- trivia ---

func (s *Store) FindOrCreateCategory(_ context.Context, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.categories[name]; ok {
		cc := *c
		return &cc, nil
	}
	c := &models.Category{ID: uuid.New(), Name: name}
	s.categories[name] = c
	cc := *c
	return &cc, nil
}

func (s *Store) CreateTrivia(_ context.Context, t *models.Trivia) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	for i := range t.Options {
		if t.Options[i].ID == uuid.Nil {
			t.Options[i].ID = uuid.New()
		}
		t.Options[i].TriviaID = t.ID
	}
	s.trivia[t.ID] = cloneTrivia(t)
	s.triviaIDs = append(s.triviaIDs, t.ID)
	return nil
}

func (s *Store) GetTrivia(_ context.Context, id uuid.UUID) (*models.Trivia, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trivia[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneTrivia(t), nil
}

func (s *Store) RandomTrivia(_ context.Context, exclude []uuid.UUID) (*models.Trivia, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var candidates []uuid.UUID
	for _, id := range s.triviaIDs {
		if !skip[id] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, models.ErrNotFound
	}
	return cloneTrivia(s.trivia[candidates[rand.Intn(len(candidates))]]), nil
}

// --- games ---

func (s *Store) CreateGame(_ context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.games[g.ID] = s.cloneGame(g)
	s.gameIDs = append(s.gameIDs, g.ID)
	return nil
}

func (s *Store) GetGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.cloneGame(g), nil
}

func (s *Store) LatestGame(_ context.Context, creatorID uuid.UUID, mode models.GameMode) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.gameIDs) - 1; i >= 0; i-- {
		g := s.games[s.gameIDs[i]]
		if g.CreatorID == creatorID && g.Mode == mode {
			return s.cloneGame(g), nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) UnfinishedVersusGame(_ context.Context, a, b uuid.UUID) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.gameIDs) - 1; i >= 0; i-- {
		g := s.games[s.gameIDs[i]]
		if g.Mode == models.ModeVersus && g.HasUsers(a, b) && g.Unfinished() {
			return s.cloneGame(g), nil
		}
	}
	return nil, models.ErrNotFound
}

// InsertAnswer appends a to its player unless every round is answered.
func (s *Store) InsertAnswer(_ context.Context, a *models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, p := s.playerLocked(a.PlayerID)
	if p == nil {
		return models.ErrNotFound
	}
	if !p.HasRounds(g.Rounds) {
		return models.ErrNoRoundsLeft
	}
	p.Answers = append(p.Answers, *a)
	return nil
}

func (s *Store) FinishPlayer(_ context.Context, playerID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, p := s.playerLocked(playerID)
	if p == nil {
		return false, models.ErrNotFound
	}
	if p.Finished() {
		return false, nil
	}
	p.Finish(at)
	return true, nil
}

func (s *Store) FinishGame(_ context.Context, gameID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return false, models.ErrNotFound
	}
	if g.FinishedAt != nil || len(models.FinishedPlayers(g.Players)) < len(g.Players) {
		return false, nil
	}
	t := at
	g.FinishedAt = &t
	return true, nil
}

func (s *Store) playerLocked(id uuid.UUID) (*models.Game, *models.Player) {
	for _, g := range s.games {
		for _, p := range g.Players {
			if p.ID == id {
				return g, p
			}
		}
	}
	return nil, nil
}

// --- copies ---

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.OrganizationID != nil {
		id := *u.OrganizationID
		c.OrganizationID = &id
	}
	return &c
}

func cloneTrivia(t *models.Trivia) *models.Trivia {
	c := *t
	c.Options = append([]models.TriviaOption(nil), t.Options...)
	return &c
}

// cloneGame deep-copies g and resolves each player's user and organization.
func (s *Store) cloneGame(g *models.Game) *models.Game {
	c := *g
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		c.FinishedAt = &t
	}
	c.Players = make([]*models.Player, 0, len(g.Players))
	for _, p := range g.Players {
		pc := *p
		pc.Answers = append([]models.Answer(nil), p.Answers...)
		if p.FinishedAt != nil {
			t := *p.FinishedAt
			pc.FinishedAt = &t
		}
		if u, ok := s.users[p.UserID]; ok {
			pc.User = cloneUser(u)
		}
		pc.Organization = nil
		if p.OrganizationID != nil {
			if o, ok := s.orgs[*p.OrganizationID]; ok {
				oc := *o
				pc.Organization = &oc
			}
		}
		c.Players = append(c.Players, &pc)
	}
	return &c
}
