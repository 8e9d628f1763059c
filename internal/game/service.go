// internal/game/service.go
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/models"
)

var (
	// ErrNotPlayer is returned when a user acts on a game they have no seat in.
	ErrNotPlayer = errors.New("user is not a player in this game")

	// ErrNoRoundsLeft is returned when a player answers after their last round.
	ErrNoRoundsLeft = models.ErrNoRoundsLeft

	// ErrSelfVersus is returned when a user challenges themselves.
	ErrSelfVersus = errors.New("cannot play versus yourself")
)

type Store interface {
	LatestGame(ctx context.Context, creatorID uuid.UUID, mode models.GameMode) (*models.Game, error)
	UnfinishedVersusGame(ctx context.Context, a, b uuid.UUID) (*models.Game, error)
	CreateGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	// InsertAnswer returns models.ErrNoRoundsLeft once the player answered every round.
	InsertAnswer(ctx context.Context, a *models.Answer) error
	FinishPlayer(ctx context.Context, playerID uuid.UUID, at time.Time) (bool, error)
	FinishGame(ctx context.Context, gameID uuid.UUID, at time.Time) (bool, error)
	InsertActivity(ctx context.Context, a *models.Activity) error

	GetTrivia(ctx context.Context, id uuid.UUID) (*models.Trivia, error)
	RandomTrivia(ctx context.Context, exclude []uuid.UUID) (*models.Trivia, error)
	CreateTrivia(ctx context.Context, t *models.Trivia) error
	FindOrCreateCategory(ctx context.Context, name string) (*models.Category, error)
}

// Service runs matchmaking and answer bookkeeping for trivia games.
type Service struct {
	store  Store
	hub    *Hub
	logger *logrus.Logger
	rounds int

	// Now is the clock used for answer and finish timestamps.
	Now func() time.Time
}

// NewService builds a Service creating games of the given round count.
// hub may be nil when no live updates are needed.
func NewService(store Store, hub *Hub, rounds int, logger *logrus.Logger) *Service {
	if rounds < 1 {
		rounds = models.DefaultRounds
	}
	return &Service{
		store:  store,
		hub:    hub,
		logger: logger,
		rounds: rounds,
		Now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return s.store.GetGame(ctx, id)
}

// CurrentSingle returns the user's latest single game while it is
// unfinished, otherwise a freshly created one.
func (s *Service) CurrentSingle(ctx context.Context, user *models.User) (*models.Game, error) {
	g, err := s.store.LatestGame(ctx, user.ID, models.ModeSingle)
	switch {
	case err == nil && g.Unfinished():
		return g, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("latest single game of %s: %w", user.ID, err)
	}
	return s.CreateSingle(ctx, user)
}

// CreateSingle starts a new single-player game for user.
func (s *Service) CreateSingle(ctx context.Context, user *models.User) (*models.Game, error) {
	return s.create(ctx, user, models.ModeSingle)
}

// CurrentVersus returns an unfinished game between user and other, creating
// one owned by user when none exists.
func (s *Service) CurrentVersus(ctx context.Context, user, other *models.User) (*models.Game, error) {
	if user.ID == other.ID {
		return nil, ErrSelfVersus
	}
	g, err := s.store.UnfinishedVersusGame(ctx, user.ID, other.ID)
	switch {
	case err == nil:
		return g, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("versus game of %s and %s: %w", user.ID, other.ID, err)
	}
	return s.create(ctx, user, models.ModeVersus, other)
}

func (s *Service) create(ctx context.Context, creator *models.User, mode models.GameMode, others ...*models.User) (*models.Game, error) {
	g := models.NewGame(creator, mode, s.rounds)
	for _, u := range append([]*models.User{creator}, others...) {
		if _, err := g.AddPlayer(u); err != nil {
			return nil, err
		}
	}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("create %s game: %w", mode, err)
	}
	for _, p := range g.Players {
		s.recordActivity(ctx, p.UserID, models.ActivityGameStarted, g.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"game":    g.ID,
		"mode":    mode,
		"creator": creator.ID,
	}).Info("game created")

	// reload so players carry their user and organization
	stored, err := s.store.GetGame(ctx, g.ID)
	if err != nil {
		s.logger.WithError(err).WithField("game", g.ID).Warn("failed to reload created game")
		return g, nil
	}
	return stored, nil
}

// AnswerParams selects an option of a trivia.
type AnswerParams struct {
	TriviaID       uuid.UUID `json:"trivia_id"`
	TriviaOptionID uuid.UUID `json:"trivia_option_id"`
}

// Answer records the user's answer in the game. A player whose last round
// was just answered is finished. It returns the updated game and player.
func (s *Service) Answer(ctx context.Context, gameID uuid.UUID, user *models.User, params AnswerParams) (*models.Game, *models.Player, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	p := g.Player(user.ID)
	if p == nil {
		return nil, nil, ErrNotPlayer
	}
	if !p.HasRounds(g.Rounds) {
		return nil, nil, ErrNoRoundsLeft
	}

	trivia, err := s.store.GetTrivia(ctx, params.TriviaID)
	if err != nil {
		return nil, nil, fmt.Errorf("load trivia %s: %w", params.TriviaID, err)
	}
	if trivia.Option(params.TriviaOptionID) == nil {
		verr := &models.ValidationError{}
		verr.Add("trivia_option_id", "does not belong to trivia")
		return nil, nil, verr
	}

	a := p.Answer(trivia, params.TriviaOptionID, s.Now())
	if err := s.store.InsertAnswer(ctx, &a); err != nil {
		return nil, nil, err
	}

	// other answers may have landed since the game was loaded
	if g, err = s.store.GetGame(ctx, gameID); err != nil {
		return nil, nil, fmt.Errorf("reload game %s: %w", gameID, err)
	}
	p = g.Player(user.ID)

	left, score, correct := p.RoundsLeft(g.Rounds), p.Score(), a.Correct
	s.publish(Event{
		Type: EventPlayerAnswered, GameID: g.ID, UserID: user.ID,
		RoundsLeft: &left, Score: &score, Correct: &correct,
	})

	if !p.HasRounds(g.Rounds) {
		if err := s.Finish(ctx, g, p); err != nil {
			return nil, nil, err
		}
	}
	return g, p, nil
}

// Finish stamps the player as finished and, once every player is done,
// announces the game result. A player who already finished keeps the
// first timestamp and nothing is announced again.
func (s *Service) Finish(ctx context.Context, g *models.Game, p *models.Player) error {
	at := s.Now()
	stamped, err := s.store.FinishPlayer(ctx, p.ID, at)
	if err != nil {
		return fmt.Errorf("finish player %s: %w", p.ID, err)
	}
	if !stamped {
		return nil
	}
	p.Finish(at)
	s.recordActivity(ctx, p.UserID, models.ActivityGameFinished, g.ID)

	score := p.Score()
	s.publish(Event{Type: EventPlayerFinished, GameID: g.ID, UserID: p.UserID, Score: &score})

	return s.finishGame(ctx, g)
}

// finishGame publishes game_finished exactly once, from whichever caller
// stamps the game after its last player finished.
func (s *Service) finishGame(ctx context.Context, g *models.Game) error {
	stored, err := s.store.GetGame(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("reload game %s: %w", g.ID, err)
	}
	if len(models.FinishedPlayers(stored.Players)) < len(stored.Players) {
		return nil
	}
	at := s.Now()
	ended, err := s.store.FinishGame(ctx, g.ID, at)
	if err != nil {
		return fmt.Errorf("finish game %s: %w", g.ID, err)
	}
	if !ended {
		return nil
	}
	g.FinishedAt = &at

	ev := Event{Type: EventGameFinished, GameID: g.ID}
	if w := stored.Winner(); w != nil {
		ev.WinnerID = &w.UserID
	}
	s.publish(ev)
	s.logger.WithField("game", g.ID).Info("game finished")
	return nil
}

// NextTrivia picks a trivia the user has not answered in this game yet. It
// returns nil when the user has no rounds left.
func (s *Service) NextTrivia(ctx context.Context, g *models.Game, user *models.User) (*models.Trivia, error) {
	p := g.Player(user.ID)
	if p == nil {
		return nil, ErrNotPlayer
	}
	if !p.HasRounds(g.Rounds) {
		return nil, nil
	}
	t, err := s.store.RandomTrivia(ctx, p.AnsweredTrivia())
	if errors.Is(err, models.ErrNotFound) {
		// every trivia was answered already; allow repeats rather than stall the game
		t, err = s.store.RandomTrivia(ctx, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("next trivia for game %s: %w", g.ID, err)
	}
	return t, nil
}

func (s *Service) publish(ev Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

func (s *Service) recordActivity(ctx context.Context, userID uuid.UUID, kind models.ActivityKind, subject uuid.UUID) {
	act := &models.Activity{UserID: userID, Kind: kind, SubjectID: subject}
	if err := s.store.InsertActivity(ctx, act); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user": userID,
			"kind": kind,
		}).Warn("failed to record activity")
	}
}
