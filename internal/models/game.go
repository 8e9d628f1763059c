package models

import (
	"time"

	"github.com/google/uuid"
)

// GameMode distinguishes single-player games from head-to-head ones.
type GameMode string

const (
	ModeSingle GameMode = "single"
	ModeVersus GameMode = "versus"
)

// DefaultRounds is the round count used when a game is created without one.
const DefaultRounds = 5

// MaxPlayers returns how many seats a game of this mode has.
func (m GameMode) MaxPlayers() int {
	if m == ModeVersus {
		return 2
	}
	return 1
}

type Game struct {
	ID        uuid.UUID `json:"id"`
	CreatorID uuid.UUID `json:"creator_id"`
	Mode      GameMode  `json:"mode"`
	Rounds    int       `json:"rounds"`
	Players   []*Player `json:"players"`
	CreatedAt time.Time `json:"created_at"`

	// FinishedAt is stamped once, when the last player finishes.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewGame returns an empty game owned by creator. Rounds below one fall back to DefaultRounds.
func NewGame(creator *User, mode GameMode, rounds int) *Game {
	if rounds < 1 {
		rounds = DefaultRounds
	}
	return &Game{
		ID:        uuid.New(),
		CreatorID: creator.ID,
		Mode:      mode,
		Rounds:    rounds,
	}
}

// AddPlayer seats user in the game. The player inherits the user's current
// organization.
func (g *Game) AddPlayer(user *User) (*Player, error) {
	if len(g.Players) >= g.Mode.MaxPlayers() {
		return nil, ErrGameFull
	}
	p := &Player{
		ID:     uuid.New(),
		GameID: g.ID,
		UserID: user.ID,
		User:   user,
	}
	p.inheritOrganization(user)
	g.Players = append(g.Players, p)
	return p, nil
}

// Player returns the seat held by userID, or nil.
func (g *Game) Player(userID uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// HasUsers reports whether every given user holds a seat in the game.
func (g *Game) HasUsers(userIDs ...uuid.UUID) bool {
	for _, id := range userIDs {
		if g.Player(id) == nil {
			return false
		}
	}
	return true
}

// Unfinished reports whether the game is still open: it has no players yet
// or at least one player still has rounds to play.
func (g *Game) Unfinished() bool {
	if len(g.Players) == 0 {
		return true
	}
	for _, p := range g.Players {
		if p.HasRounds(g.Rounds) {
			return true
		}
	}
	return false
}

// Winner returns the finished player with the highest score. Equal scores are
// decided by the earlier finish; a full tie has no winner.
func (g *Game) Winner() *Player {
	var best *Player
	tied := false
	for _, p := range FinishedPlayers(g.Players) {
		switch {
		case best == nil:
			best = p
		case p.Score() > best.Score():
			best, tied = p, false
		case p.Score() == best.Score():
			switch {
			case p.FinishedAt.Before(*best.FinishedAt):
				best, tied = p, false
			case p.FinishedAt.Equal(*best.FinishedAt):
				tied = true
			}
		}
	}
	if tied {
		return nil
	}
	return best
}
