package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a user's seat in a single game.
type Player struct {
	ID             uuid.UUID  `json:"id"`
	GameID         uuid.UUID  `json:"game_id"`
	UserID         uuid.UUID  `json:"user_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Answers        []Answer   `json:"answers"`

	User         *User         `json:"-"`
	Organization *Organization `json:"-"`
}

// Answer is one trivia response given by a player.
type Answer struct {
	ID             uuid.UUID `json:"id"`
	PlayerID       uuid.UUID `json:"player_id"`
	TriviaID       uuid.UUID `json:"trivia_id"`
	TriviaOptionID uuid.UUID `json:"trivia_option_id"`
	Correct        bool      `json:"correct"`
	CreatedAt      time.Time `json:"created_at"`
}

// RoundsLeft is rounds minus the answers given so far. It goes negative when
// a player has answered more trivia than the game allows.
func (p *Player) RoundsLeft(rounds int) int {
	return rounds - len(p.Answers)
}

// HasRounds reports whether the player may still answer.
func (p *Player) HasRounds(rounds int) bool {
	return len(p.Answers) < rounds
}

func (p *Player) Finished() bool {
	return p.FinishedAt != nil
}

// Finish stamps the player as finished at now and returns it.
func (p *Player) Finish(now time.Time) *Player {
	t := now
	p.FinishedAt = &t
	return p
}

// Answer builds an answer to trivia with the chosen option and appends it.
func (p *Player) Answer(trivia *Trivia, optionID uuid.UUID, now time.Time) Answer {
	a := Answer{
		ID:             uuid.New(),
		PlayerID:       p.ID,
		TriviaID:       trivia.ID,
		TriviaOptionID: optionID,
		Correct:        trivia.IsCorrect(optionID),
		CreatedAt:      now,
	}
	p.Answers = append(p.Answers, a)
	return a
}

// Score counts correct answers.
func (p *Player) Score() int {
	n := 0
	for _, a := range p.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// AnsweredTrivia returns the ids of trivia this player already answered.
func (p *Player) AnsweredTrivia() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Answers))
	for _, a := range p.Answers {
		ids = append(ids, a.TriviaID)
	}
	return ids
}

// IsWinner reports whether g names this player as its winner.
func (p *Player) IsWinner(g *Game) bool {
	w := g.Winner()
	return w != nil && w.ID == p.ID
}

func (p *Player) inheritOrganization(u *User) {
	if p.OrganizationID == nil && u != nil && u.OrganizationID != nil {
		id := *u.OrganizationID
		p.OrganizationID = &id
	}
}

// FinishedPlayers returns the players with a finish timestamp, preserving order.
func FinishedPlayers(players []*Player) []*Player {
	var out []*Player
	for _, p := range players {
		if p.Finished() {
			out = append(out, p)
		}
	}
	return out
}
