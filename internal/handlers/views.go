package handlers

import (
	"github.com/google/uuid"

	"github.com/givdo/givdo/internal/models"
)

// OrganizationView is the public part of an organization.
type OrganizationView struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Mission string    `json:"mission,omitempty"`
	City    string    `json:"city,omitempty"`
	State   string    `json:"state,omitempty"`
	Picture string    `json:"picture,omitempty"`
}

type PlayerView struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	Name         string            `json:"name"`
	Image        string            `json:"image"`
	RoundsLeft   int               `json:"rounds_left"`
	Score        int               `json:"score"`
	Finished     bool              `json:"finished"`
	Winner       bool              `json:"winner"`
	Organization *OrganizationView `json:"organization"`
}

type OptionView struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// TriviaView hides which option is correct.
type TriviaView struct {
	ID      uuid.UUID    `json:"id"`
	Title   string       `json:"title"`
	Options []OptionView `json:"options"`
}

type GameView struct {
	ID      uuid.UUID       `json:"id"`
	Mode    models.GameMode `json:"mode"`
	Rounds  int             `json:"rounds"`
	Players []PlayerView    `json:"players"`
	Trivia  *TriviaView     `json:"trivia"`
}

func organizationView(o *models.Organization) *OrganizationView {
	if o == nil {
		return nil
	}
	return &OrganizationView{
		ID:      o.ID,
		Name:    o.Name,
		Mission: o.Mission,
		City:    o.City,
		State:   o.State,
		Picture: o.Picture,
	}
}

func playerView(g *models.Game, p *models.Player) PlayerView {
	v := PlayerView{
		ID:           p.ID,
		UserID:       p.UserID,
		RoundsLeft:   p.RoundsLeft(g.Rounds),
		Score:        p.Score(),
		Finished:     p.Finished(),
		Winner:       p.IsWinner(g),
		Organization: organizationView(p.Organization),
	}
	if p.User != nil {
		v.Name = p.User.Name
		v.Image = p.User.Image
	}
	return v
}

func triviaView(t *models.Trivia) *TriviaView {
	if t == nil {
		return nil
	}
	v := &TriviaView{ID: t.ID, Title: t.Title, Options: make([]OptionView, 0, len(t.Options))}
	for _, o := range t.Options {
		v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text})
	}
	return v
}

func gameView(g *models.Game, next *models.Trivia) GameView {
	v := GameView{
		ID:      g.ID,
		Mode:    g.Mode,
		Rounds:  g.Rounds,
		Players: make([]PlayerView, 0, len(g.Players)),
		Trivia:  triviaView(next),
	}
	for _, p := range g.Players {
		v.Players = append(v.Players, playerView(g, p))
	}
	return v
}
