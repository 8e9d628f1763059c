package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPlayerRespectsSeats(t *testing.T) {
	a, b, c := newUser(), newUser(), newUser()

	single := NewGame(a, ModeSingle, 3)
	_, err := single.AddPlayer(a)
	require.NoError(t, err)
	_, err = single.AddPlayer(b)
	assert.ErrorIs(t, err, ErrGameFull)

	versus := NewGame(a, ModeVersus, 3)
	_, _ = versus.AddPlayer(a)
	_, err = versus.AddPlayer(b)
	require.NoError(t, err)
	_, err = versus.AddPlayer(c)
	assert.ErrorIs(t, err, ErrGameFull)

	assert.True(t, versus.HasUsers(a.ID, b.ID))
	assert.False(t, versus.HasUsers(a.ID, c.ID))
}

func TestEmptyGameIsUnfinished(t *testing.T) {
	assert.True(t, NewGame(newUser(), ModeSingle, 1).Unfinished())
}

func TestWinner(t *testing.T) {
	tr := newTrivia(t)
	right, wrong := tr.CorrectOption().ID, tr.Options[0].ID
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		aOpt, bOpt []bool // true = correct answer
		aAt, bAt   *time.Time
		want       string // "a", "b" or ""
	}{
		{name: "higher score wins", aOpt: []bool{true, true}, bOpt: []bool{true, false}, aAt: ptr(base.Add(time.Minute)), bAt: ptr(base), want: "a"},
		{name: "tie broken by earlier finish", aOpt: []bool{true}, bOpt: []bool{true}, aAt: ptr(base.Add(time.Second)), bAt: ptr(base), want: "b"},
		{name: "full tie has no winner", aOpt: []bool{true}, bOpt: []bool{true}, aAt: ptr(base), bAt: ptr(base), want: ""},
		{name: "unfinished players are ignored", aOpt: []bool{true, true}, bOpt: []bool{false}, bAt: ptr(base), want: "b"},
		{name: "nobody finished", aOpt: []bool{true}, bOpt: []bool{true}, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := newUser(), newUser()
			g := NewGame(a, ModeVersus, 2)
			pa, _ := g.AddPlayer(a)
			pb, _ := g.AddPlayer(b)
			for _, ok := range tc.aOpt {
				pa.Answer(tr, pick(ok, right, wrong), base)
			}
			for _, ok := range tc.bOpt {
				pb.Answer(tr, pick(ok, right, wrong), base)
			}
			pa.FinishedAt, pb.FinishedAt = tc.aAt, tc.bAt

			w := g.Winner()
			switch tc.want {
			case "a":
				assert.Same(t, pa, w)
			case "b":
				assert.Same(t, pb, w)
			default:
				assert.Nil(t, w)
			}
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

func pick[T any](ok bool, a, b T) T {
	if ok {
		return a
	}
	return b
}
