package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by stores when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrGameFull is returned when a player is added to a game that has no free seat.
	ErrGameFull = errors.New("game is full")

	// ErrNoRoundsLeft is returned when an answer would exceed the game's rounds.
	ErrNoRoundsLeft = errors.New("player has no rounds left")
)

// ValidationError reports per-field problems that block persistence.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field errors were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// errOrNil keeps callers from returning a typed nil inside an error interface.
func (e *ValidationError) errOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}
