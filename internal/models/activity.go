package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind names what happened in an activity feed entry.
type ActivityKind string

const (
	ActivityGameStarted  ActivityKind = "game_started"
	ActivityGameFinished ActivityKind = "game_finished"
	ActivityBadgeEarned  ActivityKind = "badge_earned"
)

type Activity struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	Kind      ActivityKind `json:"kind"`
	SubjectID uuid.UUID    `json:"subject_id"`
	CreatedAt time.Time    `json:"created_at"`

	// Seq is the insertion order, used to break CreatedAt ties.
	Seq int64 `json:"-"`
}

type Badge struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Image string    `json:"image"`
}
