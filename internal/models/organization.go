package models

import "github.com/google/uuid"

// Organization is a sponsor whose public profile may be cached from the social graph.
type Organization struct {
	ID         uuid.UUID `json:"id"`
	FacebookID string    `json:"facebook_id"`
	Name       string    `json:"name"`
	Mission    string    `json:"mission"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Zip        string    `json:"zip"`
	Picture    string    `json:"picture"`
	Cached     bool      `json:"cached"`
}
