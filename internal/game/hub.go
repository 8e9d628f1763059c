// internal/game/hub.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// EventType names a live game update pushed to subscribers.
type EventType string

const (
	EventPlayerAnswered EventType = "player_answered"
	EventPlayerFinished EventType = "player_finished"
	EventGameFinished   EventType = "game_finished"
)

// Event is a single update about a game, encoded as JSON on the websocket.
type Event struct {
	Type       EventType  `json:"type"`
	GameID     uuid.UUID  `json:"game_id"`
	UserID     uuid.UUID  `json:"user_id,omitempty"`
	RoundsLeft *int       `json:"rounds_left,omitempty"`
	Score      *int       `json:"score,omitempty"`
	Correct    *bool      `json:"correct,omitempty"`
	WinnerID   *uuid.UUID `json:"winner_id,omitempty"`
}

// subscriberBuffer is how many events a subscriber may lag before it is
// cut off.
const subscriberBuffer = 16

// Hub fans game events out to every subscriber of that game.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Subscribe registers for events of gameID. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(gameID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[chan Event]struct{})
	}
	h.subs[gameID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.removeLocked(gameID, ch)
		})
	}
}

// Publish delivers ev to the subscribers of its game without blocking. A
// subscriber whose buffer is full is removed and its channel closed, so it
// never misses an event silently.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.GameID] {
		select {
		case ch <- ev:
		default:
			h.removeLocked(ev.GameID, ch)
		}
	}
}

func (h *Hub) removeLocked(gameID uuid.UUID, ch chan Event) {
	if _, ok := h.subs[gameID][ch]; !ok {
		return
	}
	delete(h.subs[gameID], ch)
	if len(h.subs[gameID]) == 0 {
		delete(h.subs, gameID)
	}
	close(ch)
}

// Subscribers reports how many subscribers a game has.
func (h *Hub) Subscribers(gameID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}
