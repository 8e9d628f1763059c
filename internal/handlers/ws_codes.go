// internal/handlers/ws_codes.go
package handlers

// Application close codes sent on the game websocket.
const (
	BadSubprotocolError = 3000 // Client did not negotiate the "game" subprotocol.
	FellBehindError     = 3001 // Client lagged the event stream; reconnect for a fresh snapshot.
	GameFinishedError   = 3002 // The game ended; no further events will follow.
)
