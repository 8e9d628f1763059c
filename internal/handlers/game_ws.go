// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/game"
	"github.com/givdo/givdo/internal/middleware"
)

const wsWriteTimeout = 5 * time.Second

// errFellBehind reports that the hub cut off a subscriber whose buffer filled up.
var errFellBehind = errors.New("subscription closed")

// GameMessage is a client message on the game socket. Only "ping" is understood.
type GameMessage struct {
	Type string `json:"type"`
}

// gameSnapshot is the first message sent to a new subscriber.
type gameSnapshot struct {
	Type string   `json:"type"`
	Game GameView `json:"game"`
}

// GameWS streams live events of a game to one of its players. Answers are
// still submitted over HTTP; the socket only pushes updates.
func (s *Server) GameWS(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	user := middleware.UserFrom(r.Context())
	if g.Player(user.ID) == nil {
		writeError(w, r, s.Logger, game.ErrNotPlayer)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.WithError(err).WithField("game", g.ID).Warn("websocket accept error")
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != "game" {
		c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	// subscribe before the snapshot so no event falls in between
	events, unsubscribe := s.Hub.Subscribe(g.ID)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := s.Logger.WithFields(logrus.Fields{"game": g.ID, "user": user.ID})
	sendWsMessage(ctx, c, log, gameSnapshot{Type: "game_state", Game: gameView(g, nil)})
	if !g.Unfinished() {
		c.Close(GameFinishedError, "game finished")
		return
	}

	readErr := make(chan error, 1)
	go func() {
		readErr <- readGameMessages(ctx, c, log)
		cancel()
	}()

	err = streamEvents(ctx, c, events, log)
	cancel()
	switch {
	case err == nil:
		c.Close(GameFinishedError, "game finished")
	case errors.Is(err, errFellBehind):
		log.Warn("subscriber fell behind, closing socket")
		c.Close(FellBehindError, "fell behind, reconnect")
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, <-readErr)
}

// streamEvents forwards hub events until the game finishes (nil) or the
// connection goes away.
func streamEvents(ctx context.Context, c *websocket.Conn, events <-chan game.Event, log *logrus.Entry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errFellBehind
			}
			if err := sendWsMessage(ctx, c, log, ev); err != nil {
				return err
			}
			if ev.Type == game.EventGameFinished {
				return nil
			}
		}
	}
}

// readGameMessages answers pings until the client disconnects or ctx ends.
func readGameMessages(ctx context.Context, c *websocket.Conn, log *logrus.Entry) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, log, "Invalid JSON format.")
			continue
		}
		switch msg.Type {
		case "ping":
			sendWsMessage(ctx, c, log, map[string]string{"type": "pong"})
		default:
			sendWsError(ctx, c, log, "Unknown message type: "+msg.Type)
		}
	}
}

func sendWsMessage(ctx context.Context, c *websocket.Conn, log *logrus.Entry, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Error("failed to marshal websocket message")
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
		log.WithError(err).Debug("websocket write failed")
		return err
	}
	return nil
}

func sendWsError(ctx context.Context, c *websocket.Conn, log *logrus.Entry, msg string) {
	sendWsMessage(ctx, c, log, map[string]string{"type": "error", "message": msg})
}
