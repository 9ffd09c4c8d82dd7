package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/harfgames/hayawan/internal/game"
	"github.com/harfgames/hayawan/internal/room"
)

// handleWS is the WebSocket flavor of the state stream, for clients that
// prefer it over SSE. Snapshots only flow server to client; intents still
// go through the JSON endpoints.
func handleWS(logger *slog.Logger, svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 4*time.Hour)
		defer cancel()

		updates := make(chan []byte, 16)
		subID := svc.Subscribe(func(g *game.Game) {
			data, err := json.Marshal(g)
			if err != nil {
				return
			}
			offerLatest(updates, data)
		})
		defer svc.Unsubscribe(subID)

		if data, err := json.Marshal(svc.Game()); err == nil {
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case data := <-updates:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
