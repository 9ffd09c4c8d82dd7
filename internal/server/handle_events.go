package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harfgames/hayawan/internal/game"
	"github.com/harfgames/hayawan/internal/room"
)

// offerLatest enqueues a snapshot, evicting the oldest buffered one when
// the channel is full so the receiver always ends on the newest state.
func offerLatest(ch chan []byte, data []byte) {
	for {
		select {
		case ch <- data:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// handleEvents streams canonical state snapshots over SSE. The current
// mirror is sent immediately, then every swap; a "no game" (terminal)
// swap is streamed as a JSON null so the UI can return to its entry point.
func handleEvents(logger *slog.Logger, svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		// Buffered so a slow client never blocks the observer callback.
		// When the buffer fills, the oldest snapshot is evicted: a client
		// that falls behind catches up on the newest state, never a stale
		// one.
		updates := make(chan []byte, 16)
		subID := svc.Subscribe(func(g *game.Game) {
			data, err := json.Marshal(g)
			if err != nil {
				logger.Error("encoding snapshot failed", "error", err)
				return
			}
			offerLatest(updates, data)
		})
		defer svc.Unsubscribe(subID)

		if data, err := json.Marshal(svc.Game()); err == nil {
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			flusher.Flush()
		}

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-updates:
				fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
