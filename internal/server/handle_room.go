package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/harfgames/hayawan/internal/game"
	"github.com/harfgames/hayawan/internal/room"
	"github.com/harfgames/hayawan/internal/transport"
)

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomRequest struct {
	GameCode   string `json:"gameCode"`
	PlayerName string `json:"playerName"`
}

type RejoinRequest struct {
	PlayerName string `json:"playerName"`
}

type MeResponse struct {
	PlayerID string `json:"playerId"`
}

type CategoriesResponse struct {
	Core     []string `json:"core"`
	Optional []string `json:"optional"`
	Letters  []string `json:"letters"`
}

func handleMe(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := svc.PlayerID(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, MeResponse{PlayerID: id})
	}
}

func handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CategoriesResponse{
			Core:     game.CoreCategories,
			Optional: game.OptionalCategories,
			Letters:  game.Letters,
		})
	}
}

func handleCreateRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "playerName is required")
			return
		}

		g, err := svc.CreateGame(r.Context(), req.PlayerName)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleJoinRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.GameCode = strings.ToUpper(strings.TrimSpace(req.GameCode))
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if req.GameCode == "" || req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "gameCode and playerName are required")
			return
		}

		if err := svc.JoinGame(r.Context(), req.GameCode, req.PlayerName); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, svc.Game())
	}
}

func handleRejoinRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RejoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "playerName is required")
			return
		}

		if err := svc.Rejoin(r.Context(), req.PlayerName); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, svc.Game())
	}
}

func handleLeaveRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.LeaveGame(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"left": true})
	}
}

func handleGameState(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g := svc.Game()
		if g == nil {
			writeError(w, http.StatusNotFound, "no active game")
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// writeServiceError maps service and transport errors onto HTTP statuses.
// Connectivity failures are retriable; the client shows a retry prompt.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrNoGame), errors.Is(err, room.ErrNoKnownRoom):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrInGame):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, transport.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "messaging broker rejected credentials")
	case errors.Is(err, transport.ErrUnreachable):
		writeError(w, http.StatusBadGateway, "messaging broker unreachable, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
