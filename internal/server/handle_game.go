package server

import (
	"net/http"
	"strings"

	"github.com/harfgames/hayawan/internal/game"
	"github.com/harfgames/hayawan/internal/room"
)

// Game intents are fire-and-forget: the handler publishes the action and
// returns 202; the resulting state arrives over the SSE/WS stream once the
// host has folded it in.

type LetterRequest struct {
	Letter string `json:"letter"`
}

type AnswersRequest struct {
	Answers game.Answers `json:"answers"`
}

type AvatarRequest struct {
	AvatarURL string `json:"avatarUrl"`
}

type SpinResponse struct {
	Letter string `json:"letter"`
}

func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func handleSettings(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.SettingsPayload
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.UpdateSettings(r.Context(), req); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleAvatar(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvatarRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.AvatarURL = strings.TrimSpace(req.AvatarURL)
		if req.AvatarURL == "" {
			writeError(w, http.StatusBadRequest, "avatarUrl is required")
			return
		}
		if err := svc.UpdateAvatar(r.Context(), req.AvatarURL); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleStart(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.StartGame(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleSpin(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		letter, err := svc.SpinLetter(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SpinResponse{Letter: letter})
	}
}

func handleLetter(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LetterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Letter = strings.TrimSpace(req.Letter)
		if req.Letter == "" {
			writeError(w, http.StatusBadRequest, "letter is required")
			return
		}
		if err := svc.ChooseLetter(r.Context(), req.Letter); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleAnswers(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswersRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Answers == nil {
			req.Answers = game.Answers{}
		}
		if err := svc.EndRound(r.Context(), req.Answers); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleNext(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.NextRound(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleOverride(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.OverridePayload
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlayerID == "" || req.Category == "" {
			writeError(w, http.StatusBadRequest, "playerId and category are required")
			return
		}
		if err := svc.OverrideScore(r.Context(), req); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleEnd(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.EndGame(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handlePlayAgain(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.PlayAgain(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		accepted(w)
	}
}

func handleSaveDraft(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswersRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.SaveDraft(r.Context(), req.Answers); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
	}
}

func handleGetDraft(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answers, err := svc.Draft(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if answers == nil {
			answers = game.Answers{}
		}
		writeJSON(w, http.StatusOK, AnswersRequest{Answers: answers})
	}
}
