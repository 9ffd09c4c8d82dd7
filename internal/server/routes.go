package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/harfgames/hayawan/internal/room"
)

func addRoutes(r chi.Router, logger *slog.Logger, svc *room.Service, checks map[string]Checker, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Hayawan API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, checks))

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", handleMe(svc))
		r.Get("/categories", handleCategories())

		r.Post("/room", handleCreateRoom(svc))
		r.Post("/room/join", handleJoinRoom(svc))
		r.Post("/room/rejoin", handleRejoinRoom(svc))
		r.Post("/room/leave", handleLeaveRoom(svc))

		r.Get("/game/state", handleGameState(svc))
		r.Get("/game/events", handleEvents(logger, svc))
		r.Get("/game/ws", handleWS(logger, svc))

		r.Post("/game/settings", handleSettings(svc))
		r.Post("/game/avatar", handleAvatar(svc))
		r.Post("/game/start", handleStart(svc))
		r.Post("/game/spin", handleSpin(svc))
		r.Post("/game/letter", handleLetter(svc))
		r.Post("/game/answers", handleAnswers(svc))
		r.Post("/game/next", handleNext(svc))
		r.Post("/game/override", handleOverride(svc))
		r.Post("/game/end", handleEnd(svc))
		r.Post("/game/play-again", handlePlayAgain(svc))

		r.Put("/game/draft", handleSaveDraft(svc))
		r.Get("/game/draft", handleGetDraft(svc))
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
