package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/harfgames/hayawan/internal/game"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Hayawan API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Hayawan word game client.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/me")
	getMe.SetSummary("Local player identity")
	getMe.SetDescription("Returns the stable local player id, generating it on first use.")
	getMe.AddRespStructure(MeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getMe)

	// GET /api/categories
	getCats, _ := r.NewOperationContext(http.MethodGet, "/api/categories")
	getCats.SetSummary("Category and letter catalog")
	getCats.AddRespStructure(CategoriesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCats)

	// POST /api/room
	postRoom, _ := r.NewOperationContext(http.MethodPost, "/api/room")
	postRoom.SetSummary("Create room")
	postRoom.SetDescription("Creates a new game with the local player as host and returns the lobby state.")
	postRoom.AddReqStructure(CreateRoomRequest{})
	postRoom.AddRespStructure(game.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	postRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postRoom)

	// POST /api/room/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/room/join")
	postJoin.SetSummary("Join room")
	postJoin.SetDescription("Joins an existing room by game code and announces the player to the host.")
	postJoin.AddReqStructure(JoinRoomRequest{})
	postJoin.AddRespStructure(game.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postJoin)

	// POST /api/room/rejoin
	postRejoin, _ := r.NewOperationContext(http.MethodPost, "/api/room/rejoin")
	postRejoin.SetSummary("Rejoin last room")
	postRejoin.SetDescription("Reconnects to the last remembered room after a restart.")
	postRejoin.AddReqStructure(RejoinRequest{})
	postRejoin.AddRespStructure(game.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	postRejoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postRejoin)

	// POST /api/room/leave
	postLeave, _ := r.NewOperationContext(http.MethodPost, "/api/room/leave")
	postLeave.SetSummary("Leave room")
	postLeave.SetDescription("Announces departure; a leaving host terminates the game for everyone.")
	postLeave.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postLeave.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postLeave)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Current game state")
	getState.AddRespStructure(game.Game{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getState)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE state stream")
	getEvents.SetDescription("Server-Sent Events stream of canonical state snapshots.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/game/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/game/ws")
	getWS.SetSummary("WebSocket state stream")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// Intent endpoints all answer 202 once the action is published.
	intents := []struct {
		path    string
		summary string
		req     any
	}{
		{"/api/game/settings", "Update lobby settings", game.SettingsPayload{}},
		{"/api/game/avatar", "Update avatar", AvatarRequest{}},
		{"/api/game/start", "Start game", nil},
		{"/api/game/letter", "Choose letter", LetterRequest{}},
		{"/api/game/answers", "Submit answers (stop)", AnswersRequest{}},
		{"/api/game/next", "Next round", nil},
		{"/api/game/override", "Manually override a score", game.OverridePayload{}},
		{"/api/game/end", "End game", nil},
		{"/api/game/play-again", "Play again", nil},
	}
	for _, it := range intents {
		op, _ := r.NewOperationContext(http.MethodPost, it.path)
		op.SetSummary(it.summary)
		if it.req != nil {
			op.AddReqStructure(it.req)
		}
		op.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusAccepted))
		op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
		_ = r.AddOperation(op)
	}

	// POST /api/game/spin
	postSpin, _ := r.NewOperationContext(http.MethodPost, "/api/game/spin")
	postSpin.SetSummary("Spin a random unused letter")
	postSpin.AddRespStructure(SpinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSpin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postSpin)

	// PUT /api/game/draft
	putDraft, _ := r.NewOperationContext(http.MethodPut, "/api/game/draft")
	putDraft.SetSummary("Save draft answers")
	putDraft.SetDescription("Persists in-progress answers for reload recovery and round-end backfill.")
	putDraft.AddReqStructure(AnswersRequest{})
	putDraft.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(putDraft)

	// GET /api/game/draft
	getDraft, _ := r.NewOperationContext(http.MethodGet, "/api/game/draft")
	getDraft.SetSummary("Load draft answers")
	getDraft.AddRespStructure(AnswersRequest{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getDraft)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
