// Package intakeapi exposes intake turns over HTTP and WebSocket.
package intakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/errs"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

const maxBodyBytes = 1 << 20

// TurnHandler runs turns. *orchestrator.Orchestrator satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req orchestrator.TurnRequest) errs.Result[orchestrator.TurnResult]
	LoadContext(ctx context.Context, sessionID, teamID string) conversation.Context
}

// API serves the intake endpoints.
type API struct {
	turns TurnHandler
	log   *zap.Logger
}

// New creates an API over turns.
func New(turns TurnHandler, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{turns: turns, log: logger.Named("intakeapi")}
}

// RegisterRoutes mounts the intake endpoints under /api/intake.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/intake", func(r chi.Router) {
		r.Post("/turn", a.handleTurn)
		r.Get("/sessions/{team}/{session}/context", a.handleContext)
	})
}

// RegisterWebSocket mounts /ws/intake. Connections are long lived, so the
// route must not sit behind a request timeout.
func (a *API) RegisterWebSocket(r chi.Router) {
	r.Get("/ws/intake", a.handleWebSocket)
}

type errorBody struct {
	Code      errs.Code `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Retryable bool      `json:"retryable"`
}

type turnResponse struct {
	Response    string               `json:"response"`
	ToolInvoked *toolcall.Name       `json:"tool_invoked,omitempty"`
	State       string               `json:"state"`
	Context     conversation.Context `json:"context"`
	Error       *errorBody           `json:"error,omitempty"`
}

func toErrorBody(e *errs.Error) *errorBody {
	if e == nil {
		return nil
	}
	return &errorBody{Code: e.Code(), Message: e.Message(), Field: e.Field(), Retryable: e.IsRetryable()}
}

func toResponse(res orchestrator.TurnResult) turnResponse {
	return turnResponse{
		Response:    res.ResponseText,
		ToolInvoked: res.ToolInvoked,
		State:       res.Context.State,
		Context:     res.Context,
		Error:       toErrorBody(res.Error),
	}
}

func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req orchestrator.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]*errorBody{"error": {Code: errs.CodeInvalidRequest, Message: "invalid JSON body"}})
		return
	}

	res := a.turns.HandleTurn(r.Context(), req)
	if !res.Success() {
		writeJSON(w, http.StatusBadRequest, map[string]*errorBody{"error": toErrorBody(res.Err())})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res.Data()))
}

func (a *API) handleContext(w http.ResponseWriter, r *http.Request) {
	c := a.turns.LoadContext(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "team"))
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
