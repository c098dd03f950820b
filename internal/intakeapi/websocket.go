package intakeapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/toolcall"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"`       // "message" or "reset"
	SessionID string `json:"session_id"` // empty starts a new session
	TeamID    string `json:"team_id"`
	Content   string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type        string         `json:"type"` // "response" or "error"
	SessionID   string         `json:"session_id"`
	Content     string         `json:"content"`
	ToolInvoked *toolcall.Name `json:"tool_invoked,omitempty"`
	State       string         `json:"state,omitempty"`
	Error       *errorBody     `json:"error,omitempty"`
}

// handleWebSocket keeps the message history of one connection and runs a
// turn for every message. The stored context outlives the connection.
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var (
		sessionID = r.URL.Query().Get("session_id")
		teamID    = r.URL.Query().Get("team_id")
		history   []conversation.Message
	)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			a.send(conn, wsResponse{Type: "error", SessionID: sessionID, Content: "invalid message format"})
			continue
		}
		if req.SessionID != "" && req.SessionID != sessionID {
			sessionID, history = req.SessionID, nil
		}
		if req.TeamID != "" {
			teamID = req.TeamID
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		switch req.Type {
		case "reset":
			history = nil
			sessionID = uuid.NewString()
			a.send(conn, wsResponse{Type: "response", SessionID: sessionID})
			continue
		case "message", "":
		default:
			a.send(conn, wsResponse{Type: "error", SessionID: sessionID, Content: "unknown message type: " + req.Type})
			continue
		}

		if strings.TrimSpace(req.Content) == "" {
			a.send(conn, wsResponse{Type: "error", SessionID: sessionID, Content: "content is required"})
			continue
		}

		turn := append(history, conversation.Message{Role: conversation.RoleUser, Content: req.Content})
		res := a.turns.HandleTurn(r.Context(), orchestrator.TurnRequest{
			Messages:  turn,
			SessionID: sessionID,
			TeamID:    teamID,
		})
		if !res.Success() {
			a.send(conn, wsResponse{Type: "error", SessionID: sessionID, Content: res.Err().Message(), Error: toErrorBody(res.Err())})
			continue
		}

		out := res.Data()
		history = append(turn, conversation.Message{Role: conversation.RoleAssistant, Content: out.ResponseText})
		a.send(conn, wsResponse{
			Type:        "response",
			SessionID:   sessionID,
			Content:     out.ResponseText,
			ToolInvoked: out.ToolInvoked,
			State:       out.Context.State,
			Error:       toErrorBody(out.Error),
		})
	}
}

func (a *API) send(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		a.log.Warn("websocket write failed", zap.Error(err))
	}
}
