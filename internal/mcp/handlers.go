package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/matters"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
)

// MatterLister lists stored matters. *matters.Store satisfies it.
type MatterLister interface {
	List(ctx context.Context, f matters.ListFilter) ([]matters.Matter, error)
}

func historyKey(sessionID, teamID string) string {
	return teamID + "\x00" + sessionID
}

// handleIntakeTurn appends the message to the session history and runs a turn.
func (s *Server) handleIntakeTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	teamID, err := request.RequireString("team_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: team_id"), nil
	}
	message, err := request.RequireString("message")
	if err != nil || strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	key := historyKey(sessionID, teamID)
	prior, _ := s.history.Get(key)
	turn := append(append([]conversation.Message(nil), prior...), conversation.Message{Role: conversation.RoleUser, Content: message})

	res := s.turns.HandleTurn(ctx, orchestrator.TurnRequest{Messages: turn, SessionID: sessionID, TeamID: teamID})
	if !res.Success() {
		return mcp.NewToolResultError(res.Err().Message()), nil
	}

	out := res.Data()
	s.history.Add(key, append(turn, conversation.Message{Role: conversation.RoleAssistant, Content: out.ResponseText}))

	var sb strings.Builder
	sb.WriteString(out.ResponseText)
	fmt.Fprintf(&sb, "\n\n---\nState: %s", out.Context.State)
	if out.ToolInvoked != nil {
		fmt.Fprintf(&sb, "\nTool: %s", *out.ToolInvoked)
	}
	if out.Error != nil {
		fmt.Fprintf(&sb, "\nError: %s (retryable: %t)", out.Error.Code(), out.Error.IsRetryable())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetIntakeContext returns the stored context as JSON.
func (s *Server) handleGetIntakeContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	teamID, err := request.RequireString("team_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: team_id"), nil
	}

	c := s.turns.LoadContext(ctx, sessionID, teamID)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode context: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleListMatters lists matters as a markdown table.
func (s *Server) handleListMatters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	list, err := s.matters.List(ctx, matters.ListFilter{
		TeamID: request.GetString("team_id", ""),
		Status: matters.Status(request.GetString("status", "")),
		Limit:  limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing matters failed: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No matters found."), nil
	}

	var sb strings.Builder
	sb.WriteString("| ID | Team | Type | Status | Created |\n|---|---|---|---|---|\n")
	for _, m := range list {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n", m.ID, m.TeamID, m.MatterType, m.Status, m.CreatedAt.Format("2006-01-02"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
