package mcp

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/intakeapi"
)

// Version is set via ldflags at build time.
var Version = "dev"

const historySize = 256

// Server wraps an MCP server that exposes intake tools.
type Server struct {
	turns   intakeapi.TurnHandler
	history *lru.Cache[string, []conversation.Message]
	matters MatterLister
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server over turns.
func NewServer(turns intakeapi.TurnHandler) *Server {
	history, _ := lru.New[string, []conversation.Message](historySize)
	s := &Server{
		turns:   turns,
		history: history,
	}

	s.mcp = server.NewMCPServer(
		"intake",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(intakeTurnTool, s.handleIntakeTurn)
	s.mcp.AddTool(getIntakeContextTool, s.handleGetIntakeContext)
}

// SetMatterLister enables the list_matters tool.
func (s *Server) SetMatterLister(m MatterLister) {
	s.matters = m
	s.mcp.AddTool(listMattersTool, s.handleListMatters)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
