package mcp

import "github.com/mark3labs/mcp-go/mcp"

// intakeTurnTool defines the intake_turn MCP tool.
var intakeTurnTool = mcp.NewTool("intake_turn",
	mcp.WithDescription("Send one visitor message to the legal intake assistant and get its reply. History is kept per session."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Conversation session identifier"),
	),
	mcp.WithString("team_id",
		mcp.Required(),
		mcp.Description("Law firm team identifier"),
	),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The visitor's message"),
	),
)

// getIntakeContextTool defines the get_intake_context MCP tool.
var getIntakeContextTool = mcp.NewTool("get_intake_context",
	mcp.WithDescription("Get what the intake assistant has learned about a session: matter types, contact details, progress state."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Conversation session identifier"),
	),
	mcp.WithString("team_id",
		mcp.Required(),
		mcp.Description("Law firm team identifier"),
	),
)

// listMattersTool defines the list_matters MCP tool.
var listMattersTool = mcp.NewTool("list_matters",
	mcp.WithDescription("List matters opened through intake."),
	mcp.WithString("team_id",
		mcp.Description("Only list matters for this team"),
	),
	mcp.WithString("status",
		mcp.Description("Only list matters with this status"),
		mcp.Enum("new", "in_review", "accepted", "declined"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of matters to return (default 20)"),
	),
)
