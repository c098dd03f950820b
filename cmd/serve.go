package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing intake turns, session context and filed matters as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcpserver.NewServer(a.orchestrator)
		srv.SetMatterLister(a.matters)

		// Stdout carries the protocol; the logger writes to stderr.
		a.log.Info("intake MCP server started on stdio",
			zap.String("provider", string(a.cfg.Provider)),
			zap.String("model", a.cfg.Model))
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
