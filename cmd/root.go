package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Conversational legal intake assistant",
	Long: `Intake runs an AI assistant that talks with prospective clients of a law
firm, gathers the facts of their matter, and files it with the firm. It
serves an HTTP and WebSocket API, an interactive terminal chat, and an
MCP server for AI agents.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
