package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize intake configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider, context store and port, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
