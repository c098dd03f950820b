package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/orchestrator"
)

var chatTeam string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the intake assistant in the terminal",
	Long:  `Starts an interactive intake conversation for a team. Type /reset to start a new session and /exit to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		team := a.cfg.Team(chatTeam)
		firm := team.Branding.FirmName
		if firm == "" {
			firm = chatTeam
		}
		fmt.Printf("Intake chat for %s. Type /reset to start over, /exit to quit.\n\n", firm)

		sessionID := uuid.NewString()
		var history []conversation.Message

		for {
			prompt := promptui.Prompt{Label: "You"}
			line, err := prompt.Run()
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/exit", "/quit":
				return nil
			case "/reset":
				sessionID = uuid.NewString()
				history = nil
				fmt.Println("Started a new session.")
				continue
			}

			history = append(history, conversation.Message{Role: conversation.RoleUser, Content: line})
			res := a.orchestrator.HandleTurn(cmd.Context(), orchestrator.TurnRequest{
				Messages:  history,
				SessionID: sessionID,
				TeamID:    chatTeam,
			})
			if !res.Success() {
				history = history[:len(history)-1]
				fmt.Printf("Error: %s\n\n", res.Err().Message())
				continue
			}

			turn := res.Data()
			history = append(history, conversation.Message{Role: conversation.RoleAssistant, Content: turn.ResponseText})
			fmt.Printf("\nAssistant: %s\n", turn.ResponseText)
			if turn.ToolInvoked != nil {
				fmt.Printf("  [%s]\n", *turn.ToolInvoked)
			}
			if verbose {
				fmt.Printf("  state=%s phase=%s\n", turn.Context.State, turn.Context.Phase)
			}
			fmt.Println()
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatTeam, "team", "default", "team id to chat as")
	rootCmd.AddCommand(chatCmd)
}
