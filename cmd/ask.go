package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cellarist/cellarist/internal/app"
	"github.com/cellarist/cellarist/internal/config"
)

var (
	askUser         string
	askConversation string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the cellar assistant a one-off question",
	Long: `Ask runs one conversational exchange from the terminal.

Pass --conversation to continue an existing thread; without it a new
conversation is started and its ID printed, so a follow-up question can
pick up where this one left off.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "user ID (UUID, required)")
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "conversation ID to continue (UUID)")
	_ = askCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Provider == config.ProviderGoogleAI && os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		return fmt.Errorf("GEMINI_API_KEY not set")
	}

	userID, err := uuid.Parse(askUser)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}
	conversationID := uuid.Nil
	if askConversation != "" {
		conversationID, err = uuid.Parse(askConversation)
		if err != nil {
			return fmt.Errorf("invalid --conversation: %w", err)
		}
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	question := strings.Join(args, " ")
	resp, err := a.Agent.Converse(ctx, userID, conversationID, question)
	if err != nil && resp == nil {
		return fmt.Errorf("asking: %w", err)
	}
	if err != nil {
		// Persistence failed but an answer was produced; show it anyway.
		a.Logger.Warn("exchange not persisted", "error", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.AnswerText)
	if resp.Truncated {
		fmt.Fprintln(out, "\n(answer cut short: tool iteration limit reached)")
	}
	if len(resp.WineRefs) > 0 {
		fmt.Fprintln(out, "\nWines mentioned:")
		for _, w := range resp.WineRefs {
			if w.Vintage > 0 {
				fmt.Fprintf(out, "  - %s %d (%s)\n", w.Name, w.Vintage, w.ID)
			} else {
				fmt.Fprintf(out, "  - %s (%s)\n", w.Name, w.ID)
			}
		}
	}
	fmt.Fprintf(out, "\nConversation: %s\n", resp.ConversationID)
	return nil
}
