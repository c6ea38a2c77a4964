package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/simulator"
	"github.com/abhisek/rounds/internal/ui/report"
)

// termWidth is the card width for terminal output.
const termWidth = 80

var answerCmd = &cobra.Command{
	Use:   "answer <question-id> <answer...>",
	Short: "Submit an answer for grading",
	Long: "Submit an answer for grading. Pass --key to make a retry safe: a\n" +
		"resubmission with the same key returns the recorded grade.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			key = uuid.NewString()
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		outcome, err := a.Simulator.SubmitAnswer(cmd.Context(), simulator.SubmitRequest{
			QuestionID:     args[0],
			UserID:         user,
			Text:           strings.Join(args[1:], " "),
			IdempotencyKey: key,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.Outcome(outcome, termWidth))
		return nil
	},
}

func init() {
	answerCmd.Flags().String("key", "", "Idempotency key (random when omitted)")
	addUserFlag(answerCmd)
}
