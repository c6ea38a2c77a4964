package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/simulator"
	"github.com/abhisek/rounds/internal/ui/report"
)

var askCmd = &cobra.Command{
	Use:   "ask <document-id>",
	Short: "Generate a scenario question at your current level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		topic, _ := cmd.Flags().GetString("topic")
		level, _ := cmd.Flags().GetInt("level")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.Simulator.GenerateQuestion(cmd.Context(), simulator.GenerateRequest{
			DocumentID: args[0],
			UserID:     user,
			Topic:      topic,
			Level:      level,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, report.Question(q, termWidth))
		fmt.Fprintf(out, "\nAnswer with: rounds answer %s \"<your answer>\"\n", q.ID)
		return nil
	},
}

func init() {
	askCmd.Flags().String("topic", "", "Steer the scenario toward a topic")
	askCmd.Flags().Int("level", 0, "Override the difficulty level (1-5)")
	addUserFlag(askCmd)
}
