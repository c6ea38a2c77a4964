package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/app"
	"github.com/abhisek/rounds/internal/ui/report"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Show the grading rubric",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintln(cmd.OutOrStdout(), report.Rubric(a.Simulator.Rubric(), termWidth))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show grade averages across all learners",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Simulator.Statistics(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Statistics(st, termWidth))
		return nil
	},
}
