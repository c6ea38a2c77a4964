package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/app"
	"github.com/abhisek/rounds/internal/ui/report"
)

var progressCmd = &cobra.Command{
	Use:   "progress <document-id>",
	Short: "Show your level and scores on a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}

		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		doc, err := a.Simulator.GetDocument(ctx, user, args[0])
		if err != nil {
			return err
		}
		p, err := a.Simulator.GetProgress(ctx, user, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.Progress(p, doc.Title, termWidth))
		return nil
	},
}

func init() {
	addUserFlag(progressCmd)
}
