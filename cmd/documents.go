package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/app"
	"github.com/abhisek/rounds/internal/store"
	"github.com/abhisek/rounds/internal/ui/report"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		specialty, _ := cmd.Flags().GetString("specialty")

		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.Simulator.ListDocuments(cmd.Context(), store.Specialty(specialty))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Documents(docs))
		return nil
	},
}

func init() {
	documentsCmd.Flags().String("specialty", "", "Filter by specialty (hospitalist, cardiology, icu)")
}
