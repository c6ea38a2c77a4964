package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/app"
	"github.com/abhisek/rounds/internal/document"
	"github.com/abhisek/rounds/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a guideline from extracted text",
	Long: "Ingest a guideline from a plain-text file. Pages are separated by form\n" +
		"feeds, which is what pdftotext emits.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		docType, _ := cmd.Flags().GetString("type")
		specialty, _ := cmd.Flags().GetString("specialty")
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.Simulator.IngestDocument(cmd.Context(), document.IngestRequest{
			Title:      title,
			Type:       store.DocumentType(docType),
			Specialty:  store.Specialty(specialty),
			UploadedBy: user,
			Pages:      splitPages(string(data)),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Ingested %q (%s, %s)\n", doc.Title, doc.Type, doc.Specialty)
		fmt.Fprintf(out, "  id:     %s\n", doc.ID)
		fmt.Fprintf(out, "  chunks: %d\n", doc.ChunkCount)
		return nil
	},
}

// splitPages cuts pdftotext output into pages. A trailing form feed does not
// start an extra page.
func splitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

func init() {
	ingestCmd.Flags().String("title", "", "Document title (defaults to the file name)")
	ingestCmd.Flags().String("type", "", "guideline, protocol or textbook (default guideline)")
	ingestCmd.Flags().String("specialty", "", "hospitalist, cardiology or icu (default hospitalist)")
	addUserFlag(ingestCmd)
}
