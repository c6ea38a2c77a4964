package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/rounds/internal/app"
	"github.com/abhisek/rounds/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Adaptive clinical decision simulator",
	Long: "Rounds generates clinical scenario questions from uploaded guidelines, grades\n" +
		"free-text answers against a four-part rubric and moves each learner through\n" +
		"five difficulty levels per document.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to rounds.yaml (overrides ROUNDS_CONFIG)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides store.dsn)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(rubricCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the config path (--config, then ROUNDS_CONFIG, then
// the XDG default) and applies the --db override.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.DSN = db
	}
	return cfg, nil
}

// openApp loads configuration and builds the engine. The caller closes it.
func openApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cmd.Context(), cfg, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// addUserFlag registers --user, defaulting to ROUNDS_USER and then $USER.
func addUserFlag(c *cobra.Command) {
	def := os.Getenv("ROUNDS_USER")
	if def == "" {
		def = os.Getenv("USER")
	}
	c.Flags().StringP("user", "u", def, "Learner id")
}

func userFlag(cmd *cobra.Command) (string, error) {
	u, _ := cmd.Flags().GetString("user")
	if u == "" {
		return "", fmt.Errorf("no learner id: pass --user or set ROUNDS_USER")
	}
	return u, nil
}
