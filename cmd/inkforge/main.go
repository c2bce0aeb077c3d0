// Command inkforge builds Lorcana decks from a free-text description.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/InkForge/internal/config"
	"github.com/ramonehamilton/InkForge/internal/logging"
	"github.com/ramonehamilton/InkForge/internal/version"
)

var (
	// Global flags
	configPath string
	verbose    bool
	dbPath     string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "inkforge",
	Short: "InkForge - retrieval-driven Lorcana deck builder",
	Long: `InkForge turns a free-text description of a deck into a legal,
ink-balanced decklist built from the card corpus.

It retrieves candidates by semantic similarity, drops cards that are not
legal in the chosen format, settles on one or two inks and assembles the
deck under copy and inkable-ratio constraints.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logCfg := logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development}
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logging.New(logCfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.inkforge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "card corpus database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Version = version.GetVersion()
	rootCmd.AddCommand(serveCmd, buildCmd, cardsCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
