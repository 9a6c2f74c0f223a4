// Coin exchange widget backend.
//
// Main CLI entrypoint using the cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/damon-houk/coin-exchange-widget/internal/config"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

// Global config and logger, set before any command runs
var (
	cfg *config.Config
	log *logger.JSONLogger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coinconv",
	Short: "Coin exchange widget backend",
	Long: `coinconv converts between two coins using a remote rate API.
It keeps the last conversion in a local session store and serves
the two linked amount fields over HTTP and websocket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")

		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log = logger.NewJSONLogger(os.Stderr, logger.ParseLevel(level))
		logger.SetDefaultLogger(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/coinconv.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(coinsCmd)
	rootCmd.AddCommand(configCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coinconv %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.Dump()
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}
