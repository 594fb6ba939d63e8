// Command pukaar finds nearby hospitals, clinics, pharmacies and food banks
// from the terminal, and maintains the bundled fallback dataset.
//
// Usage:
//
//	pukaar nearby --lat 24.8607 --lng 67.0011 --category pharmacy
//	pukaar snapshot --out json/data.json
//	pukaar validate json/data.json
package main

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/pukaar-service/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	logger   *slog.Logger
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "pukaar",
	Short:        "Find nearby emergency and health services",
	Long:         `Query OpenStreetMap for hospitals, clinics, pharmacies and food banks around a point, falling back to the bundled dataset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		// Logs go to stderr so stdout stays machine-readable.
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.AddCommand(nearbyCmd, snapshotCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return lvl
}
