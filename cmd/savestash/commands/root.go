package commands

import (
	"fmt"

	"github.com/dyluth/savestash/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath string
	envFile    string
	redisURL   string
	profile    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "savestash",
	Short: "savestash - capture and manage idle game saves",
	Long: `savestash watches the clipboard while you play an idle or incremental game
and keeps every exported save under the game's page URL.

Games, their capture settings and their saves live in a Redis store. The same
store backs the capture daemon, this CLI and the HTTP API.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Errors are printed by the caller or, for
// reported errors, by the printer package.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the process environment")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", "", "Redis URL (overrides config and "+config.EnvRedisURL+")")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Store profile (overrides config and "+config.EnvProfile+")")
}
