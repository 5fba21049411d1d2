package commands

import (
	"github.com/dyluth/savestash/internal/config"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default savestash.yml (or the path given with --config).

The file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if profile != "" {
		cfg.Profile = profile
	}
	if redisURL != "" {
		cfg.Store.RedisURL = redisURL
	}
	if err := cfg.Validate(); err != nil {
		return printer.Error("invalid flags", err.Error(), nil)
	}

	if err := cfg.Write(configPath); err != nil {
		return printer.Error(
			"cannot write config",
			err.Error(),
			[]string{"Edit the existing file, or pass another path with --config"},
		)
	}

	printer.Success("Created %s\n", configPath)
	printer.Hint("Next steps:\n  1. savestash store up\n  2. savestash capture <game URL> --enable\n")
	return nil
}
