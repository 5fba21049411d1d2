package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dyluth/savestash/internal/backend"
	"github.com/dyluth/savestash/internal/config"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/spf13/cobra"
)

var storeStatusJSON bool

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage a local Redis store in Docker",
	Long: `Manage a local Redis store in Docker.

Each profile gets its own container, named savestash-redis-<profile>, published
on 127.0.0.1 at the first free port from backend.port (6379 by default).`,
}

var storeUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the local store for the profile",
	Args:  cobra.NoArgs,
	RunE:  runStoreUp,
}

var storeDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the local store, including its data",
	Args:  cobra.NoArgs,
	RunE:  runStoreDown,
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local store of the profile",
	Args:  cobra.NoArgs,
	RunE:  runStoreStatus,
}

func init() {
	storeStatusCmd.Flags().BoolVar(&storeStatusJSON, "json", false, "Print the status as JSON")
	storeCmd.AddCommand(storeUpCmd, storeDownCmd, storeStatusCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStoreUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cli, err := backend.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker unavailable", err.Error(), nil)
	}
	defer cli.Close()

	inst, err := backend.NewManager(cli).Up(ctx, backend.UpOptions{
		Profile: cfg.Profile,
		Image:   cfg.Backend.Image,
		Port:    cfg.Backend.Port,
	})
	if err != nil {
		return err
	}

	printer.Success("Store %s is running on port %d\n", inst.Name, inst.Port)
	if inst.URL != cfg.Store.RedisURL {
		printer.Hint("Point savestash at it with:\n  export %s=%s\n", config.EnvRedisURL, inst.URL)
	}
	return nil
}

func runStoreDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cli, err := backend.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker unavailable", err.Error(), nil)
	}
	defer cli.Close()

	inst, err := backend.NewManager(cli).Down(ctx, cfg.Profile)
	if errors.Is(err, backend.ErrNotFound) {
		return printer.Error(
			fmt.Sprintf("no store for profile '%s'", cfg.Profile),
			fmt.Sprintf("No container named %s exists.", backend.ContainerName(cfg.Profile)),
			[]string{"Start one first:\n  savestash store up"},
		)
	}
	if err != nil {
		return err
	}

	printer.Success("Removed %s\n", inst.Name)
	return nil
}

func runStoreStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cli, err := backend.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker unavailable", err.Error(), nil)
	}
	defer cli.Close()

	inst, err := backend.NewManager(cli).Status(ctx, cfg.Profile)
	if err != nil {
		return err
	}

	if storeStatusJSON {
		enc := json.NewEncoder(printer.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(inst)
	}

	printer.Printf("Profile:   %s\n", inst.Profile)
	printer.Printf("Container: %s\n", inst.Name)
	printer.Printf("Status:    %s\n", inst.Status)
	if inst.Port != 0 {
		printer.Printf("URL:       %s\n", inst.URL)
	}
	if inst.RunID != "" {
		printer.Printf("Run ID:    %s\n", inst.RunID)
	}
	return nil
}
