package commands

import (
	"github.com/dyluth/savestash/internal/printer"
	"github.com/dyluth/savestash/internal/watch"
	"github.com/spf13/cobra"
)

var eventsOutputFormat string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream store changes as they happen",
	Long: `Stream every change to the store: games added, settings edited, saves captured.

Output Formats:
  default - One human-readable line per change
  json    - One JSON object per change batch

Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(eventsOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}

	ctx, stop := signalContext()
	defer stop()

	area, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	sub, err := area.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	if format == watch.OutputFormatDefault {
		printer.Hint("Streaming changes for profile %s. Press Ctrl+C to stop.\n", cfg.Profile)
	}
	return watch.StreamChanges(ctx, sub, format, printer.Out)
}
