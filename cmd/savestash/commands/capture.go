package commands

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dyluth/savestash/internal/capture"
	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/spf13/cobra"
)

var (
	captureMeta   metaFlags
	captureEnable bool
)

var captureCmd = &cobra.Command{
	Use:   "capture URL",
	Short: "Watch the clipboard and save copies for a game",
	Long: `Watch the clipboard and store every qualifying copy as a save of the game at URL.

Copies are ignored while capture is disabled for the game. The daemon follows
the store, so enabling capture or changing the data type from another terminal
or the HTTP API takes effect immediately.

Stop with Ctrl+C.

Examples:
  # Capture for a game that is already enabled
  savestash capture https://example.com/cookie-clicker

  # Enable capture first, naming the game from the page title
  savestash capture https://example.com/cookie-clicker --enable --fetch-meta`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	captureMeta.register(captureCmd)
	captureCmd.Flags().BoolVar(&captureEnable, "enable", false, "Turn capture on for the game before watching")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	area, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	url := args[0]
	if captureEnable {
		meta := captureMeta.resolve(ctx, cfg, url)
		if _, err := games.NewService(area).SetEnabled(ctx, url, true, meta); err != nil {
			return err
		}
	}

	acc, err := games.OpenAccessor(ctx, area, url)
	if err != nil {
		return err
	}
	defer acc.Close()

	if err := acc.WaitLoaded(ctx); err != nil {
		return err
	}

	current := acc.Value()
	if !current.Enabled {
		printer.Warning("Capture is disabled for %s. Copies are ignored until you run:\n  savestash enable %s\n", current.DisplayName(url), url)
	}

	listener := capture.NewListener(newClipboard(), acc, capture.WithOnCapture(func(data string, at time.Time) {
		printer.Success("Captured a %s save at %s\n", humanize.Bytes(uint64(len(data))), at.Format(time.Kitchen))
	}))
	if err := listener.Start(ctx); err != nil {
		return printer.Error(
			"clipboard unavailable",
			err.Error(),
			[]string{"On Linux, capture needs an X11 display and the libx11 development package"},
		)
	}

	printer.Info("Watching the clipboard for %s. Press Ctrl+C to stop.\n", current.DisplayName(url))
	<-ctx.Done()
	listener.Stop()

	stats := listener.Stats()
	printer.Info("\nCaptured %s from %s.\n",
		humanize.Comma(int64(stats.Captured))+" "+plural(stats.Captured, "save"),
		humanize.Comma(int64(stats.Events))+" "+plural(stats.Events, "copy event"))
	return nil
}

func plural(n uint64, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
