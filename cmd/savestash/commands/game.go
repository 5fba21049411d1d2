package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/savestash/internal/config"
	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/listing"
	"github.com/dyluth/savestash/internal/pagemeta"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/spf13/cobra"
)

// metaFlags are the page details a command may pass to a first enable.
type metaFlags struct {
	title   string
	favicon string
	fetch   bool
}

func (m *metaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.title, "title", "", "Page title used as the game name")
	cmd.Flags().StringVar(&m.favicon, "favicon", "", "Favicon URL of the page")
	cmd.Flags().BoolVar(&m.fetch, "fetch-meta", false, "Download the page to fill in title and favicon")
}

// resolve returns the page metadata for url. Explicit flags win over fetched values.
func (m *metaFlags) resolve(ctx context.Context, cfg *config.Config, url string) games.PageMeta {
	meta := games.PageMeta{URL: url}
	if m.fetch || cfg.Capture.FetchMeta {
		fetched, err := pagemeta.NewFetcher(nil).Fetch(ctx, url)
		if err != nil {
			printer.Warning("could not fetch page details: %v\n", err)
		} else {
			meta = fetched
		}
	}
	if m.title != "" {
		meta.Title = m.title
	}
	if m.favicon != "" {
		meta.Favicon = m.favicon
	}
	return meta
}

var (
	enableMeta metaFlags
	toggleMeta metaFlags

	faviconShow bool
	faviconHide bool
	faviconSet  string

	deleteYes bool
)

var enableCmd = &cobra.Command{
	Use:   "enable URL",
	Short: "Turn on capture for a game page",
	Long: `Turn on clipboard capture for the game at URL, adding the game if it is new.

The first time capture is enabled, an empty name, URL or favicon is filled in
from the page details.

Examples:
  savestash enable https://example.com/cookie-clicker --title "Cookie Clicker"
  savestash enable https://example.com/cookie-clicker --fetch-meta`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args[0], true, &enableMeta)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable URL",
	Short: "Turn off capture for a game page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd, args[0], false, &metaFlags{})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle URL",
	Short: "Flip capture on or off for a game page",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var showCmd = &cobra.Command{
	Use:   "show GAME",
	Short: "Show the settings of a game",
	Long: `Show the settings of a game.

GAME is the game's URL or any unique part of it.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var renameCmd = &cobra.Command{
	Use:   "rename GAME NAME",
	Short: "Rename a game",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args[0], "Renamed", games.Rename(args[1]))
	},
}

var setURLCmd = &cobra.Command{
	Use:   "set-url GAME URL",
	Short: "Change the page URL shown for a game",
	Long: `Change the page URL shown for a game.

The game stays filed under the URL it was captured on.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args[0], "Updated URL of", games.SetPageURL(args[1]))
	},
}

var dataTypeCmd = &cobra.Command{
	Use:   "data-type GAME any|json|base64",
	Short: "Choose which clipboard contents count as a save",
	Long: `Choose which clipboard contents count as a save.

Data types:
  any    - every non-empty copy is a save
  json   - only valid JSON is a save
  base64 - only canonical padded Base64 is a save`,
	Args: cobra.ExactArgs(2),
	RunE: runDataType,
}

var faviconCmd = &cobra.Command{
	Use:   "favicon GAME",
	Short: "Show, hide or replace a game's favicon",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavicon,
}

var deleteCmd = &cobra.Command{
	Use:   "delete GAME",
	Short: "Delete a game and all of its saves",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	enableMeta.register(enableCmd)
	toggleMeta.register(toggleCmd)

	faviconCmd.Flags().BoolVar(&faviconShow, "show", false, "Show the favicon")
	faviconCmd.Flags().BoolVar(&faviconHide, "hide", false, "Hide the favicon")
	faviconCmd.Flags().StringVar(&faviconSet, "set", "", "Replace the favicon URL")
	faviconCmd.MarkFlagsMutuallyExclusive("show", "hide")

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking for confirmation")

	rootCmd.AddCommand(enableCmd, disableCmd, toggleCmd, showCmd, renameCmd, setURLCmd, dataTypeCmd, faviconCmd, deleteCmd)
}

func runSetEnabled(cmd *cobra.Command, url string, enabled bool, flags *metaFlags) error {
	ctx := cmd.Context()
	area, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	var meta games.PageMeta
	if enabled {
		meta = flags.resolve(ctx, cfg, url)
	}

	gs, err := games.NewService(area).SetEnabled(ctx, url, enabled, meta)
	if err != nil {
		return err
	}
	printer.Success("Capture %s for %s\n", strings.ToLower(listing.FormatState(gs.Enabled)), gs.DisplayName(url))
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	area, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	url := args[0]
	svc := games.NewService(area)

	// Page details only matter when this toggle turns capture on.
	var meta games.PageMeta
	if current, err := svc.Get(ctx, url); errors.Is(err, games.ErrGameNotFound) || (err == nil && !current.Enabled) {
		meta = toggleMeta.resolve(ctx, cfg, url)
	}

	gs, err := svc.Toggle(ctx, url, meta)
	if err != nil {
		return err
	}
	printer.Success("Capture %s for %s\n", strings.ToLower(listing.FormatState(gs.Enabled)), gs.DisplayName(url))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	area, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	key, err := resolveGame(ctx, area, args[0])
	if err != nil {
		return err
	}
	gs, err := games.NewService(area).Get(ctx, key)
	if err != nil {
		return err
	}

	listing.FormatGame(printer.Out, key, gs)
	return nil
}

// runEdit applies updates to the game ref resolves to.
func runEdit(cmd *cobra.Command, ref, verb string, updates ...games.Update) error {
	ctx := cmd.Context()
	area, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	key, err := resolveGame(ctx, area, ref)
	if err != nil {
		return err
	}

	gs, err := games.NewService(area).Edit(ctx, key, updates...)
	if err != nil {
		return err
	}
	printer.Success("%s %s\n", verb, gs.DisplayName(key))
	return nil
}

func runDataType(cmd *cobra.Command, args []string) error {
	dt, err := games.ParseDataType(args[1])
	if err != nil {
		return printer.Error(
			fmt.Sprintf("unknown data type '%s'", args[1]),
			"",
			[]string{"Use one of: any, json, base64"},
		)
	}
	return runEdit(cmd, args[0], fmt.Sprintf("Set data type %s on", dt), games.SetDataType(dt))
}

func runFavicon(cmd *cobra.Command, args []string) error {
	var updates []games.Update
	if faviconSet != "" {
		updates = append(updates, games.SetFavicon(faviconSet))
	}
	if faviconShow {
		updates = append(updates, games.SetShowFavicon(true))
	}
	if faviconHide {
		updates = append(updates, games.SetShowFavicon(false))
	}
	if len(updates) == 0 {
		return printer.Error(
			"nothing to change",
			"",
			[]string{"Pass --show, --hide or --set ICON"},
		)
	}
	return runEdit(cmd, args[0], "Updated favicon of", updates...)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	area, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	key, err := resolveGame(ctx, area, args[0])
	if err != nil {
		return err
	}
	svc := games.NewService(area)
	gs, err := svc.Get(ctx, key)
	if err != nil {
		return err
	}

	name := gs.DisplayName(key)
	if !deleteYes && !printer.Confirm(fmt.Sprintf("Are you sure you want to delete \"%s\"?", name)) {
		printer.Info("Cancelled\n")
		return nil
	}

	if err := svc.Delete(ctx, key); err != nil {
		return err
	}
	printer.Success("Deleted %s\n", name)
	return nil
}
