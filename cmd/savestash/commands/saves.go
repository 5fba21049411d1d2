package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/listing"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/dyluth/savestash/internal/timespec"
	"github.com/dyluth/savestash/pkg/store"
	"github.com/spf13/cobra"
)

var (
	savesOutputFormat string
	savesSince        string
	savesUntil        string
	savesName         string

	saveDeleteYes bool
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Inspect and manage the saves of a game",
	Long: `Inspect and manage the saves of a game.

GAME is the game's URL or any unique part of it. REF is a save's position in
the list (1 is the newest) or a unique prefix of its name.`,
}

var savesListCmd = &cobra.Command{
	Use:   "list GAME",
	Short: "List the saves of a game, newest first",
	Long: `List the saves of a game, newest first.

Time Filters:
  --since  - Show saves captured after this time
  --until  - Show saves captured before this time
  Both accept a duration (2h, 30m), days or weeks (3d, 1w) or RFC3339.

Examples:
  savestash saves list cookie
  savestash saves list cookie --since=1d
  savestash saves list cookie --output=jsonl | jq -r '.data'`,
	Args: cobra.ExactArgs(1),
	RunE: runSavesList,
}

var savesShowCmd = &cobra.Command{
	Use:   "show GAME REF",
	Short: "Print one save including its full data",
	Args:  cobra.ExactArgs(2),
	RunE:  runSavesShow,
}

var savesRenameCmd = &cobra.Command{
	Use:   "rename GAME REF NAME",
	Short: "Rename a save",
	Args:  cobra.ExactArgs(3),
	RunE:  runSavesRename,
}

var savesDeleteCmd = &cobra.Command{
	Use:   "delete GAME REF",
	Short: "Delete a save",
	Args:  cobra.ExactArgs(2),
	RunE:  runSavesDelete,
}

var savesCopyCmd = &cobra.Command{
	Use:   "copy GAME REF",
	Short: "Copy a save's data to the clipboard",
	Long: `Copy a save's data to the clipboard, ready to paste into the game's import box.`,
	Args: cobra.ExactArgs(2),
	RunE: runSavesCopy,
}

func init() {
	savesListCmd.Flags().StringVarP(&savesOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	savesListCmd.Flags().StringVar(&savesSince, "since", "", "Show saves captured after time (duration or RFC3339)")
	savesListCmd.Flags().StringVar(&savesUntil, "until", "", "Show saves captured before time (duration or RFC3339)")
	savesListCmd.Flags().StringVar(&savesName, "name", "", "Show saves whose name starts with this prefix")

	savesDeleteCmd.Flags().BoolVarP(&saveDeleteYes, "yes", "y", false, "Delete without asking for confirmation")

	savesCmd.AddCommand(savesListCmd, savesShowCmd, savesRenameCmd, savesDeleteCmd, savesCopyCmd)
	rootCmd.AddCommand(savesCmd)
}

// loadGame connects, resolves ref and reads the game.
func loadGame(ctx context.Context, ref string) (*store.RedisArea, string, games.GameSettings, error) {
	area, _, err := connect(ctx)
	if err != nil {
		return nil, "", games.GameSettings{}, err
	}

	key, err := resolveGame(ctx, area, ref)
	if err != nil {
		area.Close()
		return nil, "", games.GameSettings{}, err
	}

	gs, err := games.NewService(area).Get(ctx, key)
	if err != nil {
		area.Close()
		return nil, "", games.GameSettings{}, err
	}
	return area, key, gs, nil
}

func runSavesList(cmd *cobra.Command, args []string) error {
	format, err := listing.ParseOutputFormat(savesOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}

	timeRange, err := timespec.ParseRange(savesSince, savesUntil, time.Now())
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration (2h), days (3d), weeks (1w) or RFC3339 (2025-01-02T15:04:05Z)"},
		)
	}

	area, key, gs, err := loadGame(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer area.Close()

	saves := listing.FilterSaves(gs.Saves, &listing.FilterCriteria{Range: timeRange, NamePrefix: savesName})
	return listing.WriteSaves(printer.Out, key, gs, saves, format)
}

func runSavesShow(cmd *cobra.Command, args []string) error {
	area, key, gs, err := loadGame(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer area.Close()

	i, err := resolveSave(gs, key, args[1])
	if err != nil {
		return err
	}

	listing.FormatSave(printer.Out, i+1, gs.Saves[i])
	return nil
}

func runSavesRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	area, key, gs, err := loadGame(ctx, args[0])
	if err != nil {
		return err
	}
	defer area.Close()

	i, err := resolveSave(gs, key, args[1])
	if err != nil {
		return err
	}

	updated, err := games.NewService(area).RenameSave(ctx, key, i, args[2])
	if err != nil {
		return err
	}
	printer.Success("Renamed save #%d to %s\n", i+1, updated.Saves[i].Name)
	return nil
}

func runSavesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	area, key, gs, err := loadGame(ctx, args[0])
	if err != nil {
		return err
	}
	defer area.Close()

	i, err := resolveSave(gs, key, args[1])
	if err != nil {
		return err
	}

	name := gs.Saves[i].Name
	question := fmt.Sprintf("Are you sure you want to delete the save \"%s\"? This action cannot be undone.", name)
	if !saveDeleteYes && !printer.Confirm(question) {
		printer.Info("Cancelled\n")
		return nil
	}

	if _, err := games.NewService(area).DeleteSave(ctx, key, i); err != nil {
		return err
	}
	printer.Success("Deleted save %s from %s\n", name, gs.DisplayName(key))
	return nil
}

func runSavesCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	area, key, gs, err := loadGame(ctx, args[0])
	if err != nil {
		return err
	}
	defer area.Close()

	i, err := resolveSave(gs, key, args[1])
	if err != nil {
		return err
	}

	s := gs.Saves[i]
	if err := newClipboard().WriteText(ctx, s.Data); err != nil {
		return printer.Error("clipboard unavailable", err.Error(), []string{
			fmt.Sprintf("Print the save instead:\n     savestash saves show %s %d", key, i+1),
		})
	}
	printer.Success("Copied save %s (%s) to the clipboard\n", s.Name, listing.FormatAge(s.Timestamp))
	return nil
}
