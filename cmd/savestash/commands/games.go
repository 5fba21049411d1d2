package commands

import (
	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/listing"
	"github.com/dyluth/savestash/internal/printer"
	"github.com/spf13/cobra"
)

var gamesOutputFormat string

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List tracked games",
	Long: `List every game in the store with its capture state, data type and saves.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one game per line

Examples:
  # Show all games
  savestash games

  # Feed games to jq
  savestash games --output=jsonl | jq -r 'select(.enabled) | .url'`,
	Args: cobra.NoArgs,
	RunE: runGames,
}

func init() {
	gamesCmd.Flags().StringVarP(&gamesOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(gamesCmd)
}

func runGames(cmd *cobra.Command, args []string) error {
	format, err := listing.ParseOutputFormat(gamesOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}

	ctx := cmd.Context()
	area, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer area.Close()

	index := games.NewIndex(area)
	if err := index.Start(ctx); err != nil {
		return err
	}
	entries := index.Entries()
	index.Close()

	if len(entries) == 0 && format == listing.OutputFormatDefault {
		printer.Println(listing.EmptyGamesMessage)
		printer.Hint("%s\n", listing.EmptyGamesHint)
		return nil
	}

	return listing.WriteGames(printer.Out, entries, format)
}
