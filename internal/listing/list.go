// Package listing renders games and saves for the CLI as tables or JSONL.
package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/timespec"
)

// OutputFormat specifies how listings are written.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with truncated data
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL writes one complete JSON object per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatDefault, OutputFormatJSONL:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format: %s (expected default or jsonl)", s)
}

// EmptyGamesMessage is shown when no game has been added yet.
const EmptyGamesMessage = "No games found. Add a game to manage saves."

// EmptyGamesHint tells the user how games get added.
const EmptyGamesHint = "Go to a page with a game, enable capture for it and it will show up here"

// FilterCriteria selects saves. All filters are ANDed together.
type FilterCriteria struct {
	Range      timespec.Range // capture time window, zero bounds are open
	NamePrefix string         // case-insensitive prefix of the save name, empty = no filter
}

// Matches reports whether s passes every filter.
func (fc *FilterCriteria) Matches(s games.Save) bool {
	if !fc.Range.Contains(s.Time()) {
		return false
	}
	if fc.NamePrefix != "" && !strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(fc.NamePrefix)) {
		return false
	}
	return true
}

// IndexedSave is a save with its 1-based position in the game's list.
type IndexedSave struct {
	Position int `json:"position"`
	games.Save
}

// FilterSaves returns the saves passing fc, keeping list order and positions.
func FilterSaves(saves []games.Save, fc *FilterCriteria) []IndexedSave {
	out := make([]IndexedSave, 0, len(saves))
	for i, s := range saves {
		if fc != nil && !fc.Matches(s) {
			continue
		}
		out = append(out, IndexedSave{Position: i + 1, Save: s})
	}
	return out
}

// WriteGames writes entries in the requested format.
func WriteGames(w io.Writer, entries []games.Entry, format OutputFormat) error {
	switch format {
	case OutputFormatDefault:
		FormatGamesTable(w, entries)
		return nil
	case OutputFormatJSONL:
		rows := make([]any, len(entries))
		for i, e := range entries {
			rows[i] = gameRow{Key: e.Key, GameSettings: e.Settings}
		}
		return FormatJSONL(w, rows)
	}
	return fmt.Errorf("unknown output format: %s", format)
}

// WriteSaves writes the saves of the game stored under key.
func WriteSaves(w io.Writer, key string, gs games.GameSettings, saves []IndexedSave, format OutputFormat) error {
	switch format {
	case OutputFormatDefault:
		FormatSavesTable(w, gs.DisplayName(key), saves)
		return nil
	case OutputFormatJSONL:
		rows := make([]any, len(saves))
		for i, s := range saves {
			rows[i] = s
		}
		return FormatJSONL(w, rows)
	}
	return fmt.Errorf("unknown output format: %s", format)
}

type gameRow struct {
	Key string `json:"key"`
	games.GameSettings
}

// FormatJSONL writes each row as compact JSON on its own line.
func FormatJSONL(w io.Writer, rows []any) error {
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}
