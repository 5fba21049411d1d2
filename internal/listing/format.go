package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dyluth/savestash/internal/games"
)

// now is replaced in tests.
var now = time.Now

// FormatGamesTable writes one row per game. Returns the number of rows.
func FormatGamesTable(w io.Writer, entries []games.Entry) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "%s\n", EmptyGamesMessage)
		return 0
	}

	fmt.Fprintf(w, "%-24s %-40s %-5s %-7s %-6s %s\n",
		"NAME", "URL", "STATE", "TYPE", "SAVES", "LAST SAVE")
	fmt.Fprintf(w, "%-24s %-40s %-5s %-7s %-6s %s\n",
		strings.Repeat("-", 24), strings.Repeat("-", 40), "-----", "-------", "------", "------------")

	for _, e := range entries {
		gs := e.Settings
		last := "-"
		if s, ok := gs.LatestSave(); ok {
			last = FormatAge(s.Timestamp)
		}
		fmt.Fprintf(w, "%-24s %-40s %-5s %-7s %-6d %s\n",
			truncate(gs.DisplayName(e.Key), 24),
			truncate(e.Key, 40),
			FormatState(gs.Enabled),
			formatDataType(gs.DataType),
			len(gs.Saves),
			last,
		)
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(entries), "game"))
	return len(entries)
}

// FormatSavesTable writes one row per save. Returns the number of rows.
func FormatSavesTable(w io.Writer, gameName string, saves []IndexedSave) int {
	if len(saves) == 0 {
		fmt.Fprintf(w, "No saves found for '%s'\n", gameName)
		return 0
	}

	fmt.Fprintf(w, "Saves for '%s':\n\n", gameName)
	fmt.Fprintf(w, "%-4s %-24s %-16s %-9s %s\n", "#", "NAME", "CAPTURED", "SIZE", "DATA")
	fmt.Fprintf(w, "%-4s %-24s %-16s %-9s %s\n",
		"----", strings.Repeat("-", 24), strings.Repeat("-", 16), "---------", strings.Repeat("-", 40))

	for _, s := range saves {
		fmt.Fprintf(w, "%-4d %-24s %-16s %-9s %s\n",
			s.Position,
			truncate(s.Name, 24),
			FormatAge(s.Timestamp),
			humanize.Bytes(uint64(len(s.Data))),
			FormatData(s.Data),
		)
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(saves), "save"))
	return len(saves)
}

// FormatSave writes every field of one save, including its full data.
func FormatSave(w io.Writer, position int, s games.Save) {
	fmt.Fprintf(w, "Save #%d: %s\n", position, s.Name)
	fmt.Fprintf(w, "Captured: %s (%s)\n", s.Time().UTC().Format(time.RFC3339), FormatAge(s.Timestamp))
	fmt.Fprintf(w, "Size:     %s\n\n", humanize.Bytes(uint64(len(s.Data))))
	fmt.Fprintln(w, s.Data)
}

// FormatGame writes the settings of one game.
func FormatGame(w io.Writer, key string, gs games.GameSettings) {
	fmt.Fprintf(w, "Name:      %s\n", gs.DisplayName(key))
	fmt.Fprintf(w, "Key:       %s\n", key)
	if gs.URL != "" && gs.URL != key {
		fmt.Fprintf(w, "URL:       %s\n", gs.URL)
	}
	fmt.Fprintf(w, "Capture:   %s\n", FormatState(gs.Enabled))
	fmt.Fprintf(w, "Data type: %s\n", gs.DataType)
	if gs.Favicon != "" {
		shown := "shown"
		if !gs.ShowFavicon {
			shown = "hidden"
		}
		fmt.Fprintf(w, "Favicon:   %s (%s)\n", gs.Favicon, shown)
	}
	fmt.Fprintf(w, "Saves:     %d\n", len(gs.Saves))
}

// FormatState renders the capture switch the way the popup labels it.
func FormatState(enabled bool) string {
	if enabled {
		return "On"
	}
	return "Off"
}

// FormatAge renders an epoch-millisecond timestamp as "5 minutes ago".
func FormatAge(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}
	return humanize.RelTime(time.UnixMilli(timestampMs), now(), "ago", "from now")
}

// FormatData shortens save data to its first line with at most 40 characters.
// Pretty-printed JSON is compacted first so its content is visible.
func FormatData(data string) string {
	if data == "" {
		return "-"
	}

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, []byte(data)); err == nil {
		data = compacted.String()
	}

	var first string
	for _, line := range strings.Split(data, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			first = trimmed
			break
		}
	}
	if first == "" {
		return "-"
	}
	return truncate(first, 40)
}

func formatDataType(dt games.DataType) string {
	if dt == "" {
		return "-"
	}
	return string(dt)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
