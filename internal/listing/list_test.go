package listing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/timespec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

func freezeTime(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = prev })
}

func ago(d time.Duration) int64 {
	return fixedNow.Add(-d).UnixMilli()
}

func sampleSaves() []games.Save {
	return []games.Save{
		{Name: "3", Timestamp: ago(5 * time.Minute), Data: `{"gold": 300}`},
		{Name: "Before reset", Timestamp: ago(3 * time.Hour), Data: "aGVsbG8="},
		{Name: "1", Timestamp: ago(72 * time.Hour), Data: "plain"},
	}
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestFilterSaves(t *testing.T) {
	saves := sampleSaves()

	all := FilterSaves(saves, nil)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].Position)
	assert.Equal(t, 3, all[2].Position)

	recent := FilterSaves(saves, &FilterCriteria{Range: timespec.Range{Since: fixedNow.Add(-time.Hour)}})
	require.Len(t, recent, 1)
	assert.Equal(t, "3", recent[0].Name)

	older := FilterSaves(saves, &FilterCriteria{Range: timespec.Range{Until: fixedNow.Add(-time.Hour)}})
	require.Len(t, older, 2)
	assert.Equal(t, 2, older[0].Position, "positions refer to the unfiltered list")

	named := FilterSaves(saves, &FilterCriteria{NamePrefix: "before"})
	require.Len(t, named, 1)
	assert.Equal(t, "Before reset", named[0].Name)
}

func TestWriteGames_Table(t *testing.T) {
	freezeTime(t)
	gs := games.Default()
	gs.Name = "Cookie Clicker"
	gs.Enabled = true
	gs.Saves = sampleSaves()

	var buf bytes.Buffer
	require.NoError(t, WriteGames(&buf, []games.Entry{
		{Key: "https://orteil.dashnet.org/cookieclicker/", Settings: gs},
		{Key: "https://kittensgame.com/web/", Settings: games.Default()},
	}, OutputFormatDefault))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Cookie Clicker")
	assert.Contains(t, out, "On")
	assert.Contains(t, out, "5 minutes ago")
	assert.Contains(t, out, "https://kittensgame.com/web/")
	assert.Contains(t, out, "2 games found")
}

func TestWriteGames_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGames(&buf, nil, OutputFormatDefault))
	assert.Equal(t, EmptyGamesMessage+"\n", buf.String())
}

func TestWriteGames_JSONL(t *testing.T) {
	gs := games.Default()
	gs.Name = "A"

	var buf bytes.Buffer
	require.NoError(t, WriteGames(&buf, []games.Entry{
		{Key: "https://a.example", Settings: gs},
		{Key: "https://b.example", Settings: games.Default()},
	}, OutputFormatJSONL))

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		lines = append(lines, row)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "https://a.example", lines[0]["key"])
	assert.Equal(t, "A", lines[0]["name"])
	assert.Equal(t, "any", lines[1]["dataType"])
}

func TestWriteSaves(t *testing.T) {
	freezeTime(t)
	gs := games.Default()
	gs.Name = "Idle Game"

	var buf bytes.Buffer
	require.NoError(t, WriteSaves(&buf, "https://idle.example", gs, FilterSaves(sampleSaves(), nil), OutputFormatDefault))
	out := buf.String()
	assert.Contains(t, out, "Saves for 'Idle Game'")
	assert.Contains(t, out, `{"gold":300}`)
	assert.Contains(t, out, "3 days ago")
	assert.Contains(t, out, "3 saves found")

	buf.Reset()
	require.NoError(t, WriteSaves(&buf, "https://idle.example", gs, nil, OutputFormatDefault))
	assert.Equal(t, "No saves found for 'Idle Game'\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSaves(&buf, "https://idle.example", gs, FilterSaves(sampleSaves(), nil), OutputFormatJSONL))
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	var row IndexedSave
	require.NoError(t, json.Unmarshal([]byte(first), &row))
	assert.Equal(t, 1, row.Position)
	assert.Equal(t, `{"gold": 300}`, row.Data, "JSONL keeps the data untouched")

	assert.Error(t, WriteSaves(&buf, "k", gs, nil, OutputFormat("xml")))
}
