package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsJSON(t *testing.T, mutate func(*games.GameSettings)) json.RawMessage {
	t.Helper()
	gs := games.Default()
	gs.Name = "Idle"
	if mutate != nil {
		mutate(&gs)
	}
	raw, err := json.Marshal(gs)
	require.NoError(t, err)
	return raw
}

func TestDescribeChange(t *testing.T) {
	base := settingsJSON(t, nil)

	tests := []struct {
		name   string
		change store.Change
		want   string
	}{
		{
			name:   "removed",
			change: store.Change{Key: "k", OldValue: base},
			want:   "🗑️  Removed k",
		},
		{
			name:   "set to null",
			change: store.Change{Key: "k", OldValue: base, NewValue: json.RawMessage(`null`)},
			want:   "🗑️  Removed k",
		},
		{
			name:   "added",
			change: store.Change{Key: "k", NewValue: base},
			want:   "✨ Added Idle (capture Off, any)",
		},
		{
			name: "new save",
			change: store.Change{Key: "k", OldValue: base, NewValue: settingsJSON(t, func(gs *games.GameSettings) {
				gs.Saves = []games.Save{{Name: "1", Timestamp: 1, Data: "x"}}
			})},
			want: `💾 New save "1" for Idle (1 saves)`,
		},
		{
			name: "field updates",
			change: store.Change{Key: "k", OldValue: base, NewValue: settingsJSON(t, func(gs *games.GameSettings) {
				gs.Enabled = true
				gs.DataType = games.DataTypeJSON
			})},
			want: "✏️  Updated Idle: capture Off→On, type any→json",
		},
		{
			name:   "unchanged",
			change: store.Change{Key: "k", OldValue: base, NewValue: base},
			want:   "✏️  Rewrote Idle (no visible changes)",
		},
		{
			name:   "not a game record",
			change: store.Change{Key: "flag", NewValue: json.RawMessage(`42`)},
			want:   "✏️  Set flag = 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeChange(tt.change))
		})
	}
}

func TestDescribeChange_SaveRenamed(t *testing.T) {
	saves := []games.Save{{Name: "1", Timestamp: 1, Data: "x"}}
	prev := settingsJSON(t, func(gs *games.GameSettings) { gs.Saves = saves })
	next := settingsJSON(t, func(gs *games.GameSettings) {
		gs.Saves = []games.Save{{Name: "Best", Timestamp: 1, Data: "x"}}
	})

	got := DescribeChange(store.Change{Key: "k", OldValue: prev, NewValue: next})
	assert.Equal(t, `✏️  Updated Idle: save #1 renamed "1"→"Best"`, got)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamChanges(t *testing.T) {
	for _, format := range []OutputFormat{OutputFormatDefault, OutputFormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			area := store.NewMemoryArea()
			sub, err := area.Subscribe(context.Background())
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			var out syncBuffer
			done := make(chan error, 1)
			go func() { done <- StreamChanges(ctx, sub, format, &out) }()

			require.NoError(t, store.SetValue(context.Background(), area, "https://idle.example", games.Default()))
			require.Eventually(t, func() bool { return out.String() != "" }, 2*time.Second, 5*time.Millisecond)

			cancel()
			require.NoError(t, <-done)
			sub.Close()

			line := strings.TrimSpace(out.String())
			if format == OutputFormatJSON {
				var got map[string]any
				require.NoError(t, json.Unmarshal([]byte(line), &got))
				assert.Equal(t, "local", got["area"])
				assert.Contains(t, got, "received_at_ms")
			} else {
				assert.Contains(t, line, "✨ Added https://idle.example")
			}
		})
	}
}

func TestStreamChanges_EndsWithSubscription(t *testing.T) {
	area := store.NewMemoryArea()
	sub, err := area.Subscribe(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- StreamChanges(context.Background(), sub, OutputFormatDefault, &bytes.Buffer{}) }()

	sub.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the subscription closed")
	}
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseOutputFormat("jsonl")
	assert.Error(t, err)
}
