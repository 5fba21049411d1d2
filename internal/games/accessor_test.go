package games

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/savestash/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

const gameURL = "https://example.com/game"

func TestAccessor_WithoutURLStaysLocal(t *testing.T) {
	ctx := context.Background()
	area := store.NewMemoryArea()

	a, err := OpenAccessor(ctx, area, "")
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.WaitLoaded(ctx))
	assert.Equal(t, Default(), a.Value())

	a.Update(SetEnabled(true, PageMeta{}))
	assert.True(t, a.Value().Enabled)
	require.NoError(t, a.Flush(ctx))

	all, err := area.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "an unbound accessor must never write to the store")
}

func TestAccessor_ReadsStoredRecord(t *testing.T) {
	ctx := context.Background()
	area := store.NewMemoryArea()
	stored := Default()
	stored.Enabled = true
	stored.DataType = DataTypeJSON
	require.NoError(t, store.SetValue(ctx, area, gameURL, stored))

	a, err := OpenAccessor(ctx, area, gameURL)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.WaitLoaded(ctx))
	assert.Equal(t, stored, a.Value())
	assert.Equal(t, gameURL, a.URL())
}

func TestAccessor_WritesUnderURLKey(t *testing.T) {
	ctx := context.Background()
	area := store.NewMemoryArea()

	a, err := OpenAccessor(ctx, area, gameURL)
	require.NoError(t, err)
	require.NoError(t, a.WaitLoaded(ctx))

	a.Update(AppendSave("{}", 42))
	require.NoError(t, a.Close())

	stored, ok, err := store.GetValue[GameSettings](ctx, area, gameURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, stored.Saves, 1)
	assert.Equal(t, "1", stored.Saves[0].Name)
}

func TestAccessor_SetURLSwitchesRecords(t *testing.T) {
	ctx := context.Background()
	area := store.NewMemoryArea()
	other := Default()
	other.Name = "Other"
	require.NoError(t, store.SetValue(ctx, area, "https://example.com/other", other))

	a, err := OpenAccessor(ctx, area, "")
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.SetURL(ctx, "https://example.com/other"))
	require.NoError(t, a.WaitLoaded(ctx))
	assert.Equal(t, "Other", a.Value().Name)

	require.NoError(t, a.SetURL(ctx, gameURL))
	assert.Equal(t, Default(), a.Value())

	require.NoError(t, a.SetURL(ctx, ""))
	assert.Equal(t, Default(), a.Value())
	assert.Empty(t, a.URL())
}

func TestAccessor_FollowsExternalChanges(t *testing.T) {
	ctx := context.Background()
	area := store.NewMemoryArea()

	a, err := OpenAccessor(ctx, area, gameURL)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.WaitLoaded(ctx))

	updated := Default()
	updated.Enabled = true
	require.NoError(t, store.SetValue(ctx, area, gameURL, updated))

	assert.Eventually(t, func() bool { return a.Value().Enabled }, waitFor, tick)
}
