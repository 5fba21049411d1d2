package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestArea creates a Redis area connected to a miniredis instance
func setupTestArea(t *testing.T) (*RedisArea, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	area, err := NewRedisArea(&redis.Options{Addr: mr.Addr()}, "test-profile")
	require.NoError(t, err)
	t.Cleanup(func() { area.Close() })

	return area, mr
}

func TestRedisArea(t *testing.T) {
	runAreaContract(t, func(t *testing.T) Area {
		area, _ := setupTestArea(t)
		return area
	})
}

func TestNewRedisArea(t *testing.T) {
	t.Run("creates area successfully", func(t *testing.T) {
		area, _ := setupTestArea(t)
		assert.Equal(t, "test-profile", area.Profile())
		assert.Equal(t, AreaLocal, area.Name())
	})

	t.Run("rejects empty profile", func(t *testing.T) {
		_, err := NewRedisArea(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "profile name cannot be empty")
	})
}

func TestRedisArea_Ping(t *testing.T) {
	area, _ := setupTestArea(t)
	assert.NoError(t, area.Ping(context.Background()))
}

func TestRedisArea_StoresValuesInProfileHash(t *testing.T) {
	area, mr := setupTestArea(t)
	ctx := context.Background()

	require.NoError(t, area.Set(ctx, map[string]json.RawMessage{
		"https://game.example/play": json.RawMessage(`{"enabled":true}`),
	}))

	stored := mr.HGet(AreaKey("test-profile", AreaLocal), "https://game.example/play")
	assert.JSONEq(t, `{"enabled":true}`, stored)
}

func TestRedisArea_ProfilesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	first, err := NewRedisArea(&redis.Options{Addr: mr.Addr()}, "first")
	require.NoError(t, err)
	defer first.Close()
	second, err := NewRedisArea(&redis.Options{Addr: mr.Addr()}, "second")
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`1`)}))

	values, err := second.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRedisArea_ReportsMalformedEvents(t *testing.T) {
	area, mr := setupTestArea(t)
	ctx := context.Background()

	sub, err := area.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(ChangesChannel("test-profile", AreaLocal), "not json")
	require.NoError(t, area.Set(ctx, map[string]json.RawMessage{"k": json.RawMessage(`1`)}))

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to unmarshal change batch")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscription error")
	}

	batch := nextBatch(t, sub)
	assert.Equal(t, []string{"k"}, batch.Keys())
}

func TestRedisArea_FeedMatchesStoreUnderConcurrentWriters(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	writers := make([]*RedisArea, 2)
	for i := range writers {
		area, err := NewRedisArea(&redis.Options{Addr: mr.Addr()}, "shared")
		require.NoError(t, err)
		defer area.Close()
		writers[i] = area
	}

	sub, err := writers[0].Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	const perWriter = 50
	errs := make(chan error, len(writers))
	for i, area := range writers {
		go func(i int, area *RedisArea) {
			for n := 0; n < perWriter; n++ {
				value := json.RawMessage(fmt.Sprintf(`"w%d-%d"`, i, n))
				if err := area.Set(ctx, map[string]json.RawMessage{"counter": value}); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(i, area)
	}

	var prev json.RawMessage
	for n := 0; n < len(writers)*perWriter; n++ {
		change, ok := nextBatch(t, sub).Lookup("counter")
		require.True(t, ok)
		if prev == nil {
			assert.Nil(t, change.OldValue)
		} else {
			assert.JSONEq(t, string(prev), string(change.OldValue), "batch %d", n)
		}
		prev = change.NewValue
	}
	for range writers {
		require.NoError(t, <-errs)
	}

	stored, err := writers[1].Get(ctx, "counter")
	require.NoError(t, err)
	assert.JSONEq(t, string(prev), string(stored["counter"]))
}

func TestRedisArea_BatchCarriesKeysAndValuesVerbatim(t *testing.T) {
	area, _ := setupTestArea(t)
	ctx := context.Background()

	sub, err := area.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	key := `https://game.example/play?name="idle"&x=<1>`
	require.NoError(t, area.Set(ctx, map[string]json.RawMessage{key: json.RawMessage("{ \"a\" :\n 1 }")}))
	change, ok := nextBatch(t, sub).Lookup(key)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(change.NewValue))

	require.NoError(t, area.Remove(ctx, key))
	batch := nextBatch(t, sub)
	assert.Equal(t, AreaLocal, batch.Area)
	change, ok = batch.Lookup(key)
	require.True(t, ok)
	assert.True(t, change.Removed())
	assert.JSONEq(t, `{"a":1}`, string(change.OldValue))
}
