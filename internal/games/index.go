package games

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/dyluth/savestash/pkg/store"
)

// Entry is one record of the Index.
type Entry struct {
	Key      string
	Settings GameSettings
}

// Index mirrors every record in a store.Area. It is filled by one bulk read
// and kept current by the change feed.
type Index struct {
	area store.Area

	mu      sync.RWMutex
	games   map[string]GameSettings
	touched map[string]struct{} // keys changed by the feed before the bulk read landed
	loaded  bool
	sub     *store.Subscription
	done    chan struct{}
}

// NewIndex returns an empty Index over area. Call Start to fill it.
func NewIndex(area store.Area) *Index {
	return &Index{
		area:    area,
		games:   make(map[string]GameSettings),
		touched: make(map[string]struct{}),
	}
}

// Start subscribes to the change feed and then reads every record. The feed
// keeps the index current until Close. If the bulk read fails the
// subscription is dropped and the index is left empty, so Start may be
// called again.
func (ix *Index) Start(ctx context.Context) error {
	ix.mu.Lock()
	if ix.sub != nil {
		ix.mu.Unlock()
		return errors.New("index already started")
	}
	sub, err := ix.area.Subscribe(context.WithoutCancel(ctx))
	if err != nil {
		ix.mu.Unlock()
		return fmt.Errorf("failed to subscribe to game changes: %w", err)
	}
	ix.sub = sub
	ix.done = make(chan struct{})
	ix.mu.Unlock()

	go ix.follow(sub, ix.done)

	all, err := ix.area.GetAll(ctx)
	if err != nil {
		log.Printf("[WARN] Failed to read games: %v", err)
		ix.reset()
		return fmt.Errorf("failed to read games: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for key, raw := range all {
		if _, seen := ix.touched[key]; seen {
			continue
		}
		if gs, ok := decodeSettings(key, raw); ok {
			ix.games[key] = gs
		}
	}
	ix.loaded = true
	ix.touched = make(map[string]struct{})
	return nil
}

// Close stops following the change feed.
func (ix *Index) Close() error {
	ix.mu.Lock()
	sub, done := ix.sub, ix.done
	ix.mu.Unlock()
	if sub == nil {
		return nil
	}
	err := sub.Close()
	<-done
	return err
}

// reset stops the feed and forgets everything it delivered.
func (ix *Index) reset() {
	ix.mu.Lock()
	sub, done := ix.sub, ix.done
	ix.sub, ix.done = nil, nil
	ix.mu.Unlock()

	if err := sub.Close(); err != nil {
		log.Printf("[WARN] Failed to close game change feed: %v", err)
	}
	<-done

	ix.mu.Lock()
	ix.games = make(map[string]GameSettings)
	ix.touched = make(map[string]struct{})
	ix.mu.Unlock()
}

func (ix *Index) follow(sub *store.Subscription, done chan struct{}) {
	defer close(done)

	events, errs := sub.Events(), sub.Errors()
	for events != nil {
		select {
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ix.applyBatch(batch)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[WARN] Game change feed error: %v", err)
		}
	}
}

func (ix *Index) applyBatch(batch *store.ChangeBatch) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, change := range batch.Changes {
		if !ix.loaded {
			ix.touched[change.Key] = struct{}{}
		}
		if change.Removed() || store.IsFalsy(change.NewValue) {
			delete(ix.games, change.Key)
			continue
		}
		gs, ok := decodeSettings(change.Key, change.NewValue)
		if !ok {
			delete(ix.games, change.Key)
			continue
		}
		ix.games[change.Key] = gs
	}
}

func decodeSettings(key string, raw json.RawMessage) (GameSettings, bool) {
	if store.IsFalsy(raw) {
		return GameSettings{}, false
	}
	var gs GameSettings
	if err := json.Unmarshal(raw, &gs); err != nil {
		log.Printf("[WARN] Skipping key %q: not a game record: %v", key, err)
		return GameSettings{}, false
	}
	return gs, true
}

// DeleteGame removes the record for key from the store and from the index.
// The index entry is dropped even if the store call fails.
func (ix *Index) DeleteGame(ctx context.Context, key string) error {
	err := ix.area.Remove(ctx, key)

	ix.mu.Lock()
	delete(ix.games, key)
	if !ix.loaded {
		ix.touched[key] = struct{}{}
	}
	ix.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to delete game %q: %w", key, err)
	}
	return nil
}

// Get returns the record for key.
func (ix *Index) Get(key string) (GameSettings, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	gs, ok := ix.games[key]
	return gs, ok
}

// Len returns the number of records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.games)
}

// Snapshot returns a copy of the index.
func (ix *Index) Snapshot() map[string]GameSettings {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]GameSettings, len(ix.games))
	for k, v := range ix.games {
		out[k] = v
	}
	return out
}

// URLs returns the keys of all records, sorted.
func (ix *Index) URLs() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	keys := make([]string, 0, len(ix.games))
	for k := range ix.games {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns all records sorted by key.
func (ix *Index) Entries() []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]Entry, 0, len(ix.games))
	for k, v := range ix.games {
		entries = append(entries, Entry{Key: k, Settings: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
