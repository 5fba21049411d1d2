package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryArea is an in-process storage area implementing the same contract as
// RedisArea. Change batches are delivered to every subscriber in write order.
type MemoryArea struct {
	name string

	mu   sync.Mutex
	data map[string]json.RawMessage
	subs map[*memorySubscriber]struct{}
}

type memorySubscriber struct {
	in   chan *ChangeBatch
	done <-chan struct{}
}

// NewMemoryArea creates an empty in-memory area tagged AreaLocal.
func NewMemoryArea() *MemoryArea {
	return &MemoryArea{
		name: AreaLocal,
		data: make(map[string]json.RawMessage),
		subs: make(map[*memorySubscriber]struct{}),
	}
}

// Name returns the area tag.
func (a *MemoryArea) Name() string {
	return a.name
}

// Get returns the values stored under keys. Absent keys are omitted.
func (a *MemoryArea) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	keys, err := validateKeys(keys)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := a.data[k]; ok {
			out[k] = cloneRaw(v)
		}
	}
	return out, nil
}

// GetAll returns every key in the area.
func (a *MemoryArea) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]json.RawMessage, len(a.data))
	for k, v := range a.data {
		out[k] = cloneRaw(v)
	}
	return out, nil
}

// GetWithDefaults returns the stored value for each key of defaults, or the default when absent.
func (a *MemoryArea) GetWithDefaults(ctx context.Context, defaults map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	for k := range defaults {
		if err := ValidateKey(k); err != nil {
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]json.RawMessage, len(defaults))
	for k, def := range defaults {
		if v, ok := a.data[k]; ok {
			out[k] = cloneRaw(v)
		} else {
			out[k] = cloneRaw(def)
		}
	}
	return out, nil
}

// Set writes all items and publishes one batch reporting prior values.
func (a *MemoryArea) Set(ctx context.Context, items map[string]json.RawMessage) error {
	keys, err := validateItems(items)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	batch := &ChangeBatch{Area: a.name, Changes: make([]Change, 0, len(keys))}
	for _, k := range keys {
		value := cloneRaw(items[k])
		batch.Changes = append(batch.Changes, Change{
			Key:      k,
			OldValue: a.data[k],
			NewValue: cloneRaw(value),
		})
		a.data[k] = value
	}

	a.publishLocked(batch)
	return nil
}

// Remove deletes keys and publishes one batch with absent new values.
// Keys that were not stored are left out; if none were, nothing is published.
func (a *MemoryArea) Remove(ctx context.Context, keys ...string) error {
	keys, err := validateKeys(keys)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	batch := &ChangeBatch{Area: a.name, Changes: make([]Change, 0, len(keys))}
	for _, k := range keys {
		old, ok := a.data[k]
		if !ok {
			continue
		}
		batch.Changes = append(batch.Changes, Change{Key: k, OldValue: old})
		delete(a.data, k)
	}
	if len(batch.Changes) == 0 {
		return nil
	}

	a.publishLocked(batch)
	return nil
}

// Clear deletes every key. Clearing an empty area publishes nothing.
func (a *MemoryArea) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(a.data))
	for k := range a.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := &ChangeBatch{Area: a.name, Changes: make([]Change, 0, len(keys))}
	for _, k := range keys {
		batch.Changes = append(batch.Changes, Change{Key: k, OldValue: a.data[k]})
	}
	a.data = make(map[string]json.RawMessage)

	a.publishLocked(batch)
	return nil
}

// publishLocked hands batch to every live subscriber. Caller holds a.mu, which
// keeps delivery order identical to write order.
func (a *MemoryArea) publishLocked(batch *ChangeBatch) {
	for s := range a.subs {
		select {
		case s.in <- cloneBatch(batch):
		case <-s.done:
		}
	}
}

// Subscribe subscribes to the area's change feed.
// Batches written after Subscribe returns are always delivered.
func (a *MemoryArea) Subscribe(ctx context.Context) (*Subscription, error) {
	subCtx, cancelFunc := context.WithCancel(ctx)

	in := make(chan *ChangeBatch)
	out := make(chan *ChangeBatch, 10)
	errorsChan := make(chan error)

	s := &memorySubscriber{in: in, done: subCtx.Done()}

	a.mu.Lock()
	a.subs[s] = struct{}{}
	a.mu.Unlock()

	go pump(subCtx, in, out)
	go func() {
		<-subCtx.Done()
		a.mu.Lock()
		delete(a.subs, s)
		a.mu.Unlock()
		close(errorsChan)
	}()

	return &Subscription{
		events: out,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

func cloneBatch(b *ChangeBatch) *ChangeBatch {
	out := &ChangeBatch{Area: b.Area, Changes: make([]Change, len(b.Changes))}
	for i, c := range b.Changes {
		out.Changes[i] = Change{Key: c.Key, OldValue: cloneRaw(c.OldValue), NewValue: cloneRaw(c.NewValue)}
	}
	return out
}

var _ Area = (*MemoryArea)(nil)
