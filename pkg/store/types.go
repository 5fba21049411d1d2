package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// AreaLocal is the name of the default storage area.
const AreaLocal = "local"

// ErrEmptyKey is returned when a store operation is given an empty key.
var ErrEmptyKey = errors.New("store key cannot be empty")

// Area is the asynchronous key/value contract shared by every storage backend.
// Implementations must be safe for concurrent use.
type Area interface {
	// Name returns the area tag reported in change batches.
	Name() string

	// Get returns the values stored under keys. Absent keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// GetAll returns every key in the area.
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)

	// GetWithDefaults returns the stored value for each key of defaults,
	// falling back to the supplied default when the key is absent.
	GetWithDefaults(ctx context.Context, defaults map[string]json.RawMessage) (map[string]json.RawMessage, error)

	// Set writes all items in one atomic step and publishes one batch.
	Set(ctx context.Context, items map[string]json.RawMessage) error

	// Remove deletes keys and publishes one batch with absent new values.
	Remove(ctx context.Context, keys ...string) error

	// Clear deletes every key and publishes one batch with absent new values.
	Clear(ctx context.Context) error

	// Subscribe returns a subscription to the area's change feed.
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Change describes what happened to one key during a mutating call.
type Change struct {
	Key      string          `json:"key"`
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// Removed reports whether the key no longer holds a value after the change.
func (c Change) Removed() bool {
	return len(c.NewValue) == 0
}

// ChangeBatch is the notification published for one mutating call.
// Changes are ordered by key.
type ChangeBatch struct {
	Area    string   `json:"area"`
	Changes []Change `json:"changes"`
}

// Lookup returns the change for key, if the batch contains one.
func (b *ChangeBatch) Lookup(key string) (Change, bool) {
	for _, c := range b.Changes {
		if c.Key == key {
			return c, true
		}
	}
	return Change{}, false
}

// Keys returns the keys touched by the batch in delivery order.
func (b *ChangeBatch) Keys() []string {
	keys := make([]string, len(b.Changes))
	for i, c := range b.Changes {
		keys[i] = c.Key
	}
	return keys
}

// ValidateKey rejects keys the store cannot hold.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// IsFalsy reports whether raw is absent or one of the JSON values that a
// change-feed consumer treats as "no value": null, false, 0 or "".
func IsFalsy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	switch string(trimmed) {
	case "null", "false", `""`:
		return true
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil && n == 0 {
		return true
	}
	return false
}

// SetValue marshals v and writes it under key.
func SetValue(ctx context.Context, a Area, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	return a.Set(ctx, map[string]json.RawMessage{key: raw})
}

// GetValue reads key and unmarshals it into a T.
// The boolean result is false when the key is absent.
func GetValue[T any](ctx context.Context, a Area, key string) (T, bool, error) {
	var v T
	values, err := a.Get(ctx, key)
	if err != nil {
		return v, false, err
	}
	raw, ok := values[key]
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode value for key %q: %w", key, err)
	}
	return v, true, nil
}

// validateItems checks keys and payloads before a write and returns the keys sorted.
func validateItems(items map[string]json.RawMessage) ([]string, error) {
	keys := make([]string, 0, len(items))
	for k, v := range items {
		if err := ValidateKey(k); err != nil {
			return nil, err
		}
		if !json.Valid(v) {
			return nil, fmt.Errorf("value for key %q is not valid JSON", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// validateKeys checks keys for Get and Remove and returns them sorted and deduplicated.
func validateKeys(keys []string) ([]string, error) {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
