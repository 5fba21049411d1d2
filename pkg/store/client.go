package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisArea is a storage area held in a Redis hash, with its change feed on
// Redis Pub/Sub. All keys and channels are namespaced with the profile name.
// The area is safe for concurrent use from multiple goroutines.
type RedisArea struct {
	rdb     *redis.Client
	profile string
	area    string
}

// NewRedisArea creates the local area of a profile.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - profile: namespace shared by every process that should see the same saves
//
// Returns an error if the profile name is invalid.
func NewRedisArea(redisOpts *redis.Options, profile string) (*RedisArea, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	return &RedisArea{
		rdb:     redis.NewClient(redisOpts),
		profile: profile,
		area:    AreaLocal,
	}, nil
}

// Name returns the area tag.
func (a *RedisArea) Name() string {
	return a.area
}

// Profile returns the namespace of this area.
func (a *RedisArea) Profile() string {
	return a.profile
}

// Close closes the Redis connection. Implements io.Closer.
func (a *RedisArea) Close() error {
	return a.rdb.Close()
}

// Ping verifies Redis connectivity.
func (a *RedisArea) Ping(ctx context.Context) error {
	return a.rdb.Ping(ctx).Err()
}

func (a *RedisArea) hashKey() string {
	return AreaKey(a.profile, a.area)
}

// Get returns the values stored under keys. Absent keys are omitted.
func (a *RedisArea) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	keys, err := validateKeys(keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := a.rdb.HMGet(ctx, a.hashKey(), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read keys from Redis: %w", err)
	}

	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = json.RawMessage(s)
		}
	}
	return out, nil
}

// GetAll returns every key in the area.
func (a *RedisArea) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	hash, err := a.rdb.HGetAll(ctx, a.hashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read area from Redis: %w", err)
	}

	out := make(map[string]json.RawMessage, len(hash))
	for k, v := range hash {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

// GetWithDefaults returns the stored value for each key of defaults, or the default when absent.
func (a *RedisArea) GetWithDefaults(ctx context.Context, defaults map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}

	stored, err := a.Get(ctx, keys...)
	if err != nil {
		return nil, err
	}

	for k, def := range defaults {
		if _, ok := stored[k]; !ok {
			stored[k] = cloneRaw(def)
		}
	}
	return stored, nil
}

// Set writes all items and publishes the resulting batch in one atomic step.
func (a *RedisArea) Set(ctx context.Context, items map[string]json.RawMessage) error {
	keys, err := validateItems(items)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	args := make([]interface{}, 0, 1+2*len(keys))
	args = append(args, a.area)
	for _, k := range keys {
		args = append(args, k, string(items[k]))
	}
	if err := setScript.Run(ctx, a.rdb, a.scriptKeys(), args...).Err(); err != nil {
		return fmt.Errorf("failed to write keys to Redis: %w", err)
	}
	return nil
}

// Remove deletes keys and publishes a batch with absent new values.
// Keys that were not stored are left out; if none were, nothing is published.
func (a *RedisArea) Remove(ctx context.Context, keys ...string) error {
	keys, err := validateKeys(keys)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	args := make([]interface{}, 0, 1+len(keys))
	args = append(args, a.area)
	for _, k := range keys {
		args = append(args, k)
	}
	if err := removeScript.Run(ctx, a.rdb, a.scriptKeys(), args...).Err(); err != nil {
		return fmt.Errorf("failed to remove keys from Redis: %w", err)
	}
	return nil
}

// Clear deletes every key of the area. Clearing an empty area publishes nothing.
func (a *RedisArea) Clear(ctx context.Context) error {
	if err := clearScript.Run(ctx, a.rdb, a.scriptKeys(), a.area).Err(); err != nil {
		return fmt.Errorf("failed to clear area in Redis: %w", err)
	}
	return nil
}

func (a *RedisArea) scriptKeys() []string {
	return []string{a.hashKey(), ChangesChannel(a.profile, a.area)}
}

// Subscribe subscribes to this area's change feed.
// The call returns once Redis has confirmed the subscription, so any write
// issued afterwards is guaranteed to be delivered.
// Caller must call subscription.Close() when done. Context cancellation also stops it.
//
// Redis Pub/Sub is at-most-once: a subscriber that falls far behind may lose batches.
func (a *RedisArea) Subscribe(ctx context.Context) (*Subscription, error) {
	channel := ChangesChannel(a.profile, a.area)
	pubsub := a.rdb.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan *ChangeBatch, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var batch ChangeBatch
				if err := json.Unmarshal([]byte(msg.Payload), &batch); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal change batch: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &batch:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

var _ Area = (*RedisArea)(nil)
