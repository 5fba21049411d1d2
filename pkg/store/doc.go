// Package store provides the persistent key/value contract used by savestash
// and its Redis-backed and in-memory implementations.
//
// # Overview
//
// A storage area maps string keys to JSON values. Every mutating call (Set,
// Remove, Clear) is applied atomically and then announced on the area's change
// feed as a single ChangeBatch. Each Change in a batch carries the key, the
// value it held before the call (OldValue) and the value it holds afterwards
// (NewValue). NewValue is absent when the key was removed or cleared.
//
// Components never cache values without also subscribing to the feed: the
// store is the source of truth and the feed is how readers converge on it.
//
// # Areas
//
// RedisArea keeps all keys of one profile in a single Redis hash and publishes
// change batches as JSON over Redis Pub/Sub, so separate processes (a capture
// daemon, the CLI, the HTTP API) observe each other's writes.
//
// MemoryArea implements the same contract in-process. It is used by tests and by
// the --memory mode of the CLI.
//
// # Usage Example
//
//	area, err := store.NewRedisArea(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer area.Close()
//
//	sub, err := area.Subscribe(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	_ = area.Set(ctx, map[string]json.RawMessage{
//		"https://game.example": json.RawMessage(`{"enabled":true}`),
//	})
//
//	batch := <-sub.Events()
//	// batch.Changes[0].Key == "https://game.example"
//
// # Redis Schema
//
// Area hash: savestash:{profile}:area:{area}
//
// Change feed: savestash:{profile}:{area}:changes
//
// # Consistency
//
// Writes from different processes to the same key are last-write-wins. There
// is no merge and no cross-process locking; a writer whose optimistic local
// copy lost the race converges on the next change notification.
package store
