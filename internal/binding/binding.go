package binding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/savestash/pkg/store"
)

// ioTimeout bounds every read and write a binding issues on its own behalf.
const ioTimeout = 5 * time.Second

// ErrClosed is returned by operations on a closed Binding.
var ErrClosed = errors.New("binding is closed")

// Binding is a State backed by one key of a store.Area.
//
// The lifecycle of a key (a "generation") is: subscribe to the change feed,
// read the key asynchronously, apply notifications for the key as they arrive.
// SetKey starts a new generation and Close ends the last one; results that
// arrive for an ended generation are discarded.
type Binding[T any] struct {
	area    store.Area
	def     T
	baseCtx context.Context

	mu      sync.RWMutex
	key     string
	value   T
	gen     uint64
	touched bool // the value of this generation no longer comes from the initial read
	load    *loadState
	sub     *store.Subscription
	closed  bool

	writes     chan pendingWrite[T]
	writerDone chan struct{}
	writeErr   error // owned by the writer goroutine until writerDone is closed
}

type loadState struct {
	done chan struct{}
	err  error
}

type pendingWrite[T any] struct {
	key   string
	value T
	flush chan error
}

// Open binds key in area, starting from def until the stored value is read.
// The binding lives until Close; ctx only bounds the subscription handshake.
func Open[T any](ctx context.Context, area store.Area, key string, def T) (*Binding[T], error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	b := &Binding[T]{
		area:       area,
		def:        def,
		value:      def,
		baseCtx:    context.WithoutCancel(ctx),
		writes:     make(chan pendingWrite[T], 64),
		writerDone: make(chan struct{}),
	}
	go b.writer()

	if err := b.bind(ctx, key); err != nil {
		close(b.writes)
		<-b.writerDone
		return nil, err
	}
	return b, nil
}

// Key returns the key currently bound.
func (b *Binding[T]) Key() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.key
}

// Value returns the latest known value.
func (b *Binding[T]) Value() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// WaitLoaded blocks until the initial read of the current key has resolved.
// A read error is returned but leaves the binding usable with its default value.
func (b *Binding[T]) WaitLoaded(ctx context.Context) error {
	b.mu.RLock()
	ls := b.load
	b.mu.RUnlock()

	if ls == nil {
		return ErrClosed
	}

	select {
	case <-ls.done:
		return ls.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Update applies u to the latest known value, adopts the result immediately
// and queues it for writing. Writes are persisted in the order they were computed.
// Updates on a closed binding are ignored and return the last value.
func (b *Binding[T]) Update(u Update[T]) T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		log.Printf("[WARN] Ignoring update to closed binding for key %q", b.key)
		return b.value
	}

	next := u.Resolve(b.value)
	b.value = next
	b.touched = true
	b.writes <- pendingWrite[T]{key: b.key, value: next}
	return next
}

// Flush waits until every update issued so far has been written and returns
// the first write error since the previous flush.
func (b *Binding[T]) Flush(ctx context.Context) error {
	reply := make(chan error, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.writes <- pendingWrite[T]{flush: reply}
	b.mu.Unlock()

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetKey rebinds to key. The value resets to the default until the new key's
// read resolves, and notifications for the old key are no longer applied.
func (b *Binding[T]) SetKey(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if b.Key() == key {
		return nil
	}
	return b.bind(ctx, key)
}

// Close unsubscribes, discards in-flight reads and flushes queued writes.
// It returns the first write error not already reported by Flush.
func (b *Binding[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.gen++
	sub := b.sub
	b.sub = nil
	close(b.writes)
	b.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	<-b.writerDone
	return b.writeErr
}

// bind starts a new generation for key.
func (b *Binding[T]) bind(ctx context.Context, key string) error {
	sub, err := b.area.Subscribe(b.baseCtx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to changes of %q: %w", key, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.Close()
		return ErrClosed
	}
	previous := b.sub
	b.gen++
	gen := b.gen
	b.key = key
	b.value = b.def
	b.touched = false
	b.sub = sub
	ls := &loadState{done: make(chan struct{})}
	b.load = ls
	b.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	go b.follow(gen, key, sub)
	go b.read(gen, key, ls)
	return nil
}

// read performs the initial read of a generation.
func (b *Binding[T]) read(gen uint64, key string, ls *loadState) {
	defer close(ls.done)

	ctx, cancel := context.WithTimeout(b.baseCtx, ioTimeout)
	defer cancel()

	var (
		next  T
		found bool
	)
	values, err := b.area.Get(ctx, key)
	if err == nil {
		if raw, ok := values[key]; ok {
			next, err = decode[T](raw)
			found = err == nil
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != gen {
		return
	}
	if err != nil {
		log.Printf("[WARN] Failed to read key %q: %v", key, err)
		ls.err = err
		return
	}
	if found && !b.touched {
		b.value = next
	}
}

// follow applies change notifications for key until the subscription ends.
func (b *Binding[T]) follow(gen uint64, key string, sub *store.Subscription) {
	events, errs := sub.Events(), sub.Errors()
	for events != nil {
		select {
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if change, found := batch.Lookup(key); found {
				b.apply(gen, change)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[WARN] Change feed error for key %q: %v", key, err)
		}
	}
}

func (b *Binding[T]) apply(gen uint64, change store.Change) {
	next := b.def
	if !change.Removed() && !bytes.Equal(bytes.TrimSpace(change.NewValue), []byte("null")) {
		v, err := decode[T](change.NewValue)
		if err != nil {
			log.Printf("[WARN] Ignoring undecodable value for key %q: %v", change.Key, err)
			return
		}
		next = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != gen {
		return
	}
	b.value = next
	b.touched = true
}

// writer persists queued updates one at a time.
func (b *Binding[T]) writer() {
	defer close(b.writerDone)

	for w := range b.writes {
		if w.flush != nil {
			w.flush <- b.writeErr
			b.writeErr = nil
			continue
		}

		raw, err := json.Marshal(w.value)
		if err == nil {
			ctx, cancel := context.WithTimeout(b.baseCtx, ioTimeout)
			err = b.area.Set(ctx, map[string]json.RawMessage{w.key: raw})
			cancel()
		}
		if err != nil {
			log.Printf("[ERROR] Failed to write key %q: %v", w.key, err)
			if b.writeErr == nil {
				b.writeErr = err
			}
		}
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, err
	}
	return v, nil
}

var _ State[int] = (*Binding[int])(nil)
