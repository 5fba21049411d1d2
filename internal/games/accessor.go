package games

import (
	"context"
	"sync"

	"github.com/dyluth/savestash/internal/binding"
	"github.com/dyluth/savestash/pkg/store"
)

// Accessor is the settings of the page currently in view. With a URL it is
// bound to the record stored under that URL; without one it holds the default
// record in memory and never touches the store.
type Accessor struct {
	area store.Area

	mu    sync.RWMutex
	url   string
	local *binding.Local[GameSettings]
	bound *binding.Binding[GameSettings]
}

// OpenAccessor returns an Accessor for url, which may be empty.
func OpenAccessor(ctx context.Context, area store.Area, url string) (*Accessor, error) {
	a := &Accessor{area: area}
	if err := a.SetURL(ctx, url); err != nil {
		return nil, err
	}
	return a, nil
}

// KeyFor returns the store key of the record for url.
func KeyFor(url string) string {
	if url == "" {
		return DefaultKey
	}
	return url
}

// URL returns the page URL, or "" when unbound.
func (a *Accessor) URL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.url
}

// SetURL switches to the record for url. Switching to "" drops the store
// binding and starts over from the default record.
func (a *Accessor) SetURL(ctx context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if url == "" {
		if a.bound != nil {
			if err := a.bound.Close(); err != nil {
				return err
			}
			a.bound = nil
		}
		if a.local == nil || a.url != "" {
			a.local = binding.NewLocal(Default())
		}
		a.url = ""
		return nil
	}

	if a.bound != nil {
		if err := a.bound.SetKey(ctx, KeyFor(url)); err != nil {
			return err
		}
	} else {
		b, err := binding.Open(ctx, a.area, KeyFor(url), Default())
		if err != nil {
			return err
		}
		a.bound = b
		a.local = nil
	}
	a.url = url
	return nil
}

func (a *Accessor) state() binding.State[GameSettings] {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.bound != nil {
		return a.bound
	}
	return a.local
}

// Value returns the latest known settings.
func (a *Accessor) Value() GameSettings {
	return a.state().Value()
}

// Update applies u and returns the new settings.
func (a *Accessor) Update(u binding.Update[GameSettings]) GameSettings {
	return a.state().Update(u)
}

// WaitLoaded blocks until the stored record, if any, has been read.
func (a *Accessor) WaitLoaded(ctx context.Context) error {
	return a.state().WaitLoaded(ctx)
}

// Flush waits until queued writes are persisted. It is a no-op when unbound.
func (a *Accessor) Flush(ctx context.Context) error {
	a.mu.RLock()
	b := a.bound
	a.mu.RUnlock()
	if b == nil {
		return nil
	}
	return b.Flush(ctx)
}

// Close flushes queued writes and releases the binding.
func (a *Accessor) Close() error {
	return a.state().Close()
}

var _ binding.State[GameSettings] = (*Accessor)(nil)
