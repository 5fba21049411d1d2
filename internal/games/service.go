package games

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/savestash/pkg/store"
)

// Service runs one-shot management edits. Each call binds the record through
// an Accessor, applies its updates to the freshly read value and flushes.
type Service struct {
	area store.Area
}

// NewService returns a Service over area.
func NewService(area store.Area) *Service {
	return &Service{area: area}
}

// Get returns the record stored for url.
func (s *Service) Get(ctx context.Context, url string) (GameSettings, error) {
	if url == "" {
		return GameSettings{}, ErrEmptyURL
	}
	gs, ok, err := store.GetValue[GameSettings](ctx, s.area, KeyFor(url))
	if err != nil {
		return GameSettings{}, fmt.Errorf("failed to read game %q: %w", url, err)
	}
	if !ok {
		return GameSettings{}, fmt.Errorf("%w: %s", ErrGameNotFound, url)
	}
	return gs, nil
}

// Edit applies updates to an existing record. The management surfaces never
// create records, so an unknown url yields ErrGameNotFound.
func (s *Service) Edit(ctx context.Context, url string, updates ...Update) (GameSettings, error) {
	if _, err := s.Get(ctx, url); err != nil {
		return GameSettings{}, err
	}
	return s.run(ctx, url, func(a *Accessor) error {
		for _, u := range updates {
			a.Update(u)
		}
		return nil
	})
}

// Toggle flips capture for url, creating the default record first if none exists.
func (s *Service) Toggle(ctx context.Context, url string, meta PageMeta) (GameSettings, error) {
	return s.run(ctx, url, func(a *Accessor) error {
		a.Update(Toggle(withURL(meta, url)))
		return nil
	})
}

// SetEnabled turns capture on or off for url, creating the record if needed.
func (s *Service) SetEnabled(ctx context.Context, url string, enabled bool, meta PageMeta) (GameSettings, error) {
	return s.run(ctx, url, func(a *Accessor) error {
		a.Update(SetEnabled(enabled, withURL(meta, url)))
		return nil
	})
}

// SetDataType validates dt and applies it to an existing record.
func (s *Service) SetDataType(ctx context.Context, url string, dt DataType) (GameSettings, error) {
	if err := dt.Validate(); err != nil {
		return GameSettings{}, err
	}
	return s.Edit(ctx, url, SetDataType(dt))
}

// RenameSave renames the save at index (0-based, newest first).
func (s *Service) RenameSave(ctx context.Context, url string, index int, name string) (GameSettings, error) {
	return s.editSave(ctx, url, index, RenameSave(index, name))
}

// DeleteSave removes the save at index (0-based, newest first).
func (s *Service) DeleteSave(ctx context.Context, url string, index int) (GameSettings, error) {
	return s.editSave(ctx, url, index, DeleteSave(index))
}

// Delete removes the record for url.
func (s *Service) Delete(ctx context.Context, url string) error {
	if _, err := s.Get(ctx, url); err != nil {
		return err
	}
	if err := s.area.Remove(ctx, KeyFor(url)); err != nil {
		return fmt.Errorf("failed to delete game %q: %w", url, err)
	}
	return nil
}

func (s *Service) editSave(ctx context.Context, url string, index int, u Update) (GameSettings, error) {
	if _, err := s.Get(ctx, url); err != nil {
		return GameSettings{}, err
	}
	return s.run(ctx, url, func(a *Accessor) error {
		if index < 0 || index >= len(a.Value().Saves) {
			return fmt.Errorf("%w: index %d", ErrSaveNotFound, index)
		}
		a.Update(u)
		return nil
	})
}

// run binds url, waits for the stored value and hands the accessor to fn.
// Writes issued by fn are flushed before run returns.
func (s *Service) run(ctx context.Context, url string, fn func(a *Accessor) error) (GameSettings, error) {
	if url == "" {
		return GameSettings{}, ErrEmptyURL
	}

	a, err := OpenAccessor(ctx, s.area, url)
	if err != nil {
		return GameSettings{}, err
	}

	if err := a.WaitLoaded(ctx); err != nil {
		a.Close()
		return GameSettings{}, fmt.Errorf("failed to read game %q: %w", url, err)
	}

	if err := fn(a); err != nil {
		a.Close()
		return GameSettings{}, err
	}

	result := a.Value()
	if err := errors.Join(a.Flush(ctx), a.Close()); err != nil {
		return GameSettings{}, fmt.Errorf("failed to save game %q: %w", url, err)
	}
	return result, nil
}

func withURL(meta PageMeta, url string) PageMeta {
	if meta.URL == "" {
		meta.URL = url
	}
	return meta
}
