package capture

import (
	"context"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// Clipboard is the system clipboard as seen by the listener.
type Clipboard interface {
	// Watch delivers a signal when something is copied. A copy that leaves
	// the contents unchanged may not be signalled. The channel is closed
	// when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// ReadText returns the current text contents.
	ReadText(ctx context.Context) (string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(ctx context.Context, text string) error
}

// SystemClipboard is the desktop clipboard. Copy events are text changes
// reported by the platform.
type SystemClipboard struct {
	initOnce sync.Once
	initErr  error
}

// NewSystemClipboard returns the desktop clipboard. Platform initialization is
// deferred to first use.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

func (c *SystemClipboard) init() error {
	c.initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			c.initErr = fmt.Errorf("failed to init clipboard: %w", err)
		}
	})
	return c.initErr
}

// Watch implements Clipboard. The platform only reports content changes, so
// copying the same text twice in a row yields a single event and the second
// copy is not captured.
func (c *SystemClipboard) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	changes := clipboard.Watch(ctx, clipboard.FmtText)
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
					// A signal is already pending; the handler reads the latest text anyway.
				}
			}
		}
	}()
	return out, nil
}

// ReadText implements Clipboard.
func (c *SystemClipboard) ReadText(ctx context.Context) (string, error) {
	if err := c.init(); err != nil {
		return "", err
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// WriteText implements Clipboard.
func (c *SystemClipboard) WriteText(ctx context.Context, text string) error {
	if err := c.init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

var _ Clipboard = (*SystemClipboard)(nil)
