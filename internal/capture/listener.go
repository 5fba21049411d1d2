package capture

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyluth/savestash/internal/binding"
	"github.com/dyluth/savestash/internal/games"
)

// Stats counts what the listener did with each copy event.
type Stats struct {
	Events       uint64 `json:"events"`
	Captured     uint64 `json:"captured"`
	Disabled     uint64 `json:"skipped_disabled"`
	ReadFailures uint64 `json:"skipped_read_failure"`
	NoMatch      uint64 `json:"skipped_no_match"`
}

// Option configures a Listener.
type Option func(*Listener)

// WithClock sets the time source used to stamp saves.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// WithOnCapture registers fn to run after every captured save.
func WithOnCapture(fn func(data string, at time.Time)) Option {
	return func(l *Listener) { l.onCapture = fn }
}

// Listener appends qualifying clipboard text to the saves of one game.
type Listener struct {
	clip      Clipboard
	settings  binding.State[games.GameSettings]
	now       func() time.Time
	onCapture func(data string, at time.Time)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	events, captured, disabled, readFailures, noMatch atomic.Uint64
}

// NewListener returns a Listener that captures into settings.
func NewListener(clip Clipboard, settings binding.State[games.GameSettings], opts ...Option) *Listener {
	l := &Listener{
		clip:     clip,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start registers for copy events. Calling Start on a running listener is a
// no-op. The listener runs until Stop is called or ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	copies, err := l.clip.Watch(ctx)
	if err != nil {
		cancel()
		return err
	}

	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, copies, l.done)

	log.Printf("[INFO] Listening for copy events")
	return nil
}

// Stop deregisters and waits for an in-flight event to finish.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("[INFO] Stopped listening for copy events")
}

// Stats returns a snapshot of the event counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Events:       l.events.Load(),
		Captured:     l.captured.Load(),
		Disabled:     l.disabled.Load(),
		ReadFailures: l.readFailures.Load(),
		NoMatch:      l.noMatch.Load(),
	}
}

func (l *Listener) run(ctx context.Context, copies <-chan struct{}, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-copies:
			if !ok {
				return
			}
			l.HandleCopy(ctx)
		}
	}
}

// HandleCopy processes one copy event. It never fails: every reason not to
// capture is logged at debug level and counted.
func (l *Listener) HandleCopy(ctx context.Context) bool {
	l.events.Add(1)

	current := l.settings.Value()
	if !current.Enabled {
		l.disabled.Add(1)
		log.Printf("[DEBUG] Copy ignored: capture is disabled")
		return false
	}

	text, err := l.clip.ReadText(ctx)
	if err != nil {
		l.readFailures.Add(1)
		if !errors.Is(err, context.Canceled) {
			log.Printf("[DEBUG] Copy ignored: clipboard read failed: %v", err)
		}
		return false
	}

	data, ok := Classify(current.DataType, text)
	if !ok {
		l.noMatch.Add(1)
		log.Printf("[DEBUG] Copy ignored: clipboard text is not %s data", current.DataType)
		return false
	}

	at := l.now()
	l.settings.Update(games.AppendSave(data, at.UnixMilli()))
	l.captured.Add(1)
	log.Printf("[DEBUG] Captured save of %d bytes", len(data))

	if l.onCapture != nil {
		l.onCapture(data, at)
	}
	return true
}
