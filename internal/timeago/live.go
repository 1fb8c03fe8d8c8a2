package timeago

import (
	"context"
	"sync"
	"time"
)

// DefaultRefresh is how often a Live value is recomputed.
const DefaultRefresh = time.Minute

// Live keeps a relative-age string current for one displayed timestamp.
// It owns a ticker goroutine until Stop is called or its context ends.
type Live struct {
	mu       sync.RWMutex
	value    string
	at       *time.Time
	now      func() time.Time
	onChange func(string)

	cancel context.CancelFunc
	done   chan struct{}
}

// LiveOption configures a Live.
type LiveOption func(*Live)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LiveOption {
	return func(l *Live) { l.now = now }
}

// WithOnChange registers a callback invoked whenever the rendered value changes.
func WithOnChange(fn func(string)) LiveOption {
	return func(l *Live) { l.onChange = fn }
}

// NewLive computes the initial value and starts refreshing it every interval.
func NewLive(ctx context.Context, at *time.Time, interval time.Duration, opts ...LiveOption) *Live {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Live{
		at:     at,
		now:    time.Now,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.value = Format(l.now(), l.at)

	go l.run(ctx, interval)
	return l
}

func (l *Live) run(ctx context.Context, interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.refresh()
		}
	}
}

func (l *Live) refresh() {
	next := Format(l.now(), l.at)

	l.mu.Lock()
	changed := next != l.value
	l.value = next
	l.mu.Unlock()

	if changed && l.onChange != nil {
		l.onChange(next)
	}
}

// Value returns the most recently computed string.
func (l *Live) Value() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

// Stop cancels the refresh loop and waits for it to exit. It is safe to call more than once.
func (l *Live) Stop() {
	l.cancel()
	<-l.done
}
