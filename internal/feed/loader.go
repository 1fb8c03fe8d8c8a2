// Package feed loads lists of posts for display and renders them as cards.
package feed

import (
	"context"
	"slices"
	"sync"
)

// Status is the state of a Loader's view. Exactly one holds at a time.
type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusLoaded:
		return "loaded"
	default:
		return "loading"
	}
}

// View is a snapshot of a Loader. Err is set only in StatusError.
type View[T any] struct {
	Status Status
	Items  []T
	Err    error
}

// FetchFunc fetches the full list.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Loader owns one displayed list. Each Load starts a new generation and only
// the newest generation may publish its result; nothing is published after Close.
type Loader[T any] struct {
	fetch FetchFunc[T]

	mu        sync.Mutex
	gen       uint64
	closed    bool
	view      View[T]
	listeners map[int]func(View[T])
	nextID    int
}

// NewLoader returns a Loader in StatusLoading.
func NewLoader[T any](fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{fetch: fetch, listeners: make(map[int]func(View[T]))}
}

// Load fetches the list and returns the view after the attempt. A superseded
// attempt returns the current view without applying its own result.
func (l *Loader[T]) Load(ctx context.Context) View[T] {
	l.mu.Lock()
	if l.closed {
		v := l.snapshotLocked()
		l.mu.Unlock()
		return v
	}
	l.gen++
	gen := l.gen
	l.view = View[T]{Status: StatusLoading, Items: l.view.Items}
	v, fns := l.snapshotLocked(), l.listenersLocked()
	l.mu.Unlock()
	notify(fns, v)

	items, err := l.fetch(ctx)

	l.mu.Lock()
	if l.closed || gen != l.gen {
		v := l.snapshotLocked()
		l.mu.Unlock()
		return v
	}
	if err != nil {
		l.view = View[T]{Status: StatusError, Items: l.view.Items, Err: err}
	} else {
		if items == nil {
			items = []T{}
		}
		l.view = View[T]{Status: StatusLoaded, Items: items}
	}
	v, fns = l.snapshotLocked(), l.listenersLocked()
	l.mu.Unlock()
	notify(fns, v)
	return v
}

// Retry re-runs Load, typically after StatusError.
func (l *Loader[T]) Retry(ctx context.Context) View[T] {
	return l.Load(ctx)
}

// Prepend puts a confirmed item at the head of the list without refetching.
func (l *Loader[T]) Prepend(item T) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.view.Items = append([]T{item}, l.view.Items...)
	v, fns := l.snapshotLocked(), l.listenersLocked()
	l.mu.Unlock()
	notify(fns, v)
}

// View returns a copy of the current view.
func (l *Loader[T]) View() View[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// OnChange registers fn for every published view and returns a function that removes it.
func (l *Loader[T]) OnChange(fn func(View[T])) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// Close discards in-flight results and drops listeners.
func (l *Loader[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.gen++
	clear(l.listeners)
}

func (l *Loader[T]) snapshotLocked() View[T] {
	v := l.view
	v.Items = slices.Clone(l.view.Items)
	return v
}

func (l *Loader[T]) listenersLocked() []func(View[T]) {
	fns := make([]func(View[T]), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify[T any](fns []func(View[T]), v View[T]) {
	for _, fn := range fns {
		fn(v)
	}
}
