package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"gagyebu/internal/core"
)

// Loader reads the full current set of definitions.
type Loader func(ctx context.Context) ([]core.RecurringDefinition, error)

// Hub fans definition snapshots out to watchers. Every snapshot is a fresh
// full read, and loads are serialized so watchers never see an older set
// after a newer one.
type Hub struct {
	load Loader

	pubMu sync.Mutex // serializes load+deliver
	mu    sync.Mutex
	subs  map[*subscriber]struct{}
}

type subscriber struct {
	ch chan []core.RecurringDefinition
}

func NewHub(load Loader) *Hub {
	return &Hub{
		load: load,
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribe registers a watcher and queues the current snapshot for it.
// The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (<-chan []core.RecurringDefinition, error) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	snapshot, err := h.load(ctx)
	if err != nil {
		return nil, Wrap("watch definitions", err)
	}

	sub := &subscriber{ch: make(chan []core.RecurringDefinition, 1)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	sub.offer(snapshot)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch, nil
}

// Notify reloads the definitions and delivers them to every watcher.
func (h *Hub) Notify(ctx context.Context) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.mu.Lock()
	n := len(h.subs)
	h.mu.Unlock()
	if n == 0 {
		return
	}

	snapshot, err := h.load(context.WithoutCancel(ctx))
	if err != nil {
		slog.WarnContext(ctx, "Failed to load definitions for watchers", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		sub.offer(snapshot)
	}
}

// Watchers returns the number of active subscriptions.
func (h *Hub) Watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// offer replaces any undelivered snapshot with the new one. Callers hold h.mu.
func (s *subscriber) offer(snapshot []core.RecurringDefinition) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- slices.Clone(snapshot)
}
