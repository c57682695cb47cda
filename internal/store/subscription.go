package store

import (
	"context"
	"sync"
)

// Subscription is a live query over one collection.
//
// Delivery is latest-wins: the channel holds at most one pending snapshot and
// a newer snapshot replaces an unread one. Every snapshot is a full state, so
// a consumer that falls behind still converges on the newest content.
type Subscription struct {
	collection string
	ch         chan Snapshot
	done       chan struct{}

	mu      sync.Mutex // serializes Publish
	once    sync.Once
	onClose func(*Subscription)
}

func newSubscription(collection string, onClose func(*Subscription)) *Subscription {
	return &Subscription{
		collection: collection,
		ch:         make(chan Snapshot, 1),
		done:       make(chan struct{}),
		onClose:    onClose,
	}
}

func (s *Subscription) Collection() string { return s.collection }

// Snapshots is never closed; select on Done to detect teardown.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close releases the subscription. It may be called any number of times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Publish hands a snapshot to the subscriber, replacing any unread one.
// It reports false once the subscription is closed.
func (s *Subscription) Publish(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return false
	default:
	}
	for {
		select {
		case s.ch <- snap:
			return true
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Hub fans snapshots out to every subscription of a collection.
// The zero value is ready to use.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Add registers a new subscription. It is closed automatically when ctx ends.
func (h *Hub) Add(ctx context.Context, collection string) *Subscription {
	sub := newSubscription(collection, h.remove)

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[string]map[*Subscription]struct{})
	}
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*Subscription]struct{})
	}
	h.subs[collection][sub] = struct{}{}
	h.mu.Unlock()

	if ctx != nil {
		stop := context.AfterFunc(ctx, sub.Close)
		go func() {
			<-sub.Done()
			stop()
		}()
	}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.collection]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.collection)
	}
}

// Publish sends snap to every live subscription of collection.
func (h *Hub) Publish(collection string, snap Snapshot) {
	for _, sub := range h.subscribers(collection) {
		sub.Publish(snap.Clone())
	}
}

// Collections lists the collections that currently have subscribers.
func (h *Hub) Collections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for c := range h.subs {
		out = append(out, c)
	}
	return out
}

// Active reports whether collection has at least one subscriber.
func (h *Hub) Active(collection string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection]) > 0
}

// CloseAll closes every subscription.
func (h *Hub) CloseAll() {
	var all []*Subscription
	h.mu.Lock()
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range all {
		sub.Close()
	}
}

func (h *Hub) subscribers(collection string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Subscription, 0, len(h.subs[collection]))
	for sub := range h.subs[collection] {
		out = append(out, sub)
	}
	return out
}
