// Package memstore is an in-process store.Store. Snapshots list documents in
// creation order. Nothing survives the process.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Makepad-fr/pantry/internal/store"
)

type collection struct {
	order []string
	docs  map[string]map[string]any
}

type Store struct {
	mu     sync.Mutex
	colls  map[string]*collection
	hub    store.Hub
	closed bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{colls: make(map[string]*collection)}
}

func (s *Store) Create(ctx context.Context, coll string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", store.ErrClosed
	}
	// Snapshots are published while s.mu is held so they reach subscribers
	// in the order the changes happened.
	c := s.coll(coll)
	c.order = append(c.order, id)
	c.docs[id] = copyFields(fields)
	s.hub.Publish(coll, c.snapshot())
	s.mu.Unlock()
	return id, nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	c := s.coll(coll)
	if _, ok := c.docs[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.hub.Publish(coll, c.snapshot())
	s.mu.Unlock()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, coll string) (*store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	sub := s.hub.Add(ctx, coll)
	// Published under s.mu so no later change can be overtaken by this one.
	sub.Publish(s.coll(coll).snapshot())
	return sub, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.CloseAll()
	return nil
}

func (s *Store) coll(name string) *collection {
	c, ok := s.colls[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		s.colls[name] = c
	}
	return c
}

func (c *collection) snapshot() store.Snapshot {
	snap := make(store.Snapshot, 0, len(c.order))
	for _, id := range c.order {
		snap = append(snap, store.Document{ID: id, Fields: copyFields(c.docs[id])})
	}
	return snap
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
