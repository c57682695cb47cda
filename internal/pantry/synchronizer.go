// Package pantry keeps a local copy of the shared item list in step with the
// store and builds recipe requests from it.
package pantry

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/store"
)

// DefaultCollection is the collection items live in.
const DefaultCollection = "items"

type Option func(*Synchronizer)

func WithCollection(name string) Option {
	return func(s *Synchronizer) {
		if name != "" {
			s.collection = name
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

// Synchronizer mirrors one store collection as a list of items.
//
// The list is only ever replaced wholesale from a store snapshot; adds and
// deletes write through to the store and show up with the next snapshot.
type Synchronizer struct {
	store      store.Store
	collection string
	log        *zap.Logger

	mu    sync.RWMutex
	items []model.Item

	updates   chan []model.Item
	ready     chan struct{}
	readyOnce sync.Once

	subMu sync.Mutex
	sub   *store.Subscription
	done  chan struct{}
}

func NewSynchronizer(st store.Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:      st,
		collection: DefaultCollection,
		log:        zap.NewNop(),
		items:      []model.Item{},
		updates:    make(chan []model.Item, 1),
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) Collection() string { return s.collection }

// Subscribe opens the live query and starts applying snapshots. A second
// call while subscribed does nothing.
func (s *Synchronizer) Subscribe(ctx context.Context) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub != nil {
		return nil
	}
	sub, err := s.store.Subscribe(ctx, s.collection)
	if err != nil {
		return err
	}
	s.sub = sub
	s.done = make(chan struct{})
	go s.run(sub, s.done)
	s.log.Debug("subscribed", zap.String("collection", s.collection))
	return nil
}

// Unsubscribe stops the live query and waits for the apply loop to exit.
// Safe to call repeatedly, before Subscribe, or after the store failed.
func (s *Synchronizer) Unsubscribe() {
	s.subMu.Lock()
	sub, done := s.sub, s.done
	s.sub, s.done = nil, nil
	s.subMu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
	s.log.Debug("unsubscribed", zap.String("collection", s.collection))
}

func (s *Synchronizer) run(sub *store.Subscription, done chan struct{}) {
	defer close(done)
	// A subscription that ended on its own (context, store closed) must not
	// keep later Subscribe calls from opening a new one.
	defer func() {
		s.subMu.Lock()
		if s.sub == sub {
			s.sub, s.done = nil, nil
		}
		s.subMu.Unlock()
	}()
	for {
		select {
		case <-sub.Done():
			return
		case snap := <-sub.Snapshots():
			s.Apply(snap)
		}
	}
}

// Apply replaces the local list with the projection of snap, keeping the
// snapshot's order. Applying the same snapshot twice yields the same list.
func (s *Synchronizer) Apply(snap store.Snapshot) []model.Item {
	items := Project(snap)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.log.Debug("snapshot applied", zap.Int("items", len(items)))
	s.notify(items)
	s.readyOnce.Do(func() { close(s.ready) })
	return cloneItems(items)
}

// Project turns store documents into items with their ids attached.
func Project(snap store.Snapshot) []model.Item {
	items := make([]model.Item, 0, len(snap))
	for _, d := range snap {
		items = append(items, model.Item{
			ID:    d.ID,
			Name:  d.String(model.FieldName),
			Price: d.String(model.FieldPrice),
		})
	}
	return items
}

// notify hands the newest list to Updates, dropping an unread older one.
func (s *Synchronizer) notify(items []model.Item) {
	out := cloneItems(items)
	for {
		select {
		case s.updates <- out:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// Items returns a copy of the current list.
func (s *Synchronizer) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Updates yields each new list. Only the latest unread list is kept.
func (s *Synchronizer) Updates() <-chan []model.Item { return s.updates }

// Ready is closed once the first snapshot has been applied.
func (s *Synchronizer) Ready() <-chan struct{} { return s.ready }

// ValidDraft reports whether a draft would be written by AddItem.
func ValidDraft(d model.Draft) bool {
	return strings.TrimSpace(d.Name) != "" && d.Price != ""
}

// AddItem writes the draft as a new item and clears it.
//
// An incomplete draft (blank name after trimming, or empty price) is left
// untouched and nothing is written. Otherwise the draft is cleared before
// the write, whatever its outcome, and the write error is returned as is.
// The local list is not touched; the item appears with the next snapshot.
func (s *Synchronizer) AddItem(ctx context.Context, draft *model.Draft) error {
	if draft == nil || !ValidDraft(*draft) {
		return nil
	}
	name, price := strings.TrimSpace(draft.Name), draft.Price
	draft.Reset()

	id, err := s.store.Create(ctx, s.collection, map[string]any{
		model.FieldName:  name,
		model.FieldPrice: price,
	})
	if err != nil {
		s.log.Warn("create failed", zap.String("name", name), zap.Error(err))
		return err
	}
	s.log.Info("item added", zap.String("id", id), zap.String("name", name), zap.String("price", price))
	return nil
}

// DeleteItem removes the item with id from the store. The id is not checked
// against the local list.
func (s *Synchronizer) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, s.collection, id); err != nil {
		s.log.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("item deleted", zap.String("id", id))
	return nil
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
