package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Makepad-fr/pantry/internal/store"
)

// JSON-backed storage. Single file, human-readable, portable.
// No cross-process locking: two processes writing at the same instant can
// lose one write. Fine for a household pantry; use sqlite otherwise.

type fileData struct {
	Collections map[string][]store.Document `json:"collections"`
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

type Store struct {
	path     string
	log      *zap.Logger
	debounce time.Duration

	mu      sync.Mutex // guards file read-modify-write and publishing
	hub     store.Hub
	watcher *store.FileWatcher
	closed  bool
}

var _ store.Store = (*Store)(nil)

// Open watches path for changes; the file is created on first write.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	w, err := store.WatchFile(path, s.debounce, s.log, s.reload)
	if err != nil {
		return nil, err
	}
	s.watcher = w
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Create(ctx context.Context, coll string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	err := s.update(coll, func(docs []store.Document) []store.Document {
		return append(docs, store.Document{ID: id, Fields: fields})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(coll, func(docs []store.Document) []store.Document {
		out := docs[:0]
		for _, d := range docs {
			if d.ID != id {
				out = append(out, d)
			}
		}
		return out
	})
}

func (s *Store) Subscribe(ctx context.Context, coll string) (*store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	sub := s.hub.Add(ctx, coll)
	sub.Publish(snapshotOf(data, coll))
	return sub, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.watcher.Close()
	s.hub.CloseAll()
	return err
}

func (s *Store) update(coll string, fn func([]store.Document) []store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	data, err := s.load()
	if err != nil {
		return err
	}
	data.Collections[coll] = fn(data.Collections[coll])
	if err := s.save(data); err != nil {
		return err
	}
	s.hub.Publish(coll, snapshotOf(data, coll))
	return nil
}

// reload runs on file changes from any process.
func (s *Store) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	data, err := s.load()
	if err != nil {
		// Usually a write caught half way; the next event re-reads.
		s.log.Warn("reload failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	for _, coll := range s.hub.Collections() {
		s.hub.Publish(coll, snapshotOf(data, coll))
	}
}

func (s *Store) load() (*fileData, error) {
	data := &fileData{Collections: map[string][]store.Document{}}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, data); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if data.Collections == nil {
		data.Collections = map[string][]store.Document{}
	}
	return data, nil
}

func (s *Store) save(data *fileData) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return writeFileAtomic(s.path, b, 0o644)
}

func snapshotOf(data *fileData, coll string) store.Snapshot {
	return store.Snapshot(data.Collections[coll]).Clone()
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over filename, so readers never see a partial document.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
