// Package sqlitestore keeps collections in a SQLite database file.
//
// Several processes may open the same file. Writes made here are published to
// local subscribers right away; writes made by other processes are noticed
// through a file watcher and re-read.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Makepad-fr/pantry/internal/store"
)

const memoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	fields TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);
`

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithDebounce sets how long file events are batched before a re-read.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

type Store struct {
	db       *sql.DB
	path     string
	log      *zap.Logger
	debounce time.Duration

	hub       store.Hub
	refreshMu sync.Mutex // a query and its publish happen as one step
	watcher   *store.FileWatcher

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database without file watching.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: ":memory:" is per-connection, and a single writer
	// keeps SQLITE_BUSY out of the picture within this process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s.db = db
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if path != memoryPath {
		w, err := store.WatchFile(path, s.debounce, s.log, s.refreshAll)
		if err != nil {
			s.cancel()
			db.Close()
			return nil, err
		}
		s.watcher = w
	}
	s.log.Debug("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Create(ctx context.Context, coll string, fields map[string]any) (string, error) {
	if s.ctx.Err() != nil {
		return "", store.ErrClosed
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)`,
		coll, id, string(b)); err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	s.log.Debug("document created", zap.String("collection", coll), zap.String("id", id))
	s.refresh(ctx, coll)
	return id, nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	if s.ctx.Err() != nil {
		return store.ErrClosed
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, coll, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	s.log.Debug("document deleted", zap.String("collection", coll), zap.String("id", id))
	s.refresh(ctx, coll)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, coll string) (*store.Subscription, error) {
	if s.ctx.Err() != nil {
		return nil, store.ErrClosed
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap, err := s.query(ctx, coll)
	if err != nil {
		return nil, err
	}
	sub := s.hub.Add(ctx, coll)
	sub.Publish(snap)
	return sub, nil
}

// Close stops watching, closes all subscriptions and the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		s.hub.CloseAll()
		err = s.db.Close()
	})
	return err
}

// refresh re-reads a collection and publishes it if anyone is listening.
// Failures are logged: subscribers keep their last good snapshot.
func (s *Store) refresh(ctx context.Context, coll string) {
	if !s.hub.Active(coll) {
		return
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap, err := s.query(ctx, coll)
	if err != nil {
		s.log.Warn("refresh failed", zap.String("collection", coll), zap.Error(err))
		return
	}
	s.hub.Publish(coll, snap)
}

func (s *Store) refreshAll() {
	for _, coll := range s.hub.Collections() {
		s.refresh(s.ctx, coll)
	}
}

// query reads a whole collection ordered by document id.
func (s *Store) query(ctx context.Context, coll string) (store.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields FROM documents WHERE collection = ? ORDER BY id`, coll)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	snap := store.Snapshot{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		snap = append(snap, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return snap, nil
}
