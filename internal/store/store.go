// Package store defines the document collection contract the pantry syncs
// against, plus the fan-out and file-watching pieces shared by the backends
// (memstore, sqlitestore, jsonstore).
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends once Close has been called.
var ErrClosed = errors.New("store: closed")

// Document is a stored record: an opaque id plus its fields.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Snapshot is the full current content of one collection. Order is defined
// by the backend and callers must not rely on it.
type Snapshot []Document

// Store is a document collection store with live subscriptions.
type Store interface {
	// Create stores fields as a new document and returns its generated id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Delete removes a document. Unknown ids are a no-op.
	Delete(ctx context.Context, collection, id string) error
	// Subscribe delivers the current snapshot right away and a fresh one
	// after every change to the collection.
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
	Close() error
}

// Clone returns a deep-enough copy of the snapshot: documents and their
// field maps are copied, field values are shared.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for i, d := range s {
		fields := make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			fields[k] = v
		}
		out[i] = Document{ID: d.ID, Fields: fields}
	}
	return out
}
