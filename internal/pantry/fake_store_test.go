package pantry

import (
	"context"
	"testing"

	"github.com/Makepad-fr/pantry/internal/store"
)

// fakeStore answers every write over a channel so tests can assert each call
// in order and choose its result.
type fakeStore struct {
	t     *testing.T
	calls chan any
	hub   store.Hub

	subscribeErr error
}

func newFakeStore(t *testing.T) *fakeStore {
	return &fakeStore{t: t, calls: make(chan any)}
}

type createCall struct {
	collection string
	fields     map[string]any
}
type createResp struct {
	id  string
	err error
}

type deleteCall struct {
	collection string
	id         string
}
type deleteResp struct{ err error }

func (f *fakeStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	f.calls <- &createCall{collection, fields}
	resp := (<-f.calls).(*createResp)
	return resp.id, resp.err
}

func (f *fakeStore) Delete(ctx context.Context, collection, id string) error {
	f.calls <- &deleteCall{collection, id}
	return (<-f.calls).(*deleteResp).err
}

func (f *fakeStore) Subscribe(ctx context.Context, collection string) (*store.Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.hub.Add(ctx, collection), nil
}

func (f *fakeStore) Close() error {
	f.hub.CloseAll()
	return nil
}

// push delivers a snapshot to the live subscription.
func (f *fakeStore) push(collection string, snap store.Snapshot) {
	f.hub.Publish(collection, snap)
}

func (f *fakeStore) expectCreate(fields map[string]any, id string, err error) {
	f.t.Helper()
	call, ok := (<-f.calls).(*createCall)
	if !ok {
		f.t.Fatal("expected a create call")
	}
	if len(call.fields) != len(fields) {
		f.t.Errorf("create fields = %v, want %v", call.fields, fields)
	}
	for k, v := range fields {
		if call.fields[k] != v {
			f.t.Errorf("create field %q = %v, want %v", k, call.fields[k], v)
		}
	}
	f.calls <- &createResp{id, err}
}

func (f *fakeStore) expectDelete(id string, err error) {
	f.t.Helper()
	call, ok := (<-f.calls).(*deleteCall)
	if !ok {
		f.t.Fatal("expected a delete call")
	}
	if call.id != id {
		f.t.Errorf("delete id = %q, want %q", call.id, id)
	}
	f.calls <- &deleteResp{err}
}

// expectNoCalls closes the call channel; any later write panics the test.
func (f *fakeStore) expectNoCalls() {
	close(f.calls)
}
