// Package storetest holds helpers shared by the backend tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/pantry/internal/store"
)

// Timeout bounds every wait; file watching needs a little slack on CI.
const Timeout = 5 * time.Second

// Next returns the next snapshot or fails the test.
func Next(t *testing.T, sub *store.Subscription) store.Snapshot {
	t.Helper()
	select {
	case snap := <-sub.Snapshots():
		return snap
	case <-sub.Done():
		t.Fatal("subscription closed")
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

// WaitFor reads snapshots until one satisfies ok and returns it.
func WaitFor(t *testing.T, sub *store.Subscription, ok func(store.Snapshot) bool) store.Snapshot {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		select {
		case snap := <-sub.Snapshots():
			if ok(snap) {
				return snap
			}
		case <-sub.Done():
			t.Fatal("subscription closed")
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
		}
	}
}

// Names lists the "name" field of each document in snapshot order.
func Names(snap store.Snapshot) []string {
	out := make([]string, 0, len(snap))
	for _, d := range snap {
		out = append(out, d.String("name"))
	}
	return out
}

// Contract exercises the behaviour every backend must share.
func Contract(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("create then delete", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		sub, err := st.Subscribe(ctx, "items")
		require.NoError(t, err)
		defer sub.Close()
		require.Empty(t, Next(t, sub))

		milk, err := st.Create(ctx, "items", map[string]any{"name": "Milk", "price": "2"})
		require.NoError(t, err)
		require.NotEmpty(t, milk)
		_, err = st.Create(ctx, "items", map[string]any{"name": "Eggs", "price": "12"})
		require.NoError(t, err)

		snap := WaitFor(t, sub, func(s store.Snapshot) bool { return len(s) == 2 })
		require.ElementsMatch(t, []string{"Milk", "Eggs"}, Names(snap))

		require.NoError(t, st.Delete(ctx, "items", milk))
		snap = WaitFor(t, sub, func(s store.Snapshot) bool { return len(s) == 1 })
		require.Equal(t, []string{"Eggs"}, Names(snap))
		require.Equal(t, "12", snap[0].String("price"))
	})

	t.Run("delete unknown id is a no-op", func(t *testing.T) {
		st := open(t)
		require.NoError(t, st.Delete(context.Background(), "items", "does-not-exist"))
	})

	t.Run("collections are independent", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		_, err := st.Create(ctx, "other", map[string]any{"name": "Flour"})
		require.NoError(t, err)

		sub, err := st.Subscribe(ctx, "items")
		require.NoError(t, err)
		defer sub.Close()
		require.Empty(t, Next(t, sub))
	})

	t.Run("late subscriber gets current state", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		_, err := st.Create(ctx, "items", map[string]any{"name": "Rice", "price": "1"})
		require.NoError(t, err)

		sub, err := st.Subscribe(ctx, "items")
		require.NoError(t, err)
		defer sub.Close()
		require.Equal(t, []string{"Rice"}, Names(Next(t, sub)))
	})

	t.Run("closed store rejects calls", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()
		sub, err := st.Subscribe(ctx, "items")
		require.NoError(t, err)

		require.NoError(t, st.Close())
		select {
		case <-sub.Done():
		case <-time.After(Timeout):
			t.Fatal("subscription survived Close")
		}
		_, err = st.Create(ctx, "items", map[string]any{"name": "x"})
		require.ErrorIs(t, err, store.ErrClosed)
		_, err = st.Subscribe(ctx, "items")
		require.ErrorIs(t, err, store.ErrClosed)
	})
}
