package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Makepad-fr/pantry/internal/store"
	"github.com/Makepad-fr/pantry/internal/store/storetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestContract(t *testing.T) {
	storetest.Contract(t, func(t *testing.T) store.Store {
		s := New()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSnapshotsKeepCreationOrder(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	for _, name := range []string{"Milk", "Eggs", "Bread"} {
		_, err := s.Create(ctx, "items", map[string]any{"name": name, "price": "1"})
		require.NoError(t, err)
	}
	sub, err := s.Subscribe(ctx, "items")
	require.NoError(t, err)
	defer sub.Close()

	require.Equal(t, []string{"Milk", "Eggs", "Bread"}, storetest.Names(storetest.Next(t, sub)))
}

func TestCreateCopiesFields(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	fields := map[string]any{"name": "Milk", "price": "2"}
	_, err := s.Create(ctx, "items", fields)
	require.NoError(t, err)
	fields["name"] = "mutated"

	sub, err := s.Subscribe(ctx, "items")
	require.NoError(t, err)
	defer sub.Close()
	require.Equal(t, []string{"Milk"}, storetest.Names(storetest.Next(t, sub)))
}
