package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Makepad-fr/pantry/internal/store"
	"github.com/Makepad-fr/pantry/internal/store/storetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pantry.json"), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Contract(t, func(t *testing.T) store.Store { return openTemp(t) })
}

func TestFileIsHumanReadable(t *testing.T) {
	s := openTemp(t)
	id, err := s.Create(context.Background(), "items", map[string]any{"name": "Milk", "price": "2"})
	require.NoError(t, err)

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var data fileData
	require.NoError(t, json.Unmarshal(b, &data))
	require.Len(t, data.Collections["items"], 1)
	assert.Equal(t, id, data.Collections["items"][0].ID)
	assert.Equal(t, "Milk", data.Collections["items"][0].String("name"))
}

func TestCorruptFileIsReported(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.Subscribe(context.Background(), "items")
	require.Error(t, err)
}

func TestExternalEditsArePublished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pantry.json")
	ctx := context.Background()

	reader, err := Open(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer reader.Close()
	writer, err := Open(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer writer.Close()

	sub, err := reader.Subscribe(ctx, "items")
	require.NoError(t, err)
	defer sub.Close()
	require.Empty(t, storetest.Next(t, sub))

	_, err = writer.Create(ctx, "items", map[string]any{"name": "Tea", "price": "1"})
	require.NoError(t, err)
	snap := storetest.WaitFor(t, sub, func(s store.Snapshot) bool { return len(s) == 1 })
	assert.Equal(t, []string{"Tea"}, storetest.Names(snap))
}
