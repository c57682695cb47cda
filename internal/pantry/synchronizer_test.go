package pantry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/store"
	"github.com/Makepad-fr/pantry/internal/store/memstore"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose stats worker starts in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// addAsync runs AddItem off the test goroutine so the fake can be driven
// from here.
func addAsync(s *Synchronizer, d *model.Draft) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.AddItem(context.Background(), d) }()
	return errc
}

func TestAddItemWritesTrimmedNameAndClearsDraft(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)

	d := &model.Draft{Name: "  Milk  ", Price: "2"}
	errc := addAsync(s, d)
	fs.expectCreate(map[string]any{"name": "Milk", "price": "2"}, "id-1", nil)

	require.NoError(t, <-errc)
	assert.Equal(t, model.Draft{}, *d)
	assert.Empty(t, s.Items(), "no optimistic local update")
}

func TestAddItemClearsDraftEvenWhenCreateFails(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)
	boom := errors.New("network down")

	d := &model.Draft{Name: "Eggs", Price: "12"}
	errc := addAsync(s, d)
	fs.expectCreate(map[string]any{"name": "Eggs", "price": "12"}, "", boom)

	require.ErrorIs(t, <-errc, boom)
	assert.Equal(t, model.Draft{}, *d)
}

func TestAddItemIgnoresIncompleteDrafts(t *testing.T) {
	cases := map[string]model.Draft{
		"empty":       {},
		"blank name":  {Name: "   ", Price: "3"},
		"empty price": {Name: "Milk", Price: ""},
		"tab name":    {Name: "\t", Price: ""},
	}
	for name, draft := range cases {
		t.Run(name, func(t *testing.T) {
			fs := newFakeStore(t)
			fs.expectNoCalls()
			s := NewSynchronizer(fs)

			d := draft
			require.NoError(t, s.AddItem(context.Background(), &d))
			assert.Equal(t, draft, d, "draft must be left as typed")
		})
	}
}

func TestAddItemNilDraft(t *testing.T) {
	fs := newFakeStore(t)
	fs.expectNoCalls()
	require.NoError(t, NewSynchronizer(fs).AddItem(context.Background(), nil))
}

func TestDeleteItemIssuesOneDelete(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs, WithCollection("pantry"))

	errc := make(chan error, 1)
	go func() { errc <- s.DeleteItem(context.Background(), "not-local") }()
	fs.expectDelete("not-local", nil)
	require.NoError(t, <-errc)

	boom := errors.New("denied")
	go func() { errc <- s.DeleteItem(context.Background(), "x") }()
	fs.expectDelete("x", boom)
	require.ErrorIs(t, <-errc, boom)
}

func TestWritesGoToConfiguredCollection(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	s := NewSynchronizer(st, WithCollection("pantry"))

	require.NoError(t, s.AddItem(context.Background(), &model.Draft{Name: "Salt", Price: "1"}))

	sub, err := st.Subscribe(context.Background(), "pantry")
	require.NoError(t, err)
	defer sub.Close()
	snap := <-sub.Snapshots()
	require.Len(t, snap, 1)
	assert.Equal(t, "Salt", snap[0].String("name"))
}

func TestApplyProjectsSnapshot(t *testing.T) {
	s := NewSynchronizer(newFakeStore(t))
	snap := store.Snapshot{
		{ID: "b", Fields: map[string]any{"name": "Eggs", "price": float64(12)}},
		{ID: "a", Fields: map[string]any{"name": "Milk", "price": "2"}},
	}
	want := []model.Item{
		{ID: "b", Name: "Eggs", Price: "12"},
		{ID: "a", Name: "Milk", Price: "2"},
	}

	first := s.Apply(snap)
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
	}
	second := s.Apply(snap)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Apply not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(want, s.Items()); diff != "" {
		t.Fatalf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEmptySnapshotClearsList(t *testing.T) {
	s := NewSynchronizer(newFakeStore(t))
	s.Apply(store.Snapshot{{ID: "a", Fields: map[string]any{"name": "Milk"}}})
	s.Apply(store.Snapshot{})
	assert.Empty(t, s.Items())
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewSynchronizer(newFakeStore(t))
	s.Apply(store.Snapshot{{ID: "a", Fields: map[string]any{"name": "Milk"}}})

	items := s.Items()
	items[0].Name = "changed"
	assert.Equal(t, "Milk", s.Items()[0].Name)
}

func waitItems(t *testing.T, s *Synchronizer, ok func([]model.Item) bool) []model.Item {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case items := <-s.Updates():
			if ok(items) {
				return items
			}
		case <-deadline:
			t.Fatalf("timed out; last items: %v", s.Items())
		}
	}
}

func names(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestMilkEggsScenario(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	s := NewSynchronizer(st)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx))
	defer s.Unsubscribe()
	<-s.Ready()

	require.NoError(t, s.AddItem(ctx, &model.Draft{Name: "Milk", Price: "2"}))
	require.NoError(t, s.AddItem(ctx, &model.Draft{Name: "Eggs", Price: "12"}))

	items := waitItems(t, s, func(items []model.Item) bool { return len(items) == 2 })
	assert.ElementsMatch(t, []string{"Milk", "Eggs"}, names(items))

	var milkID string
	for _, it := range items {
		if it.Name == "Milk" {
			milkID = it.ID
		}
	}
	require.NotEmpty(t, milkID)

	require.NoError(t, s.DeleteItem(ctx, milkID))
	items = waitItems(t, s, func(items []model.Item) bool { return len(items) == 1 })
	assert.Equal(t, []string{"Eggs"}, names(items))
	assert.Equal(t, "12", items[0].Price)
}

func TestSubscribeAppliesPushedSnapshots(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)

	require.NoError(t, s.Subscribe(context.Background()))
	require.NoError(t, s.Subscribe(context.Background()), "second Subscribe is a no-op")
	defer s.Unsubscribe()

	fs.push(DefaultCollection, store.Snapshot{{ID: "1", Fields: map[string]any{"name": "Tea", "price": "1"}}})
	items := waitItems(t, s, func(items []model.Item) bool { return len(items) == 1 })
	assert.Equal(t, model.Item{ID: "1", Name: "Tea", Price: "1"}, items[0])

	select {
	case <-s.Ready():
	default:
		t.Fatal("Ready not closed after first snapshot")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)

	s.Unsubscribe() // before Subscribe

	require.NoError(t, s.Subscribe(context.Background()))
	s.Unsubscribe()
	s.Unsubscribe()

	fs.push(DefaultCollection, store.Snapshot{{ID: "1", Fields: map[string]any{"name": "Tea"}}})
	assert.Empty(t, s.Items(), "no snapshots after Unsubscribe")
}

func TestUnsubscribeAfterStoreClosed(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)
	require.NoError(t, s.Subscribe(context.Background()))

	require.NoError(t, fs.Close())
	s.Unsubscribe()
}

func TestSubscribeError(t *testing.T) {
	fs := newFakeStore(t)
	fs.subscribeErr = store.ErrClosed
	s := NewSynchronizer(fs)

	require.ErrorIs(t, s.Subscribe(context.Background()), store.ErrClosed)
	s.Unsubscribe()
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Subscribe(ctx))
	cancel()
	s.Unsubscribe()
}

func subscribed(s *Synchronizer) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.sub != nil
}

func TestResubscribeAfterContextEnds(t *testing.T) {
	fs := newFakeStore(t)
	s := NewSynchronizer(fs)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Subscribe(ctx))
	cancel()
	require.Eventually(t, func() bool { return !subscribed(s) }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Subscribe(context.Background()))
	defer s.Unsubscribe()
	require.True(t, subscribed(s))

	fs.push(DefaultCollection, store.Snapshot{{ID: "1", Fields: map[string]any{"name": "Tea", "price": "1"}}})
	items := waitItems(t, s, func(items []model.Item) bool { return len(items) == 1 })
	assert.Equal(t, "Tea", items[0].Name)
}

func TestValidDraft(t *testing.T) {
	assert.True(t, ValidDraft(model.Draft{Name: "Milk", Price: "2"}))
	assert.True(t, ValidDraft(model.Draft{Name: " Milk ", Price: " "}), "price is not trimmed")
	assert.False(t, ValidDraft(model.Draft{Name: " ", Price: "2"}))
	assert.False(t, ValidDraft(model.Draft{Name: "Milk"}))
}

func TestStateReplaceSnapshot(t *testing.T) {
	var st State
	items := []model.Item{{ID: "1", Name: "Milk", Price: "2"}}
	st.ReplaceSnapshot(items)
	items[0].Name = "changed"

	assert.Equal(t, "Milk", st.Items[0].Name)
	assert.False(t, st.HasRecipe())
	st.Recipe = "- boil milk"
	assert.True(t, st.HasRecipe())
}
