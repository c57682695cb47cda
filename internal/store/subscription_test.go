package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func doc(id, name string) Document {
	return Document{ID: id, Fields: map[string]any{"name": name}}
}

func TestSubscriptionLatestWins(t *testing.T) {
	var h Hub
	sub := h.Add(context.Background(), "items")
	defer sub.Close()

	h.Publish("items", Snapshot{doc("1", "Milk")})
	h.Publish("items", Snapshot{doc("1", "Milk"), doc("2", "Eggs")})

	got := <-sub.Snapshots()
	require.Len(t, got, 2)
	assert.Equal(t, "Eggs", got[1].String("name"))

	select {
	case extra := <-sub.Snapshots():
		t.Fatalf("unexpected stale snapshot: %v", extra)
	default:
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	var h Hub
	sub := h.Add(context.Background(), "items")
	require.True(t, h.Active("items"))

	sub.Close()
	sub.Close()

	assert.False(t, h.Active("items"))
	assert.False(t, sub.Publish(Snapshot{}))
	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	var h Hub
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Add(ctx, "items")
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
	assert.Empty(t, h.Collections())
}

func TestHubPublishIsolatesSubscribers(t *testing.T) {
	var h Hub
	a := h.Add(context.Background(), "items")
	b := h.Add(context.Background(), "items")
	other := h.Add(context.Background(), "other")
	defer h.CloseAll()

	h.Publish("items", Snapshot{doc("1", "Milk")})

	sa := <-a.Snapshots()
	sb := <-b.Snapshots()
	sa[0].Fields["name"] = "changed"
	assert.Equal(t, "Milk", sb[0].String("name"), "subscribers must not share field maps")

	select {
	case <-other.Snapshots():
		t.Fatal("other collection received a snapshot")
	default:
	}
}

func TestDocumentString(t *testing.T) {
	d := Document{ID: "x", Fields: map[string]any{
		"name":  "Milk",
		"price": float64(12),
		"nil":   nil,
	}}
	assert.Equal(t, "Milk", d.String("name"))
	assert.Equal(t, "12", d.String("price"))
	assert.Equal(t, "", d.String("nil"))
	assert.Equal(t, "", d.String("missing"))
}
