package wizard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowInt64ValueSurvivesJSONRoundTrip(t *testing.T) {
	sess := &Session{UserID: 1, Scene: "s", Bag: map[string]any{"event_id": int64(42)}}

	data, err := json.Marshal(sess)
	require.NoError(t, err)
	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))

	f := &Flow{sess: &decoded}
	got, ok := f.Int64Value("event_id")
	require.True(t, ok)
	assert.EqualValues(t, 42, got)
}

func TestFlowPayloadAccessors(t *testing.T) {
	sess := newSession(1, "signup", map[string]any{"event_id": int64(7), "origin": "deeplink"})
	f := &Flow{sess: sess}

	id, ok := f.PayloadInt64("event_id")
	require.True(t, ok)
	assert.EqualValues(t, 7, id)

	origin, ok := f.PayloadString("origin")
	require.True(t, ok)
	assert.Equal(t, "deeplink", origin)

	_, ok = f.PayloadString("missing")
	assert.False(t, ok)
}

func TestMemoryStoreSnapshotSemantics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := &Session{UserID: 2, Scene: "form", Bag: map[string]any{"k": "v"}}
	require.NoError(t, store.Put(ctx, sess))

	// Mutating the original after Put must not leak into the stored copy.
	sess.Bag["k"] = "mutated"
	loaded, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.Bag["k"])

	// Mutating a loaded copy must not leak either.
	loaded.Bag["k"] = "mutated again"
	reloaded, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "v", reloaded.Bag["k"])

	require.NoError(t, store.Delete(ctx, 2))
	gone, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
