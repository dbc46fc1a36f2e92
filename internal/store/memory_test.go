package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFetchMissing(t *testing.T) {
	m := NewMemory()
	raw, err := m.Fetch(context.Background(), "devices/Outlet_1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMemoryPatchMergesSiblings(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, "devices/Outlet_1", map[string]any{
		"status":  "ON",
		"control": map[string]any{"device": "on"},
	}))
	// A second patch touching only control must not disturb status.
	require.NoError(t, m.Patch(ctx, "devices/Outlet_1/control", map[string]any{
		"device": "off",
	}))

	raw, err := m.Fetch(ctx, "devices/Outlet_1")
	require.NoError(t, err)

	var doc struct {
		Status  string `json:"status"`
		Control struct {
			Device string `json:"device"`
		} `json:"control"`
	}
	found, err := Decode(raw, &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ON", doc.Status)
	assert.Equal(t, "off", doc.Control.Device)
}

func TestMemoryPatchCreatesIntermediates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Patch(ctx, "a/b/c", map[string]any{"x": 1}))
	raw, err := m.Fetch(ctx, "a/b/c/x")
	require.NoError(t, err)
	assert.JSONEq(t, "1", string(raw))
}

func TestMemorySubscribe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var got []json.RawMessage
	cancel, err := m.Subscribe("devices/Outlet_1", func(raw json.RawMessage) {
		got = append(got, raw)
	})
	require.NoError(t, err)

	require.NoError(t, m.Patch(ctx, "devices/Outlet_1/control", map[string]any{"device": "on"}))
	require.Len(t, got, 1)

	// Changes outside the subscribed subtree are not delivered.
	require.NoError(t, m.Patch(ctx, "devices/Outlet_2/control", map[string]any{"device": "on"}))
	assert.Len(t, got, 1)

	cancel()
	require.NoError(t, m.Patch(ctx, "devices/Outlet_1/control", map[string]any{"device": "off"}))
	assert.Len(t, got, 1)
}

func TestDecode(t *testing.T) {
	var v map[string]any
	found, err := Decode(nil, &v)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = Decode(json.RawMessage("null"), &v)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = Decode(json.RawMessage(`{"a":1}`), &v)
	require.NoError(t, err)
	assert.True(t, found)
}
