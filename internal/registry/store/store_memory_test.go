package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/internal/registry"
)

func TestMemoryJournalPreservesAppendOrder(t *testing.T) {
	ctx := context.Background()
	journal := NewMemory()

	events := []registry.Event{
		{Type: registry.EventIdentityCreated, ID: 1, Receipt: "0xaa", OccurredAt: time.Now().UTC()},
		{Type: registry.EventStatusChanged, ID: 1, Receipt: "0xbb", NewStatus: registry.StatusSuspended},
		{Type: registry.EventPaused, Receipt: "0xcc"},
	}
	for _, e := range events {
		require.NoError(t, journal.Append(ctx, e))
	}

	loaded, err := journal.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, registry.EventIdentityCreated, loaded[0].Type)
	assert.Equal(t, registry.EventStatusChanged, loaded[1].Type)
	assert.Equal(t, registry.EventPaused, loaded[2].Type)
	assert.Equal(t, 3, journal.Len())
}

func TestMemoryJournalLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	journal := NewMemory()
	require.NoError(t, journal.Append(ctx, registry.Event{Type: registry.EventPaused}))

	loaded, err := journal.Load(ctx)
	require.NoError(t, err)
	loaded[0].Type = registry.EventUnpaused

	again, err := journal.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.EventPaused, again[0].Type)
}
