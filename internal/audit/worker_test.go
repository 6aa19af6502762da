package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPersistsEmittedEvents(t *testing.T) {
	pub := NewPublisher(8, nil)
	store := NewMemoryStore()
	worker := NewWorker(pub.Inbox(), nil, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	pub.Emit(ctx, Event{Type: "identity.created", RecordID: 1, SubjectID: "t1"})
	pub.Emit(ctx, Event{Type: "identity.status_changed", RecordID: 1})

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background())
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	events, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "identity.created", events[0].Type)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())

	cancel()
	<-done
}

func TestPublisherDropsWhenFull(t *testing.T) {
	pub := NewPublisher(1, nil)
	ctx := context.Background()

	// No worker draining: second emit must not block.
	pub.Emit(ctx, Event{Type: "a"})
	finished := make(chan struct{})
	go func() {
		pub.Emit(ctx, Event{Type: "b"})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on full buffer")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher
	pub.Emit(context.Background(), Event{Type: "noop"})
}
