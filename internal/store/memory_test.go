package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetUnknownRoom(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{"v":1}`), 10))
	require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{"v":2}`), 20))

	got, err := s.Get(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	// A stale writer loses silently.
	require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{"v":0}`), 5))
	got, err = s.Get(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	// Equal markers are not stale; redelivery of the same write must not
	// error.
	require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{"v":2}`), 20))
}

func TestMemoryStore_SubscribeDeliversUpdates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ch, stop, err := s.Subscribe(ctx, "room1")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{"v":1}`), 1))

	select {
	case doc := <-ch:
		assert.Equal(t, `{"v":1}`, string(doc))
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	// Updates for other rooms stay quiet.
	require.NoError(t, s.MergeWrite(ctx, "room2", []byte(`{"v":9}`), 1))
	select {
	case doc := <-ch:
		t.Fatalf("unexpected cross-room delivery: %s", doc)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStore_StopClosesSubscription(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ch, stop, err := s.Subscribe(ctx, "room1")
	require.NoError(t, err)

	stop()
	stop() // second stop is harmless

	_, open := <-ch
	assert.False(t, open)

	// Writing after the last subscriber left must not block or panic.
	require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{}`), 1))
}

func TestMemoryStore_SlowSubscriberMissesNotDeadlocks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ch, stop, err := s.Subscribe(ctx, "room1")
	require.NoError(t, err)
	defer stop()

	// Never reading: the buffer fills and further writes are dropped for
	// this subscriber rather than blocking the writer.
	for i := 0; i < 100; i++ {
		require.NoError(t, s.MergeWrite(ctx, "room1", []byte(`{}`), int64(i)))
	}

	assert.LessOrEqual(t, len(ch), 16)

	got, err := s.Get(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}
