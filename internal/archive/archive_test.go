package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Entry{
		SessionID: "s1", UserText: "Hello", ReplyText: "Hi there", Outcome: "succeeded",
	}))
	require.NoError(t, store.Record(ctx, Entry{
		SessionID: "s1", UserText: "Again", ReplyText: "Too many requests.", Outcome: "failed", StatusCode: 429,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		SessionID: "other", UserText: "x", Outcome: "succeeded",
	}))

	entries, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello", entries[0].UserText)
	assert.Equal(t, "Hi there", entries[0].ReplyText)
	assert.Equal(t, 0, entries[0].StatusCode)
	assert.Equal(t, 429, entries[1].StatusCode)
	assert.WithinDuration(t, time.Now(), entries[1].CreatedAt, time.Minute)
}

func TestRecent_KeepsNewestInOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{SessionID: "s", UserText: fmt.Sprintf("m%d", i), Outcome: "succeeded"}))
	}

	entries, err := store.Recent(ctx, "s", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m3", entries[0].UserText)
	assert.Equal(t, "m4", entries[1].UserText)
}

func TestRecent_UnknownSession(t *testing.T) {
	store := openTestStore(t)
	entries, err := store.Recent(context.Background(), "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
