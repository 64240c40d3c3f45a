package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreHonorsRetentionWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Record(ctx, "abc", []byte("{}")))

	exists, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, exists)

	// Just inside the window.
	now = now.Add(RetentionWindow - time.Minute)
	exists, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, exists)

	// Past expiry the record is treated as absent.
	now = now.Add(2 * time.Minute)
	exists, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreUnknownFingerprint(t *testing.T) {
	exists, err := NewMemoryStore().Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()

	assert.False(t, s.Contains("ev-1"))
	s.Add("ev-1")
	assert.True(t, s.Contains("ev-1"))
	assert.False(t, s.Contains("ev-2"))
}
