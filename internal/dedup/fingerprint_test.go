package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

func testMessage(user, text, ts string) models.Message {
	return models.Message{User: user, Text: text, TS: ts}
}

func TestFingerprintDeterministic(t *testing.T) {
	m1 := testMessage("U123", "the deploy failed", "1700000000.000100")
	m2 := testMessage("U123", "the deploy failed", "1700000000.000100")

	assert.Equal(t, Fingerprint(m1), Fingerprint(m2))
}

func TestFingerprintDiffersPerField(t *testing.T) {
	base := testMessage("U123", "the deploy failed", "1700000000.000100")

	cases := map[string]models.Message{
		"user": testMessage("U456", "the deploy failed", "1700000000.000100"),
		"text": testMessage("U123", "the deploy succeeded", "1700000000.000100"),
		"ts":   testMessage("U123", "the deploy failed", "1700000000.000200"),
	}
	for name, other := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, Fingerprint(base), Fingerprint(other))
		})
	}
}

func TestFilterNewSkipsStoredMessages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	filter := NewFilter(store, NewSeenSet(), zap.NewNop())

	msgs := []models.Message{
		testMessage("U1", "first", "1.000"),
		testMessage("U2", "second", "2.000"),
		testMessage("U3", "third", "3.000"),
	}

	// Message 2 has already been processed durably.
	require.NoError(t, store.Record(ctx, Fingerprint(msgs[1]), []byte("{}")))

	fresh := filter.FilterNew(ctx, msgs)
	require.Len(t, fresh, 2)
	assert.Equal(t, "first", fresh[0].Text)
	assert.Equal(t, "third", fresh[1].Text)

	// Survivors carry their fingerprints.
	assert.Equal(t, Fingerprint(msgs[0]), fresh[0].Fingerprint)
	assert.Equal(t, Fingerprint(msgs[2]), fresh[1].Fingerprint)
}

func TestFilterNewIdempotentAfterMarking(t *testing.T) {
	ctx := context.Background()
	filter := NewFilter(NewMemoryStore(), NewSeenSet(), zap.NewNop())

	msgs := []models.Message{
		testMessage("U1", "first", "1.000"),
		testMessage("U2", "second", "2.000"),
	}

	fresh := filter.FilterNew(ctx, msgs)
	require.Len(t, fresh, 2)

	for _, m := range fresh {
		filter.MarkProcessed(ctx, m.Fingerprint, "")
	}

	assert.Empty(t, filter.FilterNew(ctx, msgs))
}

type failingStore struct{}

func (failingStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	return false, errors.New("store unreachable")
}

func (failingStore) Record(ctx context.Context, fingerprint string, payload []byte) error {
	return errors.New("store unreachable")
}

func (failingStore) Close() error { return nil }

func TestFilterDegradesToUnseenWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	filter := NewFilter(failingStore{}, NewSeenSet(), zap.NewNop())

	msgs := []models.Message{testMessage("U1", "first", "1.000")}

	// An unreachable store must not fail the pipeline: the message passes.
	fresh := filter.FilterNew(ctx, msgs)
	require.Len(t, fresh, 1)

	// The in-process seen-set still dedups within this run even though the
	// durable write keeps failing.
	filter.MarkProcessed(ctx, fresh[0].Fingerprint, "")
	assert.Empty(t, filter.FilterNew(ctx, msgs))
}
