package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtraction-builder/internal/domain"
)

// TestMongoRoundTrip exercises the real driver against a live deployment.
// It is skipped unless SUBTRACTION_MONGO_URI points at one.
func TestMongoRoundTrip(t *testing.T) {
	uri := os.Getenv("SUBTRACTION_MONGO_URI")
	if uri == "" {
		t.Skip("SUBTRACTION_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := ConnectMongo(ctx, uri, "subtraction_builder_test")
	require.NoError(t, err)
	defer m.Close(ctx)
	require.NoError(t, m.Ping(ctx))

	const id = "integration test host"
	require.NoError(t, m.Delete(ctx, id))

	gc := domain.Composition{A: 0.375, C: 0.125, G: 0.125, T: 0.375}
	require.NoError(t, m.UpdateStats(ctx, id, gc, 2, domain.LengthStats{Min: 4, Max: 4, Mean: 4, Median: 4}))
	require.NoError(t, m.SetReady(ctx, id))

	record, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, gc, record.GC)
	assert.Equal(t, 2, record.Count)
	assert.True(t, record.Ready)

	require.NoError(t, m.Delete(ctx, id))
	_, err = m.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
