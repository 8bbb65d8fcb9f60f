package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/card-ingest/internal/resilience"
)

func TestDeliver_RetriesOnceImmediately(t *testing.T) {
	var calls int
	ack, err := deliver(context.Background(), "test", func(_ context.Context) (*Ack, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("first attempt fails")
		}
		return &Ack{RemoteID: "r-1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, ack.Attempts)
	assert.Equal(t, "test", ack.Target)
	assert.Equal(t, "r-1", ack.RemoteID)
}

func TestDeliver_NoThirdAttempt(t *testing.T) {
	var calls int
	_, err := deliver(context.Background(), "test", func(_ context.Context) (*Ack, error) {
		calls++
		return nil, &resilience.HTTPError{StatusCode: 502, Body: "bad gateway"}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Attempts)
	assert.Equal(t, 502, serr.StatusCode)
	assert.True(t, serr.Transient())
	assert.Contains(t, serr.Error(), "failed after 2 attempt(s) (status 502)")
}

func TestDeliver_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := deliver(ctx, "test", func(_ context.Context) (*Ack, error) {
		calls++
		cancel()
		return nil, context.Canceled
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
