package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/card-ingest/internal/model"
)

func testLead() *model.StoredLead {
	return &model.StoredLead{
		ID: "lead-1",
		Lead: model.Lead{
			Name:  "Olivia Wilson",
			Email: "hello@reallygreatsite.com",
			Phone: "+1234567890",
		},
		CreatedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestHTTPForwarder_Success(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crm-sync", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	}))
	defer ts.Close()

	f := NewHTTPForwarder(ts.URL + "/")
	ack, err := f.Forward(context.Background(), testLead())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ack.StatusCode)
	assert.Equal(t, 1, ack.Attempts)
	assert.Equal(t, "http", ack.Target)
	assert.JSONEq(t, `{"status":"ok"}`, string(ack.Body))

	assert.Equal(t, "lead-1", got["id"])
	assert.Equal(t, "hello@reallygreatsite.com", got["email"])
	assert.Equal(t, "+1234567890", got["phone"])
	assert.NotContains(t, got, "company")
}

func TestHTTPForwarder_FailThenSucceed(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	}))
	defer ts.Close()

	ack, err := NewHTTPForwarder(ts.URL).Forward(context.Background(), testLead())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, ack.Attempts)
}

func TestHTTPForwarder_FailsTwice(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid payload"}`)) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := NewHTTPForwarder(ts.URL).Forward(context.Background(), testLead())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Attempts)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.False(t, serr.Transient())
}

func TestHTTPForwarder_PerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	start := time.Now()
	_, err := NewHTTPForwarder(ts.URL, WithTimeout(50*time.Millisecond)).Forward(context.Background(), testLead())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Zero(t, serr.StatusCode)
	assert.True(t, serr.Transient())
}

func TestHTTPForwarder_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewHTTPForwarder(url).Forward(context.Background(), testLead())
	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Attempts)
}

func TestHTTPForwarder_NonJSONResponseBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("accepted")) //nolint:errcheck
	}))
	defer ts.Close()

	ack, err := NewHTTPForwarder(ts.URL).Forward(context.Background(), testLead())
	require.NoError(t, err)
	assert.Nil(t, ack.Body)
}
