package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/card-ingest/internal/config"
	"github.com/sells-group/card-ingest/internal/crm"
	"github.com/sells-group/card-ingest/internal/model"
	"github.com/sells-group/card-ingest/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "leads.db")},
		OCR:   config.OCRConfig{Provider: "static"},
		Sync:  config.SyncConfig{Target: "none", TimeoutSecs: 5},
		Server: config.ServerConfig{
			Port: 3000,
		},
		Batch: config.BatchConfig{MaxConcurrent: 2},
	}
}

func TestInitStore(t *testing.T) {
	ctx := context.Background()

	st, err := initStore(ctx, config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = initStore(ctx, config.StoreConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported store driver: mysql")
}

func TestInitForwarder(t *testing.T) {
	c := testConfig(t)

	c.Sync.Target = "none"
	fwd, closeFn, err := initForwarder(c)
	require.NoError(t, err)
	assert.Nil(t, fwd)
	assert.Nil(t, closeFn)

	c.Sync.Target = "http"
	c.Sync.Endpoint = "http://localhost:3000"
	fwd, _, err = initForwarder(c)
	require.NoError(t, err)
	assert.IsType(t, &crm.HTTPForwarder{}, fwd)
	assert.Equal(t, "http", fwd.Target())

	c.Sync.Target = "fax"
	_, _, err = initForwarder(c)
	assert.ErrorContains(t, err, "unsupported sync target: fax")
}

func TestInitSalesforce_Errors(t *testing.T) {
	_, err := initSalesforce(config.SalesforceConfig{})
	assert.ErrorContains(t, err, "salesforce client ID is required")

	_, err = initSalesforce(config.SalesforceConfig{ClientID: "abc", KeyPath: "/nonexistent/key.pem"})
	assert.ErrorContains(t, err, "read salesforce JWT private key")
}

func TestApplyMockOCR(t *testing.T) {
	c := &config.Config{OCR: config.OCRConfig{Provider: "vision", StaticText: "x", Cache: config.OCRCacheConfig{Backend: "redis"}}}
	applyMockOCR(c, false)
	assert.Equal(t, "vision", c.OCR.Provider)

	applyMockOCR(c, true)
	assert.Equal(t, "static", c.OCR.Provider)
	assert.Empty(t, c.OCR.StaticText)
	assert.Equal(t, "none", c.OCR.Cache.Backend)
}

func TestInitIngest_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.OCR.Provider = "mistral"
	_, err := initIngest(context.Background(), c, "ingest")
	assert.ErrorContains(t, err, "mistral_api_key")
}

func TestInitIngest_StoreOnly(t *testing.T) {
	ctx := context.Background()
	env, err := initIngest(ctx, testConfig(t), "ingest")
	require.NoError(t, err)
	defer env.Close()

	result, err := env.Pipeline.Run(ctx, "demo.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.StageStored, result.Stage)
	assert.False(t, result.Synced)
	assert.Equal(t, "Olivia Wilson", result.Lead.Name)
	assert.Contains(t, result.Lead.Source, "Mock OCR - ")
}

func TestInitIngest_DefaultEndpointFollowsServePort(t *testing.T) {
	c := testConfig(t)
	c.Sync.Target = "http"
	c.Sync.Endpoint = ""

	applyServePort(c, 8080)
	env, err := initIngest(context.Background(), c, "serve")
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "http://localhost:8080", c.Sync.Endpoint)
}

func TestApplyServePort_ZeroKeepsConfig(t *testing.T) {
	c := testConfig(t)
	applyServePort(c, 0)
	assert.Equal(t, 3000, c.Server.Port)
}

func TestIngestEndToEnd(t *testing.T) {
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []map[string]any
	)
	receiver := &crm.Receiver{OnReceive: func(p map[string]any) {
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}}
	crmSrv := httptest.NewServer(newRouterWithReceiver(t, receiver))
	defer crmSrv.Close()

	c := testConfig(t)
	c.Sync.Target = "http"
	c.Sync.Endpoint = crmSrv.URL

	env, err := initIngest(ctx, c, "serve")
	require.NoError(t, err)
	defer env.Close()

	api := newRouter(env.Pipeline, env.Store, []string{"*"})

	// Same card twice: one row, two deliveries.
	var ids []string
	for i := 0; i < 2; i++ {
		rr := postJSON(t, api, "/ingest", `{"image_path":"demo.jpg"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var result model.IngestResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.True(t, result.Synced)
		assert.Equal(t, model.StageSynced, result.Stage)
		assert.JSONEq(t, `{"status":"ok"}`, string(result.CRMResponse))
		ids = append(ids, result.Lead.ID)
	}
	assert.Equal(t, ids[0], ids[1])

	leads, err := env.Store.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, ids[0], received[0]["id"])
	assert.Equal(t, leads[0].Email, received[0]["email"])
}

// newRouterWithReceiver serves only the CRM receiver route.
func newRouterWithReceiver(t *testing.T, rc *crm.Receiver) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("POST /crm-sync", rc)
	return mux
}
