package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/model"
	"github.com/sells-group/card-ingest/internal/resilience"
)

// DefaultTimeout bounds each HTTP delivery attempt.
const DefaultTimeout = 5 * time.Second

const maxResponseBody = 1 << 20

// HTTPForwarder posts stored leads as JSON to {endpoint}/crm-sync.
type HTTPForwarder struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// HTTPOption configures an HTTPForwarder.
type HTTPOption func(*HTTPForwarder)

// WithHTTPClient overrides the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPForwarder) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPForwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewHTTPForwarder creates a forwarder for the CRM base URL endpoint.
func NewHTTPForwarder(endpoint string, opts ...HTTPOption) *HTTPForwarder {
	f := &HTTPForwarder{
		url:     strings.TrimRight(endpoint, "/") + "/crm-sync",
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Target implements Forwarder.
func (f *HTTPForwarder) Target() string { return "http" }

// Forward implements Forwarder.
func (f *HTTPForwarder) Forward(ctx context.Context, lead *model.StoredLead) (*Ack, error) {
	body, err := json.Marshal(lead)
	if err != nil {
		return nil, &SyncError{Target: f.Target(), Err: eris.Wrap(err, "crm: marshal lead")}
	}
	return deliver(ctx, f.Target(), func(ctx context.Context) (*Ack, error) {
		return f.post(ctx, body)
	})
}

func (f *HTTPForwarder) post(ctx context.Context, body []byte) (*Ack, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "crm: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crm: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, eris.Wrap(err, "crm: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Wrap(&resilience.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}, "crm: post lead")
	}

	ack := &Ack{StatusCode: resp.StatusCode}
	if len(respBody) > 0 && json.Valid(respBody) {
		ack.Body = respBody
	}
	return ack, nil
}
