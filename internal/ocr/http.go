package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/resilience"
)

// maxProviderResponse caps how much of a provider response body is read.
const maxProviderResponse = 10 << 20

var errResponseTooLarge = errors.New("provider response too large")

// providerRetry is the retry policy for provider HTTP calls. Only transient
// failures (429, 5xx, dropped connections) are retried.
func providerRetry(provider string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("ocr", provider)
	return cfg
}

// callProvider sends the request built by newReq and returns the response
// body of a 200 reply. newReq runs once per attempt so the body can be
// replayed. Non-200 replies come back as *resilience.HTTPError.
func callProvider(ctx context.Context, client *http.Client, retry resilience.RetryConfig, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "send request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := readLimited(resp.Body)
		if err != nil {
			if errors.Is(err, errResponseTooLarge) {
				return nil, err
			}
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	})
}

// readLimited reads at most maxProviderResponse bytes and fails when the
// body is larger.
func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxProviderResponse+1))
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}
	if len(body) > maxProviderResponse {
		return nil, eris.Wrapf(errResponseTooLarge, "response exceeds %d bytes", maxProviderResponse)
	}
	return body, nil
}

// providerError classifies a failed provider call. Statuses listed in
// configStatuses are credential problems; everything else is a provider
// failure.
func providerError(provider string, err error, configStatuses ...int) *Error {
	kind := KindProvider
	var he *resilience.HTTPError
	if errors.As(err, &he) && slices.Contains(configStatuses, he.StatusCode) {
		kind = KindConfig
	}
	return newError(provider, kind, err)
}
