// Package crm delivers stored leads to a CRM target and serves the CRM
// receiver endpoint.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sells-group/card-ingest/internal/metrics"
	"github.com/sells-group/card-ingest/internal/model"
	"github.com/sells-group/card-ingest/internal/resilience"
)

// Forwarder delivers a stored lead to a CRM target.
type Forwarder interface {
	Forward(ctx context.Context, lead *model.StoredLead) (*Ack, error)
	Target() string
}

// Ack is the CRM's acknowledgement of one delivered lead.
type Ack struct {
	Target     string          `json:"target"`
	Attempts   int             `json:"attempts"`
	StatusCode int             `json:"status_code,omitempty"`
	RemoteID   string          `json:"remote_id,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// SyncError is returned when delivery failed on every attempt.
type SyncError struct {
	Target     string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("crm sync to %s failed after %d attempt(s) (status %d): %v", e.Target, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("crm sync to %s failed after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Transient reports whether the last failure looked retryable at a later time.
func (e *SyncError) Transient() bool {
	return resilience.IsTransient(e.Err)
}

// deliver runs attempt under the shared delivery policy: two attempts with
// no delay between them, retrying on any error.
func deliver(ctx context.Context, target string, attempt func(ctx context.Context) (*Ack, error)) (*Ack, error) {
	var attempts atomic.Int32
	cfg := resilience.SingleRetry()
	cfg.OnRetry = resilience.RetryLogger("crm", target)

	ack, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Ack, error) {
		attempts.Add(1)
		ack, err := attempt(ctx)
		metrics.RecordSyncAttempt(target, err)
		return ack, err
	})
	n := int(attempts.Load())
	if err != nil {
		serr := &SyncError{Target: target, Attempts: n, Err: err}
		var he *resilience.HTTPError
		if errors.As(err, &he) {
			serr.StatusCode = he.StatusCode
		}
		zap.L().Warn("crm: delivery failed",
			zap.String("target", target),
			zap.Int("attempts", n),
			zap.Int("status", serr.StatusCode),
			zap.Error(err),
		)
		return nil, serr
	}
	ack.Target = target
	ack.Attempts = n
	return ack, nil
}
