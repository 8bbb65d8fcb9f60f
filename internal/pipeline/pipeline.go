// Package pipeline runs one business card through OCR, parsing, storage and
// CRM delivery.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/card-ingest/internal/crm"
	"github.com/sells-group/card-ingest/internal/leadparse"
	"github.com/sells-group/card-ingest/internal/metrics"
	"github.com/sells-group/card-ingest/internal/model"
	"github.com/sells-group/card-ingest/internal/ocr"
	"github.com/sells-group/card-ingest/internal/store"
)

// Names of the stages a run can fail in.
const (
	StageOCR   = "ocr"
	StageStore = "store"
)

// StageError is returned when a run stops before the lead was stored.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline orchestrates a single ingestion: OCR, parse, upsert, forward.
type Pipeline struct {
	ocr       ocr.Extractor
	store     store.LeadStore
	forwarder crm.Forwarder
	label     string
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used for the source stamp and durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline. label is the OCR provider name written into
// Lead.Source. A nil forwarder disables CRM delivery.
func New(ext ocr.Extractor, st store.LeadStore, fwd crm.Forwarder, label string, opts ...Option) *Pipeline {
	p := &Pipeline{
		ocr:       ext,
		store:     st,
		forwarder: fwd,
		label:     label,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests the image at imageRef. OCR and storage failures are returned
// as *StageError. A failed CRM delivery is not an error: the result carries
// Synced=false and the delivery error instead.
func (p *Pipeline) Run(ctx context.Context, imageRef string) (*model.IngestResult, error) {
	log := zap.L().With(zap.String("image", imageRef))
	start := p.now()
	result := &model.IngestResult{Stage: model.StageStart, StartedAt: start.UTC()}

	track := func(stage string, fn func() error) error {
		t0 := p.now()
		err := fn()
		d := p.now().Sub(t0)
		metrics.ObserveStage(stage, d)
		if err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", stage),
				zap.Int64("duration_ms", d.Milliseconds()),
				zap.Error(err),
			)
			return err
		}
		log.Debug("pipeline: stage complete",
			zap.String("stage", stage),
			zap.Int64("duration_ms", d.Milliseconds()),
		)
		return nil
	}
	finish := func(outcome string) {
		result.Duration = p.now().Sub(start).Milliseconds()
		metrics.RecordIngest(outcome)
	}

	// OCR
	var text string
	if err := track(StageOCR, func() error {
		var err error
		text, err = p.ocr.ExtractText(ctx, imageRef)
		return err
	}); err != nil {
		finish("ocr_error")
		return nil, &StageError{Stage: StageOCR, Err: err}
	}
	result.OCRText = text
	result.Stage = model.StageOCRDone

	// Parse
	var lead model.Lead
	_ = track("parse", func() error {
		lead = leadparse.Parse(text)
		lead.Source = fmt.Sprintf("%s - %s", p.label, p.now().UTC().Format(time.RFC3339))
		return nil
	})
	result.Stage = model.StageParsed
	if lead.IsEmpty() {
		log.Warn("pipeline: no contact fields found in OCR text", zap.Int("text_len", len(text)))
	}

	// Store
	var saved *model.StoredLead
	if err := track(StageStore, func() error {
		var err error
		saved, err = p.store.UpsertLead(ctx, lead)
		return err
	}); err != nil {
		finish("store_error")
		return nil, &StageError{Stage: StageStore, Err: err}
	}
	result.Lead = saved
	result.Stage = model.StageStored

	if p.forwarder == nil {
		finish("skipped")
		log.Info("pipeline: lead stored, sync disabled", zap.String("lead_id", saved.ID))
		return result, nil
	}

	// Sync
	var ack *crm.Ack
	if err := track("sync", func() error {
		var err error
		ack, err = p.forwarder.Forward(ctx, saved)
		return err
	}); err != nil {
		result.Stage = model.StageSyncFailed
		result.SyncError = err.Error()
		finish("sync_failed")
		log.Warn("pipeline: lead stored but not synced",
			zap.String("lead_id", saved.ID),
			zap.String("target", p.forwarder.Target()),
			zap.Error(err),
		)
		return result, nil
	}

	result.Synced = true
	result.Stage = model.StageSynced
	if ack != nil {
		result.CRMResponse = ack.Body
	}
	finish("synced")
	log.Info("pipeline: lead ingested",
		zap.String("lead_id", saved.ID),
		zap.String("target", p.forwarder.Target()),
		zap.Int64("duration_ms", result.Duration),
	)
	return result, nil
}
