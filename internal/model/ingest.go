package model

import (
	"encoding/json"
	"time"
)

// Stage is a state in the ingestion state machine.
type Stage string

const (
	StageStart      Stage = "start"
	StageOCRDone    Stage = "ocr_done"
	StageParsed     Stage = "parsed"
	StageStored     Stage = "stored"
	StageSynced     Stage = "synced"
	StageSyncFailed Stage = "sync_failed"
)

// IngestResult is the outcome of one ingestion request that reached the store.
// Synced is false when the CRM delivery failed after its retry; the lead is
// still durable in that case.
type IngestResult struct {
	Lead        *StoredLead     `json:"saved"`
	Synced      bool            `json:"synced"`
	SyncError   string          `json:"sync_error,omitempty"`
	Stage       Stage           `json:"stage"`
	CRMResponse json.RawMessage `json:"crm_response,omitempty"`
	OCRText     string          `json:"ocr_text,omitempty"`
	Duration    int64           `json:"duration_ms"`
	StartedAt   time.Time       `json:"started_at"`
}
