package crm

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxReceiveBody = 1 << 20

// Receiver is the CRM-side endpoint leads are forwarded to. It accepts any
// JSON object and acknowledges it with {"status":"ok"}.
type Receiver struct {
	// OnReceive is called with every accepted payload when set.
	OnReceive func(payload map[string]any)
}

func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReceiveBody))
	if err != nil {
		zap.L().Error("crm receiver: read body", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}

	zap.L().Info("crm receiver: payload received",
		zap.Any("id", payload["id"]),
		zap.Any("email", payload["email"]),
	)
	if rc.OnReceive != nil {
		rc.OnReceive(payload)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
