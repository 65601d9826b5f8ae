package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finsheet/internal/core"
	"finsheet/internal/ledger"
	"finsheet/internal/log"
	"finsheet/internal/middleware/trace"
	"finsheet/internal/sheets"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorDTO{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// writeFailure maps ledger and store errors to a status code. Remote
// details stay in the log, the client gets a fixed message.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := http.StatusInternalServerError, "failed to read ledger"
	switch {
	case errors.Is(err, core.ErrInvalidCurrency):
		status, msg = http.StatusBadRequest, "invalid currency"
	case errors.Is(err, sheets.ErrPartitionNotFound):
		status, msg = http.StatusNotFound, "sheet not found"
	case errors.Is(err, ledger.ErrInsufficientData):
		msg = "insufficient data in sheet"
	case errors.Is(err, ledger.ErrNoPartition):
		msg = "ledger has no sheets"
	}

	logger := log.FromContext(r.Context())
	if status >= 500 {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Finance request failed", err, log.ComponentHTTP, op,
			log.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
				WithRequestID(trace.GetRequestID(r.Context())))
	}
	writeError(w, r, status, msg)
}
