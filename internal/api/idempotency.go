package api

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/avaskey/housebook/internal/models"
)

// readPostingRequest validates the Idempotency-Key header and returns the key,
// the body hash used for payload-mismatch detection, and the raw body. The
// last return is false when an error response has already been written.
func (h *Handler) readPostingRequest(w http.ResponseWriter, r *http.Request, method, endpoint string) (key, reqHash string, body []byte, ok bool) {
	key = r.Header.Get("Idempotency-Key")
	if key == "" {
		h.respondError(w, http.StatusBadRequest, "Missing Idempotency-Key header", method, endpoint)
		return "", "", nil, false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Stream read error", method, endpoint)
		return "", "", nil, false
	}

	hash := sha256.Sum256(body)
	return key, hex.EncodeToString(hash[:]), body, true
}

// writeReplay returns a stored idempotent response verbatim.
func (h *Handler) writeReplay(w http.ResponseWriter, rec *models.IdempotencyRecord, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(rec.ResponseStatus)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rec.ResponseStatus)
	w.Write(rec.ResponseBody)
}
