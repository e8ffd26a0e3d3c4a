package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avaskey/housebook/internal/models"
)

// The money-moving endpoints. All of them require an Idempotency-Key header
// and delegate to the posting service, which runs the whole operation inside
// one database transaction.

func (h *Handler) CreateSpendHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/spends"))
	defer timer.ObserveDuration()

	key, reqHash, body, ok := h.readPostingRequest(w, r, "POST", "/spends")
	if !ok {
		return
	}
	var req models.SpendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/spends")
		return
	}

	txn, existing, err := h.poster.PostSpend(r.Context(), req, key, reqHash)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/spends")
		return
	}
	if existing != nil {
		h.writeReplay(w, existing, "POST", "/spends")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/transactions/%d", txn.ID))
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/spends")
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	key, reqHash, body, ok := h.readPostingRequest(w, r, "POST", "/transfers")
	if !ok {
		return
	}
	var req models.TransferRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers")
		return
	}

	txn, existing, err := h.poster.PostTransfer(r.Context(), req, key, reqHash)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/transfers")
		return
	}
	if existing != nil {
		h.writeReplay(w, existing, "POST", "/transfers")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/transactions/%d", txn.ID))
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/transfers")
}

func (h *Handler) SettleRecurringExpenseHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/expenses/recurring/{id}/settle"))
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "POST", "/expenses/recurring/{id}/settle")
		return
	}
	key, reqHash, body, ok := h.readPostingRequest(w, r, "POST", "/expenses/recurring/{id}/settle")
	if !ok {
		return
	}
	var req models.SettleRecurringRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/expenses/recurring/{id}/settle")
		return
	}

	txn, existing, err := h.poster.SettleRecurringExpense(r.Context(), id, req, key, reqHash)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/expenses/recurring/{id}/settle")
		return
	}
	if existing != nil {
		h.writeReplay(w, existing, "POST", "/expenses/recurring/{id}/settle")
		return
	}
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/expenses/recurring/{id}/settle")
}

func (h *Handler) SettlePlannedExpenseHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/expenses/planned/{id}/settle"))
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "POST", "/expenses/planned/{id}/settle")
		return
	}
	key, reqHash, body, ok := h.readPostingRequest(w, r, "POST", "/expenses/planned/{id}/settle")
	if !ok {
		return
	}
	var req models.SettlePlannedRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/expenses/planned/{id}/settle")
		return
	}

	txn, existing, err := h.poster.SettlePlannedExpense(r.Context(), id, req, key, reqHash)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/expenses/planned/{id}/settle")
		return
	}
	if existing != nil {
		h.writeReplay(w, existing, "POST", "/expenses/planned/{id}/settle")
		return
	}
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/expenses/planned/{id}/settle")
}

func (h *Handler) CreateDepositHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/deposits"))
	defer timer.ObserveDuration()

	key, reqHash, body, ok := h.readPostingRequest(w, r, "POST", "/deposits")
	if !ok {
		return
	}
	var req models.DepositRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/deposits")
		return
	}

	result, existing, err := h.poster.PostDeposit(r.Context(), req, key, reqHash)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/deposits")
		return
	}
	if existing != nil {
		h.writeReplay(w, existing, "POST", "/deposits")
		return
	}
	h.respondJSON(w, http.StatusCreated, result, "POST", "/deposits")
}
