package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/avaskey/housebook/internal/models"
	"github.com/avaskey/housebook/internal/service"
	"github.com/avaskey/housebook/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housebook_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "housebook_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	store        *store.Store
	poster       *service.Poster
	sweepOnFetch bool
}

func NewHandler(s *store.Store, p *service.Poster, sweepOnFetch bool) *Handler {
	return &Handler{store: s, poster: p, sweepOnFetch: sweepOnFetch}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// --- Helpers ---

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}

// respondServiceError maps posting-service sentinels onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrAmbiguousPaymentSource),
		errors.Is(err, service.ErrMissingPaymentSource),
		errors.Is(err, service.ErrUnknownIncomeKind),
		errors.Is(err, service.ErrUnknownCreditKind),
		errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrIdempotencyMismatch):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrRecordNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, service.ErrIdempotencyConflict):
		h.respondError(w, http.StatusConflict, "Request processing in progress", method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// --- Saving accounts ---

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SavingAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts")
		return
	}
	id, err := h.store.CreateSavingAccount(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating account", "POST", "/accounts")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"account_id": id}, "POST", "/accounts")
}

// ListAccountsHandler is the app-open fetch, so it also gives the monthly
// sweep its chance to run before the balances are read.
func (h *Handler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	if h.sweepOnFetch {
		if action, err := h.poster.RunScheduledSweep(r.Context(), time.Now()); err != nil {
			log.Printf("scheduled sweep (%s) failed: %v", action, err)
		}
	}
	accounts, err := h.store.ListSavingAccounts(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing accounts", "GET", "/accounts")
		return
	}
	h.respondJSON(w, http.StatusOK, accounts, "GET", "/accounts")
}

func (h *Handler) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "PUT", "/accounts/{id}")
		return
	}
	var req models.SavingAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", "/accounts/{id}")
		return
	}
	if err := h.store.UpdateSavingAccount(r.Context(), id, req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "Account not found", "PUT", "/accounts/{id}")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "System error updating account", "PUT", "/accounts/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"account_id": id}, "PUT", "/accounts/{id}")
}

func (h *Handler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/accounts/{id}")
		return
	}
	// Cascades to dependent expense, income and transaction rows.
	if err := h.store.DeleteSavingAccount(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting account", "DELETE", "/accounts/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/accounts/{id}")
}

// --- Credit cards ---

func (h *Handler) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreditAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/cards")
		return
	}
	id, err := h.store.CreateCreditAccount(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating card", "POST", "/cards")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"card_id": id}, "POST", "/cards")
}

func (h *Handler) ListCardsHandler(w http.ResponseWriter, r *http.Request) {
	cards, err := h.store.ListCreditAccounts(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing cards", "GET", "/cards")
		return
	}
	// The displayed "true" balance is derived, never stored.
	type cardView struct {
		models.CreditAccount
		AvailableBalance string `json:"available_balance"`
	}
	views := make([]cardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, cardView{CreditAccount: c, AvailableBalance: c.AvailableBalance().String()})
	}
	h.respondJSON(w, http.StatusOK, views, "GET", "/cards")
}

func (h *Handler) UpdateCardHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "PUT", "/cards/{id}")
		return
	}
	var req models.CreditAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", "/cards/{id}")
		return
	}
	if err := h.store.UpdateCreditAccount(r.Context(), id, req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "Card not found", "PUT", "/cards/{id}")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "System error updating card", "PUT", "/cards/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"card_id": id}, "PUT", "/cards/{id}")
}

func (h *Handler) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/cards/{id}")
		return
	}
	if err := h.store.DeleteCreditAccount(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting card", "DELETE", "/cards/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/cards/{id}")
}

// --- Expense and income templates ---

func (h *Handler) CreateRecurringExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RecurringExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/expenses/recurring")
		return
	}
	id, err := h.store.CreateRecurringExpense(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating recurring expense", "POST", "/expenses/recurring")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"id": id}, "POST", "/expenses/recurring")
}

func (h *Handler) ListRecurringExpensesHandler(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.store.ListRecurringExpenses(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing recurring expenses", "GET", "/expenses/recurring")
		return
	}
	h.respondJSON(w, http.StatusOK, expenses, "GET", "/expenses/recurring")
}

func (h *Handler) DeleteRecurringExpenseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/expenses/recurring/{id}")
		return
	}
	if err := h.store.DeleteRecurringExpense(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting recurring expense", "DELETE", "/expenses/recurring/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/expenses/recurring/{id}")
}

func (h *Handler) CreatePlannedExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PlannedExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/expenses/planned")
		return
	}
	// Same XOR rule as settlement: exactly one payment source.
	if req.CreditedTo != nil && req.WithdrawnFrom != nil {
		h.respondServiceError(w, service.ErrAmbiguousPaymentSource, "POST", "/expenses/planned")
		return
	}
	if req.CreditedTo == nil && req.WithdrawnFrom == nil {
		h.respondServiceError(w, service.ErrMissingPaymentSource, "POST", "/expenses/planned")
		return
	}
	id, err := h.store.CreatePlannedExpense(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating planned expense", "POST", "/expenses/planned")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"id": id}, "POST", "/expenses/planned")
}

func (h *Handler) ListPlannedExpensesHandler(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.store.ListPlannedExpenses(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing planned expenses", "GET", "/expenses/planned")
		return
	}
	h.respondJSON(w, http.StatusOK, expenses, "GET", "/expenses/planned")
}

func (h *Handler) DeletePlannedExpenseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/expenses/planned/{id}")
		return
	}
	if err := h.store.DeletePlannedExpense(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting planned expense", "DELETE", "/expenses/planned/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/expenses/planned/{id}")
}

func (h *Handler) CreateIncomeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.IncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/income")
		return
	}
	// Creation alone does not imply receipt; no balance moves here.
	id, err := h.store.CreateIncome(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating income", "POST", "/income")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"id": id}, "POST", "/income")
}

func (h *Handler) ListIncomeHandler(w http.ResponseWriter, r *http.Request) {
	incomes, err := h.store.ListIncome(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing income", "GET", "/income")
		return
	}
	h.respondJSON(w, http.StatusOK, incomes, "GET", "/income")
}

func (h *Handler) DeleteIncomeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/income/{id}")
		return
	}
	if err := h.store.DeleteIncome(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting income", "DELETE", "/income/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/income/{id}")
}

func (h *Handler) CreateRecurringIncomeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RecurringIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/income/recurring")
		return
	}
	id, err := h.store.CreateRecurringIncome(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error creating recurring income", "POST", "/income/recurring")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"id": id}, "POST", "/income/recurring")
}

func (h *Handler) ListRecurringIncomeHandler(w http.ResponseWriter, r *http.Request) {
	incomes, err := h.store.ListRecurringIncome(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing recurring income", "GET", "/income/recurring")
		return
	}
	h.respondJSON(w, http.StatusOK, incomes, "GET", "/income/recurring")
}

func (h *Handler) DeleteRecurringIncomeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/income/recurring/{id}")
		return
	}
	if err := h.store.DeleteRecurringIncome(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting recurring income", "DELETE", "/income/recurring/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/income/recurring/{id}")
}

// --- Transactions (read/delete only; inserts go through the poster) ---

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txns, err := h.store.ListTransactions(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error listing transactions", "GET", "/transactions")
		return
	}
	h.respondJSON(w, http.StatusOK, txns, "GET", "/transactions")
}

func (h *Handler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid id", "DELETE", "/transactions/{id}")
		return
	}
	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, "System error deleting transaction", "DELETE", "/transactions/{id}")
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/transactions/{id}")
}

// --- Cycle admin endpoints ---

func (h *Handler) PresetCycleHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.poster.MonthlyPreset(r.Context()); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Preset failed", "POST", "/cycle/preset")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "preset"}, "POST", "/cycle/preset")
}

func (h *Handler) ResetCycleHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.poster.MonthlyReset(r.Context()); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Reset failed", "POST", "/cycle/reset")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"}, "POST", "/cycle/reset")
}
