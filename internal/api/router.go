package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every endpoint onto a mux router.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/accounts", h.CreateAccountHandler).Methods("POST")
	v1.HandleFunc("/accounts", h.ListAccountsHandler).Methods("GET")
	v1.HandleFunc("/accounts/{id}", h.UpdateAccountHandler).Methods("PUT")
	v1.HandleFunc("/accounts/{id}", h.DeleteAccountHandler).Methods("DELETE")

	v1.HandleFunc("/cards", h.CreateCardHandler).Methods("POST")
	v1.HandleFunc("/cards", h.ListCardsHandler).Methods("GET")
	v1.HandleFunc("/cards/{id}", h.UpdateCardHandler).Methods("PUT")
	v1.HandleFunc("/cards/{id}", h.DeleteCardHandler).Methods("DELETE")

	v1.HandleFunc("/spends", h.CreateSpendHandler).Methods("POST")
	v1.HandleFunc("/transfers", h.CreateTransferHandler).Methods("POST")
	v1.HandleFunc("/deposits", h.CreateDepositHandler).Methods("POST")

	v1.HandleFunc("/expenses/recurring", h.CreateRecurringExpenseHandler).Methods("POST")
	v1.HandleFunc("/expenses/recurring", h.ListRecurringExpensesHandler).Methods("GET")
	v1.HandleFunc("/expenses/recurring/{id}/settle", h.SettleRecurringExpenseHandler).Methods("POST")
	v1.HandleFunc("/expenses/recurring/{id}", h.DeleteRecurringExpenseHandler).Methods("DELETE")

	v1.HandleFunc("/expenses/planned", h.CreatePlannedExpenseHandler).Methods("POST")
	v1.HandleFunc("/expenses/planned", h.ListPlannedExpensesHandler).Methods("GET")
	v1.HandleFunc("/expenses/planned/{id}/settle", h.SettlePlannedExpenseHandler).Methods("POST")
	v1.HandleFunc("/expenses/planned/{id}", h.DeletePlannedExpenseHandler).Methods("DELETE")

	v1.HandleFunc("/income", h.CreateIncomeHandler).Methods("POST")
	v1.HandleFunc("/income", h.ListIncomeHandler).Methods("GET")
	v1.HandleFunc("/income/{id:[0-9]+}", h.DeleteIncomeHandler).Methods("DELETE")
	v1.HandleFunc("/income/recurring", h.CreateRecurringIncomeHandler).Methods("POST")
	v1.HandleFunc("/income/recurring", h.ListRecurringIncomeHandler).Methods("GET")
	v1.HandleFunc("/income/recurring/{id}", h.DeleteRecurringIncomeHandler).Methods("DELETE")

	v1.HandleFunc("/transactions", h.ListTransactionsHandler).Methods("GET")
	v1.HandleFunc("/transactions/{id}", h.DeleteTransactionHandler).Methods("DELETE")

	v1.HandleFunc("/cycle/preset", h.PresetCycleHandler).Methods("POST")
	v1.HandleFunc("/cycle/reset", h.ResetCycleHandler).Methods("POST")

	return r
}
