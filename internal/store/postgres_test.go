package store_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/avaskey/housebook/internal/models"
	"github.com/avaskey/housebook/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DB_SOURCE")
	if dsn == "" {
		t.Skip("TEST_DB_SOURCE not set; skipping database integration tests")
	}
	s, err := store.NewStore(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestRecurringExpensesSortedByDayOfMonth(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cardID, err := s.CreateCreditAccount(ctx, models.CreditAccountRequest{Name: "sort-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteCreditAccount(ctx, cardID) })

	prefix := "sort-" + uuid.NewString()
	for _, day := range []int{27, 3, 14} {
		if _, err := s.CreateRecurringExpense(ctx, models.RecurringExpenseRequest{
			Name: prefix, Amount: decimal.New(1, 0), CreditedTo: cardID, RecurringDay: day,
		}); err != nil {
			t.Fatalf("create recurring expense: %v", err)
		}
	}

	expenses, err := s.ListRecurringExpenses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	lastDay := 0
	seen := 0
	for _, e := range expenses {
		if e.RecurringDay < lastDay {
			t.Fatalf("recurring expenses not sorted by day: %d after %d", e.RecurringDay, lastDay)
		}
		lastDay = e.RecurringDay
		if e.Name == prefix {
			seen++
		}
	}
	if seen != 3 {
		t.Errorf("expected 3 created rows in listing, saw %d", seen)
	}
}

func TestTransactionsSortedByDate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	txns, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var last time.Time
	for _, txn := range txns {
		if txn.TransactionDate.Before(last) {
			t.Fatalf("transactions not sorted by date: %s after %s", txn.TransactionDate, last)
		}
		last = txn.TransactionDate
	}
}

func TestUpdateMissingAccount(t *testing.T) {
	s := testStore(t)

	err := s.UpdateSavingAccount(context.Background(), 1<<60, models.SavingAccountRequest{Name: "nobody"})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("update of missing account: error = %v, want %v", err, pgx.ErrNoRows)
	}
}
