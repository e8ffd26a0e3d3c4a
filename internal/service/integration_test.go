package service_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avaskey/housebook/internal/models"
	"github.com/avaskey/housebook/internal/service"
	"github.com/avaskey/housebook/internal/store"
)

// These tests need a real database because the properties under test are
// transactional: rollback on failure, conservation across two balance
// mutations, cascade deletes. Point TEST_DB_SOURCE at a scratch database to
// run them.

func testStore(t *testing.T) (*store.Store, *service.Poster) {
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
	return s, service.NewPoster(s.Db)
}

func newSavingAccount(t *testing.T, s *store.Store, balance string) int64 {
	t.Helper()
	id, err := s.CreateSavingAccount(context.Background(), models.SavingAccountRequest{
		Name:    "test-" + uuid.NewString(),
		Balance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("create saving account: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteSavingAccount(context.Background(), id) })
	return id
}

func newCreditAccount(t *testing.T, s *store.Store, balance string) int64 {
	t.Helper()
	id, err := s.CreateCreditAccount(context.Background(), models.CreditAccountRequest{
		Name:           "test-" + uuid.NewString(),
		CurrentBalance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("create credit account: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteCreditAccount(context.Background(), id) })
	return id
}

func savingBalance(t *testing.T, s *store.Store, id int64) decimal.Decimal {
	t.Helper()
	a, err := s.GetSavingAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get saving account %d: %v", id, err)
	}
	return a.Balance
}

func creditBalance(t *testing.T, s *store.Store, id int64) decimal.Decimal {
	t.Helper()
	c, err := s.GetCreditAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get credit account %d: %v", id, err)
	}
	return c.CurrentBalance
}

func countTransactionsNamed(t *testing.T, s *store.Store, name string) int {
	t.Helper()
	var n int
	if err := s.Db.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM transactions WHERE name = $1", name).Scan(&n); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}

func int64Ref(v int64) *int64 { return &v }

func TestTransferConservation(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	src := newSavingAccount(t, s, "100.00")
	dst := newSavingAccount(t, s, "50.00")

	name := "rent-" + uuid.NewString()
	txn, _, err := p.PostTransfer(ctx, models.TransferRequest{
		Name:          name,
		Type:          "transfer",
		Amount:        decimal.RequireFromString("30.00"),
		DepositedTo:   dst,
		WithdrawnFrom: src,
		Date:          time.Now(),
	}, uuid.NewString(), uuid.NewString())
	if err != nil {
		t.Fatalf("PostTransfer: %v", err)
	}

	if got := savingBalance(t, s, src); !got.Equal(decimal.RequireFromString("70.00")) {
		t.Errorf("source balance = %s, want 70.00", got)
	}
	if got := savingBalance(t, s, dst); !got.Equal(decimal.RequireFromString("80.00")) {
		t.Errorf("destination balance = %s, want 80.00", got)
	}
	if txn.WithdrawnFrom == nil || *txn.WithdrawnFrom != src || txn.DepositedTo == nil || *txn.DepositedTo != dst {
		t.Errorf("transaction row has wrong endpoints: %+v", txn)
	}
	if n := countTransactionsNamed(t, s, name); n != 1 {
		t.Errorf("transaction rows = %d, want 1", n)
	}
}

func TestTransferRollsBackOnMissingDestination(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	src := newSavingAccount(t, s, "100.00")
	name := "ghost-" + uuid.NewString()

	_, _, err := p.PostTransfer(ctx, models.TransferRequest{
		Name:          name,
		Amount:        decimal.RequireFromString("30.00"),
		DepositedTo:   1 << 60, // no such account
		WithdrawnFrom: src,
		Date:          time.Now(),
	}, uuid.NewString(), uuid.NewString())
	if !errors.Is(err, service.ErrAccountNotFound) {
		t.Fatalf("PostTransfer error = %v, want %v", err, service.ErrAccountNotFound)
	}

	// The source debit must have been rolled back with everything else.
	if got := savingBalance(t, s, src); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("source balance after rollback = %s, want 100.00", got)
	}
	if n := countTransactionsNamed(t, s, name); n != 0 {
		t.Errorf("transaction rows after rollback = %d, want 0", n)
	}
}

func TestSpendAgainstCreditCard(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	card := newCreditAccount(t, s, "0")

	if _, _, err := p.PostSpend(ctx, models.SpendRequest{
		Name:       "groceries-" + uuid.NewString(),
		Amount:     decimal.RequireFromString("25.00"),
		CreditedTo: int64Ref(card),
		Date:       time.Now(),
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if got := creditBalance(t, s, card); !got.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("balance after charge = %s, want 25.00", got)
	}

	if _, _, err := p.PostSpend(ctx, models.SpendRequest{
		Name:       "payment-" + uuid.NewString(),
		Amount:     decimal.RequireFromString("10.00"),
		CreditedTo: int64Ref(card),
		CreditKind: models.CreditPayment,
		Date:       time.Now(),
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if got := creditBalance(t, s, card); !got.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("balance after payment = %s, want 15.00", got)
	}
}

func TestSpendAtomicityOnMissingAccount(t *testing.T) {
	s, p := testStore(t)
	name := "void-" + uuid.NewString()

	_, _, err := p.PostSpend(context.Background(), models.SpendRequest{
		Name:          name,
		Amount:        decimal.RequireFromString("5.00"),
		WithdrawnFrom: int64Ref(1 << 60),
		Date:          time.Now(),
	}, uuid.NewString(), uuid.NewString())
	if !errors.Is(err, service.ErrAccountNotFound) {
		t.Fatalf("PostSpend error = %v, want %v", err, service.ErrAccountNotFound)
	}
	if n := countTransactionsNamed(t, s, name); n != 0 {
		t.Errorf("transaction rows after failed spend = %d, want 0", n)
	}
}

func TestDepositReceipt(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	acct := newSavingAccount(t, s, "10.00")

	incomeID, err := s.CreateIncome(ctx, models.IncomeRequest{
		Name: "paycheck-" + uuid.NewString(), Amount: decimal.RequireFromString("40.00"),
		DepositedTo: acct, PaidDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}

	if _, _, err := p.PostDeposit(ctx, models.DepositRequest{
		Amount: decimal.RequireFromString("40.00"), DepositedTo: acct,
		Kind: models.KindIncome, IncomeID: &incomeID,
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("PostDeposit: %v", err)
	}

	if got := savingBalance(t, s, acct); !got.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("balance after deposit = %s, want 50.00", got)
	}
	var received bool
	if err := s.Db.QueryRow(ctx, "SELECT received FROM income WHERE id = $1", incomeID).Scan(&received); err != nil {
		t.Fatalf("read income: %v", err)
	}
	if !received {
		t.Error("income row not marked received")
	}

	recID, err := s.CreateRecurringIncome(ctx, models.RecurringIncomeRequest{
		Name: "salary-" + uuid.NewString(), Amount: decimal.RequireFromString("15.00"),
		DepositedTo: acct, ExpectedDay: 15,
	})
	if err != nil {
		t.Fatalf("create recurring income: %v", err)
	}
	if _, _, err := p.PostDeposit(ctx, models.DepositRequest{
		Amount: decimal.RequireFromString("15.00"), DepositedTo: acct,
		Kind: models.KindRecurringIncome, IncomeID: &recID,
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("PostDeposit recurring: %v", err)
	}
	if err := s.Db.QueryRow(ctx, "SELECT received FROM reccurring_income WHERE id = $1", recID).Scan(&received); err != nil {
		t.Fatalf("read recurring income: %v", err)
	}
	if !received {
		t.Error("recurring income row not marked received")
	}
	if got := savingBalance(t, s, acct); !got.Equal(decimal.RequireFromString("65.00")) {
		t.Errorf("balance after second deposit = %s, want 65.00", got)
	}
}

func TestRecurringSettlementAndCycleSweep(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	card := newCreditAccount(t, s, "0")
	expID, err := s.CreateRecurringExpense(ctx, models.RecurringExpenseRequest{
		Name: "netflix-" + uuid.NewString(), Amount: decimal.RequireFromString("9.99"),
		CreditedTo: card, RecurringDay: 12,
	})
	if err != nil {
		t.Fatalf("create recurring expense: %v", err)
	}

	name := "settle-" + uuid.NewString()
	if _, _, err := p.SettleRecurringExpense(ctx, expID, models.SettleRecurringRequest{
		Name: name, Amount: decimal.RequireFromString("9.99"), CreditedTo: card, Date: time.Now(),
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("SettleRecurringExpense: %v", err)
	}

	paidFor := func() bool {
		var paid bool
		if err := s.Db.QueryRow(ctx, "SELECT paid_for_month FROM reccurring_expenses WHERE id = $1", expID).Scan(&paid); err != nil {
			t.Fatalf("read recurring expense: %v", err)
		}
		return paid
	}

	if !paidFor() {
		t.Fatal("paid_for_month not set after settlement")
	}
	if got := creditBalance(t, s, card); !got.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("card balance after settlement = %s, want 9.99", got)
	}
	if n := countTransactionsNamed(t, s, name); n != 1 {
		t.Errorf("settlement transaction rows = %d, want 1", n)
	}

	// Disarmed rows are not touched by a reset.
	if err := p.MonthlyReset(ctx); err != nil {
		t.Fatalf("MonthlyReset: %v", err)
	}
	if !paidFor() {
		t.Error("reset without preset flipped a disarmed row")
	}

	// Preset arms, the first reset flips and disarms, the second is a no-op.
	if err := p.MonthlyPreset(ctx); err != nil {
		t.Fatalf("MonthlyPreset: %v", err)
	}
	if err := p.MonthlyReset(ctx); err != nil {
		t.Fatalf("MonthlyReset after preset: %v", err)
	}
	if paidFor() {
		t.Error("paid_for_month not cleared by armed reset")
	}

	if _, _, err := p.SettleRecurringExpense(ctx, expID, models.SettleRecurringRequest{
		Name: name + "-2", Amount: decimal.RequireFromString("9.99"), CreditedTo: card, Date: time.Now(),
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("resettle: %v", err)
	}
	if err := p.MonthlyReset(ctx); err != nil {
		t.Fatalf("second MonthlyReset: %v", err)
	}
	if !paidFor() {
		t.Error("second reset in the same cycle flipped the row again")
	}
}

func TestSettlePlannedExpenseMarksPaid(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	acct := newSavingAccount(t, s, "200.00")
	planID, err := s.CreatePlannedExpense(ctx, models.PlannedExpenseRequest{
		Name: "plumber-" + uuid.NewString(), Amount: decimal.RequireFromString("120.00"),
		WithdrawnFrom: &acct, PaidDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create planned expense: %v", err)
	}

	if _, _, err := p.SettlePlannedExpense(ctx, planID, models.SettlePlannedRequest{
		Name: "plumber", Amount: decimal.RequireFromString("120.00"),
		WithdrawnFrom: &acct, Date: time.Now(),
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("SettlePlannedExpense: %v", err)
	}

	if got := savingBalance(t, s, acct); !got.Equal(decimal.RequireFromString("80.00")) {
		t.Errorf("balance after settlement = %s, want 80.00", got)
	}
	var paid bool
	if err := s.Db.QueryRow(ctx, "SELECT paid FROM planned_expenses WHERE id = $1", planID).Scan(&paid); err != nil {
		t.Fatalf("read planned expense: %v", err)
	}
	if !paid {
		t.Error("planned expense not marked paid")
	}
}

func TestCascadeDelete(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	acct := newSavingAccount(t, s, "100.00")
	planID, err := s.CreatePlannedExpense(ctx, models.PlannedExpenseRequest{
		Name: "dependent-" + uuid.NewString(), Amount: decimal.RequireFromString("10.00"),
		WithdrawnFrom: &acct, PaidDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create planned expense: %v", err)
	}
	txnName := "cascade-" + uuid.NewString()
	if _, _, err := p.PostSpend(ctx, models.SpendRequest{
		Name: txnName, Amount: decimal.RequireFromString("1.00"),
		WithdrawnFrom: &acct, Date: time.Now(),
	}, uuid.NewString(), uuid.NewString()); err != nil {
		t.Fatalf("PostSpend: %v", err)
	}

	if err := s.DeleteSavingAccount(ctx, acct); err != nil {
		t.Fatalf("DeleteSavingAccount: %v", err)
	}

	var n int
	if err := s.Db.QueryRow(ctx, "SELECT COUNT(*) FROM planned_expenses WHERE id = $1", planID).Scan(&n); err != nil {
		t.Fatalf("count planned expenses: %v", err)
	}
	if n != 0 {
		t.Errorf("dependent planned expense survived account delete")
	}
	if n := countTransactionsNamed(t, s, txnName); n != 0 {
		t.Errorf("dependent transaction survived account delete")
	}

	// Deleting an id with no row behind it is not an error.
	if err := s.DeleteSavingAccount(ctx, acct); err != nil {
		t.Errorf("repeat delete returned error: %v", err)
	}
}

func TestIdempotentReplay(t *testing.T) {
	s, p := testStore(t)
	ctx := context.Background()

	acct := newSavingAccount(t, s, "100.00")
	key := uuid.NewString()
	hash := uuid.NewString()
	req := models.SpendRequest{
		Name: "once-" + uuid.NewString(), Amount: decimal.RequireFromString("10.00"),
		WithdrawnFrom: &acct, Date: time.Now(),
	}

	txn, existing, err := p.PostSpend(ctx, req, key, hash)
	if err != nil {
		t.Fatalf("first PostSpend: %v", err)
	}
	if existing != nil || txn == nil {
		t.Fatal("first posting should create, not replay")
	}

	txn, existing, err = p.PostSpend(ctx, req, key, hash)
	if err != nil {
		t.Fatalf("replay PostSpend: %v", err)
	}
	if existing == nil || txn != nil {
		t.Fatal("second posting with the same key should replay")
	}
	if existing.ResponseStatus != 201 || len(existing.ResponseBody) == 0 {
		t.Errorf("replay record incomplete: %+v", existing)
	}

	// The balance must have moved exactly once.
	if got := savingBalance(t, s, acct); !got.Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("balance after replay = %s, want 90.00", got)
	}

	// Same key with a different payload is a mismatch.
	if _, _, err := p.PostSpend(ctx, req, key, "other-hash"); !errors.Is(err, service.ErrIdempotencyMismatch) {
		t.Errorf("mismatched payload: error = %v, want %v", err, service.ErrIdempotencyMismatch)
	}
}
