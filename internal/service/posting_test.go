package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avaskey/housebook/internal/models"
)

// Precondition checks run before the posting transaction is opened, so they
// are exercised here without a database: any attempt to touch the pool would
// panic on the nil poster.

func int64Ptr(v int64) *int64 { return &v }

func TestPostSpendValidation(t *testing.T) {
	p := NewPoster(nil)
	date := time.Now()

	cases := []struct {
		name string
		req  models.SpendRequest
		want error
	}{
		{
			name: "zero amount",
			req:  models.SpendRequest{Amount: decimal.Zero, WithdrawnFrom: int64Ptr(1), Date: date},
			want: ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req:  models.SpendRequest{Amount: decimal.NewFromInt(-5), WithdrawnFrom: int64Ptr(1), Date: date},
			want: ErrInvalidAmount,
		},
		{
			name: "both sources",
			req:  models.SpendRequest{Amount: decimal.NewFromInt(5), CreditedTo: int64Ptr(1), WithdrawnFrom: int64Ptr(2), Date: date},
			want: ErrAmbiguousPaymentSource,
		},
		{
			name: "neither source",
			req:  models.SpendRequest{Amount: decimal.NewFromInt(5), Date: date},
			want: ErrMissingPaymentSource,
		},
		{
			name: "bad credit kind",
			req:  models.SpendRequest{Amount: decimal.NewFromInt(5), CreditedTo: int64Ptr(1), CreditKind: "refund", Date: date},
			want: ErrUnknownCreditKind,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := p.PostSpend(context.Background(), tc.req, "key", "hash")
			if !errors.Is(err, tc.want) {
				t.Errorf("PostSpend() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPostTransferValidation(t *testing.T) {
	p := NewPoster(nil)

	_, _, err := p.PostTransfer(context.Background(), models.TransferRequest{
		Amount: decimal.Zero, DepositedTo: 2, WithdrawnFrom: 1,
	}, "key", "hash")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: error = %v, want %v", err, ErrInvalidAmount)
	}

	_, _, err = p.PostTransfer(context.Background(), models.TransferRequest{
		Amount: decimal.NewFromInt(10), DepositedTo: 1, WithdrawnFrom: 1,
	}, "key", "hash")
	if !errors.Is(err, ErrSelfTransfer) {
		t.Errorf("self transfer: error = %v, want %v", err, ErrSelfTransfer)
	}
}

func TestSettleRecurringExpenseValidation(t *testing.T) {
	p := NewPoster(nil)

	_, _, err := p.SettleRecurringExpense(context.Background(), 1, models.SettleRecurringRequest{
		Amount: decimal.NewFromInt(-1), CreditedTo: 1,
	}, "key", "hash")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: error = %v, want %v", err, ErrInvalidAmount)
	}

	_, _, err = p.SettleRecurringExpense(context.Background(), 1, models.SettleRecurringRequest{
		Amount: decimal.NewFromInt(20),
	}, "key", "hash")
	if !errors.Is(err, ErrMissingPaymentSource) {
		t.Errorf("no card: error = %v, want %v", err, ErrMissingPaymentSource)
	}
}

func TestSettlePlannedExpenseValidation(t *testing.T) {
	p := NewPoster(nil)

	_, _, err := p.SettlePlannedExpense(context.Background(), 1, models.SettlePlannedRequest{
		Amount: decimal.NewFromInt(20), CreditedTo: int64Ptr(1), WithdrawnFrom: int64Ptr(2),
	}, "key", "hash")
	if !errors.Is(err, ErrAmbiguousPaymentSource) {
		t.Errorf("both sources: error = %v, want %v", err, ErrAmbiguousPaymentSource)
	}

	_, _, err = p.SettlePlannedExpense(context.Background(), 1, models.SettlePlannedRequest{
		Amount: decimal.NewFromInt(20),
	}, "key", "hash")
	if !errors.Is(err, ErrMissingPaymentSource) {
		t.Errorf("no source: error = %v, want %v", err, ErrMissingPaymentSource)
	}
}

func TestPostDepositValidation(t *testing.T) {
	p := NewPoster(nil)

	_, _, err := p.PostDeposit(context.Background(), models.DepositRequest{
		Amount: decimal.Zero, DepositedTo: 1,
	}, "key", "hash")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: error = %v, want %v", err, ErrInvalidAmount)
	}

	_, _, err = p.PostDeposit(context.Background(), models.DepositRequest{
		Amount: decimal.NewFromInt(10), DepositedTo: 1, Kind: "salary", IncomeID: int64Ptr(3),
	}, "key", "hash")
	if !errors.Is(err, ErrUnknownIncomeKind) {
		t.Errorf("unknown kind: error = %v, want %v", err, ErrUnknownIncomeKind)
	}
}

func TestCreditDelta(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	if !creditDelta(models.CreditCharge, amount).Equal(amount) {
		t.Error("charge should add to the amount owed")
	}
	if !creditDelta(models.CreditPayment, amount).Equal(amount.Neg()) {
		t.Error("payment should subtract from the amount owed")
	}
}
