package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingAccount is a cash account. Balance is denormalized: it reflects the
// sum of every posting that referenced the account, enforced only by the
// posting service's mutation discipline.
type SavingAccount struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
	Threshold     decimal.Decimal `json:"threshold"`
	Modifications decimal.Decimal `json:"modifications"`
	ImageURI      *string         `json:"image_uri,omitempty"`
}

// CreditAccount is a credit card. CurrentBalance is the amount owed.
type CreditAccount struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	PendingCharges decimal.Decimal `json:"pending_charges"`
	ImageURI       *string         `json:"image_uri,omitempty"`
}

// AvailableBalance is the derived "true" balance shown to users. It is never
// stored.
func (c CreditAccount) AvailableBalance() decimal.Decimal {
	return c.CurrentBalance.Sub(c.PendingCharges)
}

// RecurringExpense is a template that settles once per monthly cycle on a
// fixed day of month. Column names keep the store's historical "reccurring"
// spelling for data compatibility.
type RecurringExpense struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	CreditedTo   int64           `json:"credited_to"`
	RecurringDay int             `json:"reccurring_date"`
	PaidForMonth bool            `json:"paid_for_month"`
	MonthlyReset bool            `json:"monthly_reset"`
}

// PlannedExpense is a one-time future expense paid from exactly one of a
// credit or a saving account.
type PlannedExpense struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CreditedTo    *int64          `json:"credited_to,omitempty"`
	WithdrawnFrom *int64          `json:"withdrawn_from,omitempty"`
	Paid          bool            `json:"paid"`
	PaidDate      time.Time       `json:"paid_date"`
}

// RecurringIncome is the income counterpart of RecurringExpense.
type RecurringIncome struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	DepositedTo  int64           `json:"deposited_to"`
	Received     bool            `json:"received"`
	ExpectedDay  int             `json:"expected_date"`
	MonthlyReset bool            `json:"monthly_reset"`
}

// Income is a one-time expected income record. Creating one does not move
// money; receipt is posted separately as a deposit.
type Income struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	DepositedTo int64           `json:"deposited_to"`
	Received    bool            `json:"received"`
	PaidDate    time.Time       `json:"paid_date"`
}

// Transaction is the append-only activity record. Exactly one of CreditedTo /
// WithdrawnFrom is set for spends, and both WithdrawnFrom and DepositedTo for
// transfers. Rows are inserted, never updated.
type Transaction struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	CreditedTo      *int64          `json:"credited_to,omitempty"`
	WithdrawnFrom   *int64          `json:"withdrawn_from,omitempty"`
	DepositedTo     *int64          `json:"deposited_to,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// CreditEntryKind says whether a posting against a credit account is a charge
// (increases the amount owed) or a payment (decreases it). The caller decides;
// it is never inferred from the free-text transaction type.
type CreditEntryKind string

const (
	CreditCharge  CreditEntryKind = "charge"
	CreditPayment CreditEntryKind = "payment"
)

func (k CreditEntryKind) Valid() bool {
	return k == CreditCharge || k == CreditPayment
}

// IncomeKind discriminates which income table a deposit settles.
// The stored value "reccurring_income" keeps the historical spelling.
type IncomeKind string

const (
	KindIncome          IncomeKind = "income"
	KindRecurringIncome IncomeKind = "reccurring_income"
)

// SpendRequest is the payload for a one-time spend.
type SpendRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CreditedTo    *int64          `json:"credited_to,omitempty"`
	WithdrawnFrom *int64          `json:"withdrawn_from,omitempty"`
	CreditKind    CreditEntryKind `json:"credit_kind,omitempty"`
	Date          time.Time       `json:"date"`
}

// TransferRequest moves funds between two saving accounts.
type TransferRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	DepositedTo   int64           `json:"deposited_to"`
	WithdrawnFrom int64           `json:"withdrawn_from"`
	Date          time.Time       `json:"date"`
}

// SettleRecurringRequest pays a recurring expense for the current cycle.
// When UpdateTemplate is set the stored template fields are rewritten in the
// same transaction (the "edit and settle" path).
type SettleRecurringRequest struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	CreditedTo     int64           `json:"credited_to"`
	Date           time.Time       `json:"date"`
	UpdateTemplate bool            `json:"update_template,omitempty"`
	RecurringDay   int             `json:"reccurring_date,omitempty"`
}

// SettlePlannedRequest pays a planned expense.
type SettlePlannedRequest struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	CreditedTo     *int64          `json:"credited_to,omitempty"`
	WithdrawnFrom  *int64          `json:"withdrawn_from,omitempty"`
	CreditKind     CreditEntryKind `json:"credit_kind,omitempty"`
	Date           time.Time       `json:"date"`
	UpdateTemplate bool            `json:"update_template,omitempty"`
}

// IncomeRequest creates a one-time income record.
type IncomeRequest struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	DepositedTo int64           `json:"deposited_to"`
	Received    bool            `json:"received"`
	PaidDate    time.Time       `json:"paid_date"`
}

// RecurringIncomeRequest creates a recurring income template.
type RecurringIncomeRequest struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	DepositedTo int64           `json:"deposited_to"`
	Received    bool            `json:"received"`
	ExpectedDay int             `json:"expected_date"`
}

// DepositRequest marks income as received and credits the saving account.
// IncomeID is optional: a deposit may be posted without settling any stored
// income row.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	DepositedTo int64           `json:"deposited_to"`
	Kind        IncomeKind      `json:"income_kind,omitempty"`
	IncomeID    *int64          `json:"income_id,omitempty"`
}

// DepositResult is the canonical response for a posted deposit.
type DepositResult struct {
	DepositedTo int64           `json:"deposited_to"`
	Amount      decimal.Decimal `json:"amount"`
	IncomeID    *int64          `json:"income_id,omitempty"`
	Kind        IncomeKind      `json:"income_kind,omitempty"`
}

// SavingAccountRequest creates or updates a saving account.
type SavingAccountRequest struct {
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
	Threshold     decimal.Decimal `json:"threshold"`
	Modifications decimal.Decimal `json:"modifications"`
	ImageURI      *string         `json:"image_uri,omitempty"`
}

// CreditAccountRequest creates or updates a credit card.
type CreditAccountRequest struct {
	Name           string          `json:"name"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	PendingCharges decimal.Decimal `json:"pending_charges"`
	ImageURI       *string         `json:"image_uri,omitempty"`
}

// RecurringExpenseRequest creates a recurring expense template.
type RecurringExpenseRequest struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	CreditedTo   int64           `json:"credited_to"`
	RecurringDay int             `json:"reccurring_date"`
}

// PlannedExpenseRequest creates a planned expense.
type PlannedExpenseRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CreditedTo    *int64          `json:"credited_to,omitempty"`
	WithdrawnFrom *int64          `json:"withdrawn_from,omitempty"`
	PaidDate      time.Time       `json:"paid_date"`
}

// IdempotencyRecord holds the state of a request key.
type IdempotencyRecord struct {
	Key            string
	RequestHash    string
	Status         string
	ResponseBody   []byte
	ResponseStatus int
}
