package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avaskey/housebook/internal/models"
)

var ErrUnknownCreditKind = errors.New("unknown credit entry kind")

// Poster owns every operation that moves money. Each posting runs inside one
// database transaction: the activity row, the balance mutation and any
// settlement-flag update land together or not at all.
type Poster struct {
	db *pgxpool.Pool
}

func NewPoster(db *pgxpool.Pool) *Poster {
	return &Poster{db: db}
}

// --- Balance mutation primitives ---

// Balances are adjusted with a single relative UPDATE so the new value is
// computed store-side in one statement. A miss on the id is a lookup failure
// that aborts the enclosing transaction.

func adjustSavingBalance(ctx context.Context, tx pgx.Tx, id int64, delta decimal.Decimal) error {
	ct, err := tx.Exec(ctx, "UPDATE saving_accounts SET balance = balance + $1 WHERE id = $2", delta, id)
	if err != nil {
		return fmt.Errorf("saving balance update failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func adjustCreditBalance(ctx context.Context, tx pgx.Tx, id int64, delta decimal.Decimal) error {
	ct, err := tx.Exec(ctx, "UPDATE credit_accounts SET current_balance = current_balance + $1 WHERE id = $2", delta, id)
	if err != nil {
		return fmt.Errorf("credit balance update failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// creditDelta maps an entry kind to the signed change applied to the amount
// owed on a card: charges add, payments subtract.
func creditDelta(kind models.CreditEntryKind, amount decimal.Decimal) decimal.Decimal {
	if kind == models.CreditPayment {
		return amount.Neg()
	}
	return amount
}

// --- Idempotency protocol (check / reserve / finalize, all inside the tx) ---

func checkIdempotency(ctx context.Context, tx pgx.Tx, key, reqHash string) (*models.IdempotencyRecord, error) {
	var storedStatus int
	var storedBody []byte
	var storedHash string
	err := tx.QueryRow(ctx,
		"SELECT response_status, response_body, request_hash FROM idempotency_keys WHERE key = $1",
		key,
	).Scan(&storedStatus, &storedBody, &storedHash)

	if err == nil {
		if storedHash != reqHash {
			return nil, ErrIdempotencyMismatch
		}
		return &models.IdempotencyRecord{
			Key:            key,
			Status:         "completed",
			ResponseBody:   storedBody,
			ResponseStatus: storedStatus,
		}, nil
	} else if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("idempotency query failed: %w", err)
	}
	return nil, nil
}

func reserveIdempotencyKey(ctx context.Context, tx pgx.Tx, key, reqHash string) error {
	_, err := tx.Exec(ctx,
		"INSERT INTO idempotency_keys (key, request_hash, status) VALUES ($1, $2, 'in_progress')",
		key, reqHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("key reservation failed: %w", err)
	}
	return nil
}

func finalizeIdempotencyKey(ctx context.Context, tx pgx.Tx, key string, status int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"UPDATE idempotency_keys SET status = 'completed', response_status = $1, response_body = $2 WHERE key = $3",
		status, body, key,
	)
	if err != nil {
		return fmt.Errorf("idempotency update failed: %w", err)
	}
	return nil
}

// --- Posting operations ---

// PostSpend records a one-time spend: one transaction row plus one balance
// mutation on the single named payment source.
func (p *Poster) PostSpend(ctx context.Context, req models.SpendRequest, idempotencyKey, reqHash string) (*models.Transaction, *models.IdempotencyRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if req.CreditedTo != nil && req.WithdrawnFrom != nil {
		return nil, nil, ErrAmbiguousPaymentSource
	}
	if req.CreditedTo == nil && req.WithdrawnFrom == nil {
		return nil, nil, ErrMissingPaymentSource
	}
	kind := req.CreditKind
	if kind == "" {
		kind = models.CreditCharge
	}
	if !kind.Valid() {
		return nil, nil, ErrUnknownCreditKind
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := checkIdempotency(ctx, tx, idempotencyKey, reqHash)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}
	if err := reserveIdempotencyKey(ctx, tx, idempotencyKey, reqHash); err != nil {
		return nil, nil, err
	}

	// Mutate the balance first: it doubles as the account-existence check,
	// so a bad id aborts before the activity row is written.
	if req.WithdrawnFrom != nil {
		err = adjustSavingBalance(ctx, tx, *req.WithdrawnFrom, req.Amount.Neg())
	} else {
		err = adjustCreditBalance(ctx, tx, *req.CreditedTo, creditDelta(kind, req.Amount))
	}
	if err != nil {
		return nil, nil, err
	}

	txn := &models.Transaction{
		Name:            req.Name,
		Type:            req.Type,
		Amount:          req.Amount,
		CreditedTo:      req.CreditedTo,
		WithdrawnFrom:   req.WithdrawnFrom,
		TransactionDate: req.Date,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (name, type, amount, credited_to, withdrawn_from, transaction_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Type, req.Amount, req.CreditedTo, req.WithdrawnFrom, req.Date,
	).Scan(&txn.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	if err := finalizeIdempotencyKey(ctx, tx, idempotencyKey, http.StatusCreated, txn); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return txn, nil, nil
}

// PostTransfer moves funds between two saving accounts. Both balance
// mutations ride the same transaction, so a destination miss rolls the
// source debit back too.
func (p *Poster) PostTransfer(ctx context.Context, req models.TransferRequest, idempotencyKey, reqHash string) (*models.Transaction, *models.IdempotencyRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if req.DepositedTo == req.WithdrawnFrom {
		return nil, nil, ErrSelfTransfer
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := checkIdempotency(ctx, tx, idempotencyKey, reqHash)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}
	if err := reserveIdempotencyKey(ctx, tx, idempotencyKey, reqHash); err != nil {
		return nil, nil, err
	}

	// Touch the two rows in id order so concurrent opposite-direction
	// transfers cannot deadlock. A miss on either side rolls the whole
	// posting back, debit included.
	first, firstDelta := req.WithdrawnFrom, req.Amount.Neg()
	second, secondDelta := req.DepositedTo, req.Amount
	if first > second {
		first, second = second, first
		firstDelta, secondDelta = secondDelta, firstDelta
	}
	if err := adjustSavingBalance(ctx, tx, first, firstDelta); err != nil {
		return nil, nil, err
	}
	if err := adjustSavingBalance(ctx, tx, second, secondDelta); err != nil {
		return nil, nil, err
	}

	txn := &models.Transaction{
		Name:            req.Name,
		Type:            req.Type,
		Amount:          req.Amount,
		WithdrawnFrom:   &req.WithdrawnFrom,
		DepositedTo:     &req.DepositedTo,
		TransactionDate: req.Date,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (name, type, amount, deposited_to, withdrawn_from, transaction_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Type, req.Amount, req.DepositedTo, req.WithdrawnFrom, req.Date,
	).Scan(&txn.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	if err := finalizeIdempotencyKey(ctx, tx, idempotencyKey, http.StatusCreated, txn); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return txn, nil, nil
}

// SettleRecurringExpense pays a recurring expense for the current cycle:
// activity row, charge on the card, paid_for_month flag. With UpdateTemplate
// set, the stored template is rewritten in the same transaction.
func (p *Poster) SettleRecurringExpense(ctx context.Context, id int64, req models.SettleRecurringRequest, idempotencyKey, reqHash string) (*models.Transaction, *models.IdempotencyRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if req.CreditedTo == 0 {
		return nil, nil, ErrMissingPaymentSource
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := checkIdempotency(ctx, tx, idempotencyKey, reqHash)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}
	if err := reserveIdempotencyKey(ctx, tx, idempotencyKey, reqHash); err != nil {
		return nil, nil, err
	}

	// Settling a recurring expense is always a charge. The mutation also
	// checks the card exists before the activity row is written.
	if err := adjustCreditBalance(ctx, tx, req.CreditedTo, req.Amount); err != nil {
		return nil, nil, err
	}

	txn := &models.Transaction{
		Name:            req.Name,
		Type:            req.Type,
		Amount:          req.Amount,
		CreditedTo:      &req.CreditedTo,
		TransactionDate: req.Date,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (name, type, amount, credited_to, transaction_date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.Name, req.Type, req.Amount, req.CreditedTo, req.Date,
	).Scan(&txn.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	var ct pgconn.CommandTag
	if req.UpdateTemplate {
		ct, err = tx.Exec(ctx,
			`UPDATE reccurring_expenses
			 SET name = $1, type = $2, amount = $3, credited_to = $4, reccurring_date = $5, paid_for_month = true
			 WHERE id = $6`,
			req.Name, req.Type, req.Amount, req.CreditedTo, req.RecurringDay, id)
	} else {
		ct, err = tx.Exec(ctx, "UPDATE reccurring_expenses SET paid_for_month = true WHERE id = $1", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("recurring expense update failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, nil, ErrRecordNotFound
	}

	if err := finalizeIdempotencyKey(ctx, tx, idempotencyKey, http.StatusCreated, txn); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return txn, nil, nil
}

// SettlePlannedExpense pays a one-time planned expense from exactly one of a
// credit or a saving account and marks the stored row paid.
func (p *Poster) SettlePlannedExpense(ctx context.Context, id int64, req models.SettlePlannedRequest, idempotencyKey, reqHash string) (*models.Transaction, *models.IdempotencyRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if req.CreditedTo != nil && req.WithdrawnFrom != nil {
		return nil, nil, ErrAmbiguousPaymentSource
	}
	if req.CreditedTo == nil && req.WithdrawnFrom == nil {
		return nil, nil, ErrMissingPaymentSource
	}
	kind := req.CreditKind
	if kind == "" {
		kind = models.CreditCharge
	}
	if !kind.Valid() {
		return nil, nil, ErrUnknownCreditKind
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := checkIdempotency(ctx, tx, idempotencyKey, reqHash)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}
	if err := reserveIdempotencyKey(ctx, tx, idempotencyKey, reqHash); err != nil {
		return nil, nil, err
	}

	if req.WithdrawnFrom != nil {
		err = adjustSavingBalance(ctx, tx, *req.WithdrawnFrom, req.Amount.Neg())
	} else {
		err = adjustCreditBalance(ctx, tx, *req.CreditedTo, creditDelta(kind, req.Amount))
	}
	if err != nil {
		return nil, nil, err
	}

	txn := &models.Transaction{
		Name:            req.Name,
		Type:            req.Type,
		Amount:          req.Amount,
		CreditedTo:      req.CreditedTo,
		WithdrawnFrom:   req.WithdrawnFrom,
		TransactionDate: req.Date,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (name, type, amount, credited_to, withdrawn_from, transaction_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Type, req.Amount, req.CreditedTo, req.WithdrawnFrom, req.Date,
	).Scan(&txn.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	var ct pgconn.CommandTag
	if req.UpdateTemplate {
		ct, err = tx.Exec(ctx,
			`UPDATE planned_expenses
			 SET name = $1, type = $2, amount = $3, credited_to = $4, withdrawn_from = $5, paid_date = $6, paid = true
			 WHERE id = $7`,
			req.Name, req.Type, req.Amount, req.CreditedTo, req.WithdrawnFrom, req.Date, id)
	} else {
		ct, err = tx.Exec(ctx, "UPDATE planned_expenses SET paid = true WHERE id = $1", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("planned expense update failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, nil, ErrRecordNotFound
	}

	if err := finalizeIdempotencyKey(ctx, tx, idempotencyKey, http.StatusCreated, txn); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return txn, nil, nil
}

// PostDeposit marks income as received: the saving account is credited and,
// when an income id is supplied, the matching income row is flagged. An
// unknown kind fails before any state is touched.
func (p *Poster) PostDeposit(ctx context.Context, req models.DepositRequest, idempotencyKey, reqHash string) (*models.DepositResult, *models.IdempotencyRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if req.IncomeID != nil && req.Kind != models.KindIncome && req.Kind != models.KindRecurringIncome {
		return nil, nil, ErrUnknownIncomeKind
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := checkIdempotency(ctx, tx, idempotencyKey, reqHash)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, existing, nil
	}
	if err := reserveIdempotencyKey(ctx, tx, idempotencyKey, reqHash); err != nil {
		return nil, nil, err
	}

	if err := adjustSavingBalance(ctx, tx, req.DepositedTo, req.Amount); err != nil {
		return nil, nil, err
	}

	if req.IncomeID != nil {
		var ct pgconn.CommandTag
		switch req.Kind {
		case models.KindIncome:
			ct, err = tx.Exec(ctx, "UPDATE income SET received = true WHERE id = $1", *req.IncomeID)
		case models.KindRecurringIncome:
			ct, err = tx.Exec(ctx, "UPDATE reccurring_income SET received = true WHERE id = $1", *req.IncomeID)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("income receipt update failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return nil, nil, ErrRecordNotFound
		}
	}

	result := &models.DepositResult{
		DepositedTo: req.DepositedTo,
		Amount:      req.Amount,
		IncomeID:    req.IncomeID,
		Kind:        req.Kind,
	}
	if err := finalizeIdempotencyKey(ctx, tx, idempotencyKey, http.StatusCreated, result); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return result, nil, nil
}
