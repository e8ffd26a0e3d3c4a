package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avaskey/housebook/internal/models"
)

type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// --- Creation ---

// CreateSavingAccount inserts a new saving account and returns its id.
func (s *Store) CreateSavingAccount(ctx context.Context, req models.SavingAccountRequest) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO saving_accounts (name, balance, threshold, modifications, image_uri)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.Name, req.Balance, req.Threshold, req.Modifications, req.ImageURI).Scan(&id)
	return id, err
}

// CreateCreditAccount inserts a new credit card and returns its id.
func (s *Store) CreateCreditAccount(ctx context.Context, req models.CreditAccountRequest) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO credit_accounts (name, current_balance, pending_charges, image_uri)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		req.Name, req.CurrentBalance, req.PendingCharges, req.ImageURI).Scan(&id)
	return id, err
}

// CreateRecurringExpense inserts a new recurring expense template, unpaid.
func (s *Store) CreateRecurringExpense(ctx context.Context, req models.RecurringExpenseRequest) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO reccurring_expenses (name, type, amount, credited_to, reccurring_date, paid_for_month)
		 VALUES ($1, $2, $3, $4, $5, false) RETURNING id`,
		req.Name, req.Type, req.Amount, req.CreditedTo, req.RecurringDay).Scan(&id)
	return id, err
}

// CreatePlannedExpense inserts a new planned expense, unpaid. The XOR check on
// the payment source belongs to the service layer.
func (s *Store) CreatePlannedExpense(ctx context.Context, req models.PlannedExpenseRequest) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO planned_expenses (name, type, amount, credited_to, withdrawn_from, paid, paid_date)
		 VALUES ($1, $2, $3, $4, $5, false, $6) RETURNING id`,
		req.Name, req.Type, req.Amount, req.CreditedTo, req.WithdrawnFrom, req.PaidDate).Scan(&id)
	return id, err
}

// CreateIncome inserts a one-time income record. No balance moves here.
func (s *Store) CreateIncome(ctx context.Context, req models.IncomeRequest) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO income (name, type, amount, deposited_to, received, paid_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Type, req.Amount, req.DepositedTo, req.Received, req.PaidDate).Scan(&id)
	return id, err
}

// CreateRecurringIncome inserts a recurring income template.
func (s *Store) CreateRecurringIncome(ctx context.Context, req models.RecurringIncomeRequest) (int64, error) {
	var id int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO reccurring_income (name, type, amount, deposited_to, received, expected_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Type, req.Amount, req.DepositedTo, req.Received, req.ExpectedDay).Scan(&id)
	return id, err
}

// --- Single-row reads ---

// GetSavingAccount retrieves a single saving account by ID.
func (s *Store) GetSavingAccount(ctx context.Context, id int64) (*models.SavingAccount, error) {
	var a models.SavingAccount
	err := s.Db.QueryRow(ctx,
		`SELECT id, name, balance, threshold, modifications, image_uri FROM saving_accounts WHERE id = $1`,
		id).Scan(&a.ID, &a.Name, &a.Balance, &a.Threshold, &a.Modifications, &a.ImageURI)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetCreditAccount retrieves a single credit card by ID.
func (s *Store) GetCreditAccount(ctx context.Context, id int64) (*models.CreditAccount, error) {
	var c models.CreditAccount
	err := s.Db.QueryRow(ctx,
		`SELECT id, name, current_balance, pending_charges, image_uri FROM credit_accounts WHERE id = $1`,
		id).Scan(&c.ID, &c.Name, &c.CurrentBalance, &c.PendingCharges, &c.ImageURI)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- Updates (whole-record edits from the account screens) ---

// UpdateSavingAccount rewrites every editable field of a saving account.
func (s *Store) UpdateSavingAccount(ctx context.Context, id int64, req models.SavingAccountRequest) error {
	ct, err := s.Db.Exec(ctx,
		`UPDATE saving_accounts SET name = $1, balance = $2, threshold = $3, modifications = $4, image_uri = $5
		 WHERE id = $6`,
		req.Name, req.Balance, req.Threshold, req.Modifications, req.ImageURI, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateCreditAccount rewrites every editable field of a credit card.
func (s *Store) UpdateCreditAccount(ctx context.Context, id int64, req models.CreditAccountRequest) error {
	ct, err := s.Db.Exec(ctx,
		`UPDATE credit_accounts SET name = $1, current_balance = $2, pending_charges = $3, image_uri = $4
		 WHERE id = $5`,
		req.Name, req.CurrentBalance, req.PendingCharges, req.ImageURI, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// --- Read-all accessors, sorted by the natural display field ---

func (s *Store) ListSavingAccounts(ctx context.Context) ([]models.SavingAccount, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, balance, threshold, modifications, image_uri FROM saving_accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.SavingAccount
	for rows.Next() {
		var a models.SavingAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance, &a.Threshold, &a.Modifications, &a.ImageURI); err != nil {
			log.Printf("Error scanning saving account: %v", err)
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) ListCreditAccounts(ctx context.Context) ([]models.CreditAccount, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, current_balance, pending_charges, image_uri FROM credit_accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.CreditAccount
	for rows.Next() {
		var c models.CreditAccount
		if err := rows.Scan(&c.ID, &c.Name, &c.CurrentBalance, &c.PendingCharges, &c.ImageURI); err != nil {
			log.Printf("Error scanning credit account: %v", err)
			continue
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *Store) ListRecurringExpenses(ctx context.Context) ([]models.RecurringExpense, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, type, amount, credited_to, reccurring_date, paid_for_month, monthly_reset
		 FROM reccurring_expenses ORDER BY reccurring_date ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.RecurringExpense
	for rows.Next() {
		var e models.RecurringExpense
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Amount, &e.CreditedTo, &e.RecurringDay, &e.PaidForMonth, &e.MonthlyReset); err != nil {
			log.Printf("Error scanning recurring expense: %v", err)
			continue
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) ListPlannedExpenses(ctx context.Context) ([]models.PlannedExpense, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, type, amount, credited_to, withdrawn_from, paid, paid_date
		 FROM planned_expenses ORDER BY paid_date ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.PlannedExpense
	for rows.Next() {
		var e models.PlannedExpense
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Amount, &e.CreditedTo, &e.WithdrawnFrom, &e.Paid, &e.PaidDate); err != nil {
			log.Printf("Error scanning planned expense: %v", err)
			continue
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) ListRecurringIncome(ctx context.Context) ([]models.RecurringIncome, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, type, amount, deposited_to, received, expected_date, monthly_reset
		 FROM reccurring_income ORDER BY expected_date ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []models.RecurringIncome
	for rows.Next() {
		var i models.RecurringIncome
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.Amount, &i.DepositedTo, &i.Received, &i.ExpectedDay, &i.MonthlyReset); err != nil {
			log.Printf("Error scanning recurring income: %v", err)
			continue
		}
		incomes = append(incomes, i)
	}
	return incomes, rows.Err()
}

func (s *Store) ListIncome(ctx context.Context) ([]models.Income, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, type, amount, deposited_to, received, paid_date
		 FROM income ORDER BY paid_date ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []models.Income
	for rows.Next() {
		var i models.Income
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.Amount, &i.DepositedTo, &i.Received, &i.PaidDate); err != nil {
			log.Printf("Error scanning income: %v", err)
			continue
		}
		incomes = append(incomes, i)
	}
	return incomes, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, type, amount, credited_to, withdrawn_from, deposited_to, transaction_date
		 FROM transactions ORDER BY transaction_date ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.Amount, &t.CreditedTo, &t.WithdrawnFrom, &t.DepositedTo, &t.TransactionDate); err != nil {
			log.Printf("Error scanning transaction: %v", err)
			continue
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// --- Deletion ---

// Deletes are per-table, by id. A delete that touches zero rows is not an
// error. Account and card deletes cascade to dependent expense, income and
// transaction rows via the schema's ON DELETE CASCADE rules.

func (s *Store) DeleteSavingAccount(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM saving_accounts WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteCreditAccount(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM credit_accounts WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteRecurringExpense(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM reccurring_expenses WHERE id = $1`, id)
	return err
}

func (s *Store) DeletePlannedExpense(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM planned_expenses WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteRecurringIncome(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM reccurring_income WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM income WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}
