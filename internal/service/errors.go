package service

import "errors"

var (
	// Validation failures. None of these leave any state behind: they are
	// raised before or inside the posting transaction, which rolls back.
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrAmbiguousPaymentSource = errors.New("cannot credit and withdraw in the same posting")
	ErrMissingPaymentSource   = errors.New("no payment account specified")
	ErrUnknownIncomeKind      = errors.New("unknown income kind")
	ErrSelfTransfer           = errors.New("transfer source and destination are the same account")

	// Lookup failures inside a posting transaction.
	ErrAccountNotFound = errors.New("account not found")
	ErrRecordNotFound  = errors.New("record not found")

	// Idempotency protocol failures.
	ErrIdempotencyConflict = errors.New("request in progress")
	ErrIdempotencyMismatch = errors.New("key reuse with mismatched payload")
)
