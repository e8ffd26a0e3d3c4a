package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// The monthly cycle is driven by a two-flag protocol rather than a scheduler.
// Near the end of the cycle MonthlyPreset clears monthly_reset on every
// recurring row (arming the sweep); at the start of the next cycle
// MonthlyReset flips the settlement flags back and sets monthly_reset again
// (disarming it). Because the reset only touches rows where monthly_reset is
// still false, repeated invocations on the same day are no-ops after the
// first.

// SweepAction is what the cycle manager should do on a given day.
type SweepAction int

const (
	SweepNone SweepAction = iota
	SweepPreset
	SweepReset
)

func (a SweepAction) String() string {
	switch a {
	case SweepPreset:
		return "preset"
	case SweepReset:
		return "reset"
	default:
		return "none"
	}
}

const (
	presetDay = 30
	resetDay  = 1
)

// SweepActionFor returns the sweep action for a day of month. Pure so the
// trigger rule is testable on its own; callers pass time.Now().Day().
func SweepActionFor(day int) SweepAction {
	switch day {
	case presetDay:
		return SweepPreset
	case resetDay:
		return SweepReset
	default:
		return SweepNone
	}
}

// MonthlyPreset arms the sweep: every recurring row gets monthly_reset =
// false. Safe to call any number of times.
func (p *Poster) MonthlyPreset(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "UPDATE reccurring_income SET monthly_reset = false"); err != nil {
		return fmt.Errorf("income preset failed: %w", err)
	}
	if _, err := tx.Exec(ctx, "UPDATE reccurring_expenses SET monthly_reset = false"); err != nil {
		return fmt.Errorf("expense preset failed: %w", err)
	}

	return tx.Commit(ctx)
}

// MonthlyReset rolls armed rows over to unsettled and disarms them in the
// same statement, so a second call in the same cycle changes nothing.
func (p *Poster) MonthlyReset(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"UPDATE reccurring_income SET received = false, monthly_reset = true WHERE monthly_reset = false"); err != nil {
		return fmt.Errorf("income reset failed: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE reccurring_expenses SET paid_for_month = false, monthly_reset = true WHERE monthly_reset = false"); err != nil {
		return fmt.Errorf("expense reset failed: %w", err)
	}

	return tx.Commit(ctx)
}

// RunScheduledSweep evaluates the trigger rule for now and runs whichever
// phase applies. It is invoked opportunistically from the fetch-on-open path
// and may fire zero or many times per day without double-resetting.
func (p *Poster) RunScheduledSweep(ctx context.Context, now time.Time) (SweepAction, error) {
	action := SweepActionFor(now.Day())
	switch action {
	case SweepPreset:
		return action, p.MonthlyPreset(ctx)
	case SweepReset:
		return action, p.MonthlyReset(ctx)
	default:
		return SweepNone, nil
	}
}
