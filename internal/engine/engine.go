// Package engine derives monthly commitments, balances, progress and
// alert status from in-memory obligation collections.
//
// Every function is pure: the caller supplies the records and the
// reference date, the engine never touches the store. Malformed records
// are skipped and reported through a side channel so one bad row can
// never abort a whole computation.
package engine

import (
	"fmt"
	"sort"
	"time"

	"deyn/internal/core"
)

// RecordError reports an obligation the engine refused to compute over.
type RecordError struct {
	ObligationID int64
	Err          error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("obligation %d: %v", e.ObligationID, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// DueStatus classifies an obligation for the current cycle.
type DueStatus string

const (
	DuePaid    DueStatus = "paid"
	DuePending DueStatus = "pending"
	DueOverdue DueStatus = "overdue"
	DueNone    DueStatus = "none"
)

// dueSoonWindow is how far ahead a due date still raises a due_soon alert.
const dueSoonWindow = 7 * 24 * time.Hour

// checkRecord applies the engine's admission rules. Records failing
// them go to the error side channel instead of the result.
func checkRecord(o core.Obligation) error {
	if o.Principal.IsNegative() {
		return core.ErrNegativePrincipal
	}
	if o.Schedule.Bounded {
		if o.Schedule.Remaining > o.Schedule.Total {
			return core.ErrRemainingExceedsTotal
		}
		if o.Schedule.Remaining == 0 && o.Status == core.StatusActive {
			return core.ErrExhaustedButActive
		}
	}
	return nil
}

// inMonth reports whether an obligation's schedule covers the given
// month: every month from the start date until the remaining count hits
// zero, or indefinitely for unbounded schedules.
func inMonth(o core.Obligation, year int, month time.Month) bool {
	start := o.StartDate.Year()*12 + int(o.StartDate.Month()) - 1
	target := year*12 + int(month) - 1
	if target < start {
		return false
	}
	if o.Schedule.Bounded && o.Schedule.Remaining == 0 {
		return false
	}
	return true
}

// MonthlyCommitmentTotal sums the scheduled installment amounts of all
// active obligations whose schedule covers the given month. Payments
// already recorded inside the cycle do not reduce the figure; the total
// is the scheduled amount due.
func MonthlyCommitmentTotal(obligations []core.Obligation, year int, month time.Month) (core.Money, []RecordError) {
	total := core.MoneyZero()
	var errs []RecordError
	for _, o := range obligations {
		if err := checkRecord(o); err != nil {
			errs = append(errs, RecordError{ObligationID: o.ID, Err: err})
			continue
		}
		if o.Status != core.StatusActive {
			continue
		}
		if inMonth(o, year, month) {
			total = total.Add(o.Installment)
		}
	}
	return total, errs
}

// RemainingBalance returns the outstanding scheduled amount. The second
// return is false for unbounded schedules, where no meaningful balance
// exists.
func RemainingBalance(o core.Obligation) (core.Money, bool) {
	if !o.Schedule.Bounded {
		return core.MoneyZero(), false
	}
	return o.Installment.MulInt(o.Schedule.Remaining), true
}

// ProgressFraction reports completion in [0,1]. Zero-principal and
// unbounded obligations report 0.
func ProgressFraction(o core.Obligation) float64 {
	balance, ok := RemainingBalance(o)
	if !ok {
		return 0
	}
	if !o.Principal.IsPositive() {
		return 0
	}
	paid := o.Principal.Sub(balance)
	frac := paid.Float64() / o.Principal.Float64()
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}

// DueDate resolves the obligation's due date for today's cycle, with
// the due day clamped to the length of the month.
func DueDate(o core.Obligation, today time.Time) time.Time {
	return core.ClampDay(today.Year(), today.Month(), o.DueDay)
}

// ClassifyDueStatus classifies the obligation against today. Strictly
// past the cycle due date while still active means overdue; a due date
// within the next seven days (inclusive) means pending; anything else
// raises no alert.
func ClassifyDueStatus(o core.Obligation, today time.Time) DueStatus {
	if o.Status == core.StatusPaid {
		return DuePaid
	}
	if o.Status != core.StatusActive {
		return DueNone
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	due := DueDate(o, today)
	if day.After(due) {
		return DueOverdue
	}
	if !due.After(day.Add(dueSoonWindow)) {
		return DuePending
	}
	return DueNone
}

// GenerateAlerts builds the alert list for the dashboard, ordered by
// due date ascending with overdue entries before due_soon entries on
// equal dates. Callers rely on this ordering to show the most urgent
// obligation first.
func GenerateAlerts(obligations []core.Obligation, entities []core.Entity, today time.Time) ([]core.Alert, []RecordError) {
	names := make(map[int64]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}

	var alerts []core.Alert
	var errs []RecordError
	for _, o := range obligations {
		if err := checkRecord(o); err != nil {
			errs = append(errs, RecordError{ObligationID: o.ID, Err: err})
			continue
		}
		var typ core.AlertType
		switch ClassifyDueStatus(o, today) {
		case DueOverdue:
			typ = core.AlertOverdue
		case DuePending:
			typ = core.AlertDueSoon
		default:
			continue
		}
		alerts = append(alerts, core.Alert{
			Type:         typ,
			EntityName:   names[o.EntityID],
			Amount:       o.Installment,
			DueDate:      DueDate(o, today),
			ObligationID: o.ID,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].DueDate.Equal(alerts[j].DueDate) {
			return alerts[i].DueDate.Before(alerts[j].DueDate)
		}
		return alerts[i].Type == core.AlertOverdue && alerts[j].Type != core.AlertOverdue
	})
	return alerts, errs
}

// ProjectPayoff reports how many monthly cycles remain until a bounded
// obligation completes. The second return is false for unbounded
// schedules.
func ProjectPayoff(o core.Obligation) (int, bool) {
	if !o.Schedule.Bounded {
		return 0, false
	}
	return o.Schedule.Remaining, true
}
