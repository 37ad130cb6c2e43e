// Package storage provides the obligation record store. The rest of
// the system depends only on the Store contract, never on a specific
// backend.
package storage

import (
	"context"

	"deyn/internal/core"
)

// Store is the persistence boundary. Implementations must enforce the
// referential rule that an entity with live obligations cannot be
// deleted, and must keep remaining-installment updates atomic per
// obligation. Callers serialize writes per obligation id; the store
// does not arbitrate concurrent payment writes against the same record.
type Store interface {
	ListEntities(ctx context.Context) ([]core.Entity, error)
	GetEntity(ctx context.Context, id int64) (core.Entity, error)
	CreateEntity(ctx context.Context, e core.Entity) (core.Entity, error)
	UpdateEntity(ctx context.Context, e core.Entity) error
	// DeleteEntity fails with core.ErrEntityInUse while any obligation
	// references the entity.
	DeleteEntity(ctx context.Context, id int64) error

	// ListObligations filters by status; the empty status lists all.
	ListObligations(ctx context.Context, status core.ObligationStatus) ([]core.Obligation, error)
	GetObligation(ctx context.Context, id int64) (core.Obligation, error)
	CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error)
	UpdateObligation(ctx context.Context, o core.Obligation) error
	// DeleteObligation cascades to the obligation's payments.
	DeleteObligation(ctx context.Context, id int64) error

	ListPayments(ctx context.Context, obligationID int64) ([]core.Payment, error)
	// RecordPayment stores the payment and, for bounded schedules,
	// decrements the remaining installments, flipping the status to
	// paid when the count reaches zero. The principal is never touched.
	RecordPayment(ctx context.Context, p core.Payment) (core.Payment, core.Obligation, error)

	GetSettings(ctx context.Context) (core.Settings, error)
	UpdateSettings(ctx context.Context, s core.Settings) error

	Close() error
}

// DefaultSettings is the settings record before the user changes
// anything.
func DefaultSettings() core.Settings {
	return core.Settings{
		PaydayDay:       27,
		Salary:          core.MoneyZero(),
		SavingsTarget:   core.MoneyZero(),
		Currency:        "SAR",
		DefaultStrategy: "snowball",
		QuietFrom:       "22:00",
		QuietTo:         "08:00",
	}
}

// applyPayment holds the shared remaining-installments transition so
// both backends behave identically.
func applyPayment(o core.Obligation) core.Obligation {
	if !o.Schedule.Bounded {
		return o
	}
	if o.Schedule.Remaining > 0 {
		o.Schedule.Remaining--
	}
	if o.Schedule.Remaining == 0 {
		o.Status = core.StatusPaid
	}
	return o
}
