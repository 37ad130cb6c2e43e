package core

import (
	"errors"
	"strings"
	"time"
)

const (
	EntityBank     EntityKind = "bank"
	EntityBNPL     EntityKind = "bnpl"
	EntityRetailer EntityKind = "retailer"
	EntityPerson   EntityKind = "person"
	EntityCompany  EntityKind = "company"
	EntityFinance  EntityKind = "finance"
	EntityTelco    EntityKind = "telco"
	EntityOther    EntityKind = "other"
)

const (
	KindLoan   ObligationKind = "loan"
	KindBNPL   ObligationKind = "bnpl"
	KindFriend ObligationKind = "friend"
	KindOneOff ObligationKind = "oneoff"
)

const (
	StatusActive    ObligationStatus = "active"
	StatusPaid      ObligationStatus = "paid"
	StatusDefaulted ObligationStatus = "defaulted"
	StatusCancelled ObligationStatus = "cancelled"
)

type (
	EntityKind       string
	ObligationKind   string
	ObligationStatus string

	// Entity is the counterparty of an obligation: a bank, a BNPL
	// provider, a shop, or a person.
	Entity struct {
		ID        int64
		Name      string
		Kind      EntityKind
		Contact   string
		Note      string
		CreatedAt time.Time
	}

	// Schedule is the installment plan of an obligation. A bounded
	// schedule counts down a fixed number of installments; an unbounded
	// one (open-ended subscription) never completes on its own.
	Schedule struct {
		Bounded   bool
		Total     int
		Remaining int
	}

	// PenaltyPolicy describes what happens after a missed due date.
	PenaltyPolicy struct {
		LateFee   Money
		GraceDays int
	}

	Obligation struct {
		ID          int64
		EntityID    int64
		Kind        ObligationKind
		Principal   Money
		APR         float64
		Fee         Money
		StartDate   time.Time
		DueDay      int // 1-31, clamped to month length when resolved
		Schedule    Schedule
		Installment Money
		Status      ObligationStatus
		Penalty     *PenaltyPolicy
		// RelationshipFactor softens how friend debts are presented.
		// It never feeds into any computation.
		RelationshipFactor float64
		Tags               []string
		CreatedAt          time.Time
	}

	// Payment reduces an obligation's outstanding balance. It never
	// mutates the principal.
	Payment struct {
		ID           int64
		ObligationID int64
		Amount       Money
		Date         time.Time
		Method       string
		Note         string
		Installment  int // linked installment index, 0 when unlinked
	}

	// Settings is the single process-wide configuration record.
	Settings struct {
		PaydayDay       int
		Salary          Money
		SavingsTarget   Money
		Currency        string
		DefaultStrategy string
		QuietFrom       string // HH:MM
		QuietTo         string // HH:MM
	}

	AlertType string

	// Alert is derived on demand from obligations and the current
	// date; it is never persisted.
	Alert struct {
		Type         AlertType
		EntityName   string
		Amount       Money
		DueDate      time.Time
		ObligationID int64
	}
)

const (
	AlertDueSoon AlertType = "due_soon"
	AlertOverdue AlertType = "overdue"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDueDay         = errors.New("due day must be between 1 and 31")
	ErrInvalidPayday         = errors.New("payday must be between 1 and 31")
	ErrEmptyName             = errors.New("empty name")
	ErrInvalidKind           = errors.New("invalid kind")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrNegativePrincipal     = errors.New("negative principal")
	ErrNegativeRate          = errors.New("negative annual percentage rate")
	ErrRemainingExceedsTotal = errors.New("remaining installments exceed total")
	ErrExhaustedButActive    = errors.New("no remaining installments but status is still active")
	ErrRelationshipFactor    = errors.New("relationship factor only applies to friend obligations")
	ErrEntityInUse           = errors.New("entity is referenced by obligations")
	ErrNotFound              = errors.New("record not found")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

// BoundedSchedule builds a schedule with a fixed installment count.
func BoundedSchedule(total, remaining int) Schedule {
	return Schedule{Bounded: true, Total: total, Remaining: remaining}
}

// UnboundedSchedule builds an open-ended schedule.
func UnboundedSchedule() Schedule {
	return Schedule{}
}

func (s Schedule) Validate() error {
	if !s.Bounded {
		return nil
	}
	if s.Total < 1 {
		return errors.New("total installments must be at least 1")
	}
	if s.Remaining < 0 || s.Remaining > s.Total {
		return ErrRemainingExceedsTotal
	}
	return nil
}

func (e Entity) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	switch e.Kind {
	case EntityBank, EntityBNPL, EntityRetailer, EntityPerson,
		EntityCompany, EntityFinance, EntityTelco, EntityOther:
	default:
		return ErrInvalidKind
	}
	return nil
}

func (o Obligation) Validate() error {
	switch o.Kind {
	case KindLoan, KindBNPL, KindFriend, KindOneOff:
	default:
		return ErrInvalidKind
	}
	switch o.Status {
	case StatusActive, StatusPaid, StatusDefaulted, StatusCancelled:
	default:
		return ErrInvalidStatus
	}
	if o.Principal.IsNegative() {
		return ErrNegativePrincipal
	}
	if o.APR < 0 {
		return ErrNegativeRate
	}
	if o.Fee.IsNegative() {
		return ErrInvalidAmount
	}
	if o.DueDay < 1 || o.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if err := o.Schedule.Validate(); err != nil {
		return err
	}
	if o.Schedule.Bounded && o.Schedule.Remaining == 0 && o.Status == StatusActive {
		return ErrExhaustedButActive
	}
	if o.RelationshipFactor < 0 || o.RelationshipFactor > 1 {
		return ErrRelationshipFactor
	}
	if o.RelationshipFactor > 0 && o.Kind != KindFriend {
		return ErrRelationshipFactor
	}
	return nil
}

func (p Payment) Validate() error {
	if p.ObligationID == 0 {
		return errors.New("payment must reference an obligation")
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Date.IsZero() {
		return errors.New("payment date cannot be zero")
	}
	return nil
}

func (s Settings) Validate() error {
	if s.PaydayDay < 1 || s.PaydayDay > 31 {
		return ErrInvalidPayday
	}
	if s.SavingsTarget.IsNegative() {
		return ErrInvalidAmount
	}
	if s.Salary.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(s.Currency) == "" {
		return errors.New("empty currency code")
	}
	return nil
}

// ClampDay resolves a 1-31 due day against the actual length of the
// given month, e.g. day 31 in February resolves to the 28th or 29th.
func ClampDay(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
