package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"deyn/internal/core"
	"deyn/internal/storage"
)

// All writes must survive a nil AMQP client: events are optional,
// persistence is not.
func TestObligationServiceWithoutEvents(t *testing.T) {
	ctx := context.Background()
	svc := NewObligationService(storage.NewMemoryStore(), nil)

	entity, err := svc.CreateEntity(ctx, core.Entity{Name: "نون", Kind: core.EntityRetailer})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	created, err := svc.CreateObligation(ctx, core.Obligation{
		EntityID:    entity.ID,
		Kind:        core.KindBNPL,
		Principal:   core.MoneyFromInt(900),
		StartDate:   time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		DueDay:      10,
		Schedule:    core.BoundedSchedule(3, 3),
		Installment: core.MoneyFromInt(300),
	})
	if err != nil {
		t.Fatalf("create obligation: %v", err)
	}
	// Status defaults when the caller leaves it blank.
	if created.Status != core.StatusActive {
		t.Errorf("status = %s, want active", created.Status)
	}

	payment, updated, err := svc.RecordPayment(ctx, core.Payment{
		ObligationID: created.ID,
		Amount:       core.MoneyFromInt(300),
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	// A blank payment date means today.
	if payment.Date.IsZero() {
		t.Error("payment date not defaulted")
	}
	if updated.Schedule.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", updated.Schedule.Remaining)
	}
}

func TestObligationServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewObligationService(storage.NewMemoryStore(), nil)

	if _, err := svc.CreateEntity(ctx, core.Entity{Name: "  ", Kind: core.EntityBank}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank entity name: err = %v, want ErrEmptyName", err)
	}

	entity, err := svc.CreateEntity(ctx, core.Entity{Name: "بنك الرياض", Kind: core.EntityBank})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*core.Obligation)
		want   error
	}{
		{"due day out of range", func(o *core.Obligation) { o.DueDay = 0 }, core.ErrInvalidDueDay},
		{"negative rate", func(o *core.Obligation) { o.APR = -1 }, core.ErrNegativeRate},
		{"factor on non-friend", func(o *core.Obligation) { o.RelationshipFactor = 0.3 }, core.ErrRelationshipFactor},
		{
			"remaining above total",
			func(o *core.Obligation) { o.Schedule = core.BoundedSchedule(3, 3); o.Schedule.Remaining = 4 },
			core.ErrRemainingExceedsTotal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := core.Obligation{
				EntityID:    entity.ID,
				Kind:        core.KindLoan,
				Principal:   core.MoneyFromInt(1000),
				StartDate:   time.Now().UTC(),
				DueDay:      5,
				Schedule:    core.BoundedSchedule(10, 10),
				Installment: core.MoneyFromInt(100),
			}
			tt.mutate(&o)
			if _, err := svc.CreateObligation(ctx, o); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, _, err := svc.RecordPayment(ctx, core.Payment{ObligationID: 1, Amount: core.MoneyZero()}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero payment: err = %v, want ErrInvalidAmount", err)
	}

	bad := storage.DefaultSettings()
	bad.PaydayDay = 40
	if err := svc.UpdateSettings(ctx, bad); !errors.Is(err, core.ErrInvalidPayday) {
		t.Errorf("bad payday: err = %v, want ErrInvalidPayday", err)
	}
}
