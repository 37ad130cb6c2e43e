// Package services orchestrates the store, the computation engine and
// the mutation event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deyn/internal/amqp"
	"deyn/internal/core"
	"deyn/internal/storage"
)

// ObligationService performs all record writes. Each write lands in the
// store first; the mutation event is published afterwards and its
// failure never fails the request. Callers must not issue two
// concurrent payment writes against the same obligation.
type ObligationService struct {
	store      storage.Store
	amqpClient *amqp.Client
}

func NewObligationService(store storage.Store, amqpClient *amqp.Client) *ObligationService {
	return &ObligationService{store: store, amqpClient: amqpClient}
}

func (s *ObligationService) CreateEntity(ctx context.Context, e core.Entity) (core.Entity, error) {
	if err := e.Validate(); err != nil {
		return core.Entity{}, fmt.Errorf("validate entity: %w", err)
	}
	created, err := s.store.CreateEntity(ctx, e)
	if err != nil {
		return core.Entity{}, fmt.Errorf("create entity: %w", err)
	}
	slog.InfoContext(ctx, "Entity created",
		"entity_id", created.ID, "entity_name", created.Name, "kind", created.Kind)
	return created, nil
}

func (s *ObligationService) UpdateEntity(ctx context.Context, e core.Entity) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate entity: %w", err)
	}
	if err := s.store.UpdateEntity(ctx, e); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return nil
}

// DeleteEntity is rejected with core.ErrEntityInUse while obligations
// still reference the entity.
func (s *ObligationService) DeleteEntity(ctx context.Context, id int64) error {
	if err := s.store.DeleteEntity(ctx, id); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	s.publish(ctx, amqp.NewMutationMessage(amqp.ActionEntityDeleted, 0, id))
	return nil
}

func (s *ObligationService) CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.Status == "" {
		o.Status = core.StatusActive
	}
	o.Principal = o.Principal.Round()
	o.Installment = o.Installment.Round()
	o.Fee = o.Fee.Round()
	if err := o.Validate(); err != nil {
		return core.Obligation{}, fmt.Errorf("validate obligation: %w", err)
	}
	created, err := s.store.CreateObligation(ctx, o)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("create obligation: %w", err)
	}
	slog.InfoContext(ctx, "Obligation created",
		"obligation_id", created.ID,
		"entity_id", created.EntityID,
		"kind", created.Kind,
		"amount", created.Installment.String())
	s.publish(ctx, amqp.NewMutationMessage(amqp.ActionObligationCreated, created.ID, created.EntityID))
	return created, nil
}

func (s *ObligationService) UpdateObligation(ctx context.Context, o core.Obligation) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("validate obligation: %w", err)
	}
	if err := s.store.UpdateObligation(ctx, o); err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	s.publish(ctx, amqp.NewMutationMessage(amqp.ActionObligationUpdated, o.ID, o.EntityID))
	return nil
}

// RecordPayment stores a payment against the obligation and returns the
// obligation as updated by the store (remaining count decremented,
// status flipped to paid at zero). The principal never changes.
func (s *ObligationService) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, core.Obligation, error) {
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("validate payment: %w", err)
	}
	payment, obligation, err := s.store.RecordPayment(ctx, p)
	if err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("record payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment recorded",
		"obligation_id", obligation.ID,
		"amount", payment.Amount.String(),
		"status", obligation.Status)
	s.publish(ctx, amqp.NewMutationMessage(amqp.ActionPaymentRecorded, obligation.ID, obligation.EntityID))
	return payment, obligation, nil
}

func (s *ObligationService) UpdateSettings(ctx context.Context, st core.Settings) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	if err := s.store.UpdateSettings(ctx, st); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	s.publish(ctx, amqp.NewMutationMessage(amqp.ActionSettingsUpdated, 0, 0))
	return nil
}

func (s *ObligationService) publish(ctx context.Context, msg *amqp.MutationMessage) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishMutation(ctx, msg); err != nil {
		// The write already succeeded; losing the event only delays
		// the worker's recomputation.
		slog.ErrorContext(ctx, "Failed to publish mutation message",
			"action", msg.Action, "error", err)
	}
}

func (s *ObligationService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close obligation service: %v", errs)
	}
	return nil
}
