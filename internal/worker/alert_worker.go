// Package worker reacts to mutation events by recomputing the
// dashboard summary, keeping the shared summary cache warm and logging
// newly urgent obligations.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deyn/internal/amqp"
	"deyn/internal/core"
	"deyn/internal/services"
)

type AlertWorker struct {
	dashboard *services.DashboardService
}

func NewAlertWorker(dashboard *services.DashboardService) *AlertWorker {
	return &AlertWorker{dashboard: dashboard}
}

// HandleMutation recomputes the summary after any record change. The
// recomputation also refreshes the last-good summary the API falls
// back to during store outages.
func (w *AlertWorker) HandleMutation(ctx context.Context, msg *amqp.MutationMessage) error {
	sum, err := w.dashboard.Summary(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recompute summary: %w", err)
	}

	slog.InfoContext(ctx, "Summary recomputed",
		"action", msg.Action,
		"month_total", sum.MonthTotal.String(),
		"active_count", sum.ActiveCount,
		"alert_count", len(sum.Alerts),
		"stale", sum.Stale)

	for _, a := range sum.Alerts {
		if a.Type != core.AlertOverdue {
			continue
		}
		slog.WarnContext(ctx, "Obligation overdue",
			"obligation_id", a.ObligationID,
			"entity_name", a.EntityName,
			"amount", a.Amount.String(),
			"due_date", a.DueDate.Format("2006-01-02"))
	}
	for _, msg := range sum.Errors {
		slog.WarnContext(ctx, "Skipped malformed obligation", "error", msg)
	}
	return nil
}
