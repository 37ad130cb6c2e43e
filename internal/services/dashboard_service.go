package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deyn/internal/cache"
	"deyn/internal/core"
	"deyn/internal/engine"
	"deyn/internal/storage"
)

// summaryKey addresses the last good summary in the cache.
const summaryKey = "dashboard:last"

// DashboardService composes the engine's outputs with the settings into
// a single summary. The summary is recomputed fresh on every call;
// volumes are small and a stale financial alert is worse than the
// recomputation. The cache only serves reads while the store is down.
type DashboardService struct {
	store storage.Store
	cache cache.Cache[core.Summary]
}

func NewDashboardService(store storage.Store, summaryCache cache.Cache[core.Summary]) *DashboardService {
	return &DashboardService{store: store, cache: summaryCache}
}

// Summary builds the dashboard for today's month. When the store is
// unreachable it falls back to the last successfully computed summary,
// marked stale; with no cached summary the error surfaces as
// core.ErrStoreUnavailable.
func (s *DashboardService) Summary(ctx context.Context, today time.Time) (core.Summary, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return s.fallback(ctx, err)
	}
	obligations, err := s.store.ListObligations(ctx, "")
	if err != nil {
		return s.fallback(ctx, err)
	}
	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		return s.fallback(ctx, err)
	}

	sum := Compute(obligations, entities, settings, today)
	if s.cache != nil {
		s.cache.Set(ctx, summaryKey, sum)
	}
	return sum, nil
}

func (s *DashboardService) fallback(ctx context.Context, cause error) (core.Summary, error) {
	if s.cache != nil {
		if last, ok := s.cache.Get(ctx, summaryKey); ok {
			slog.WarnContext(ctx, "Store unavailable, serving stale summary",
				"error", cause, "computed_at", last.ComputedAt)
			last.Stale = true
			return last, nil
		}
	}
	return core.Summary{}, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, cause)
}

// Compute is the pure aggregation step: no store access, settings
// passed in explicitly so it stays testable without a runtime
// singleton.
func Compute(obligations []core.Obligation, entities []core.Entity, settings core.Settings, today time.Time) core.Summary {
	monthTotal, totalErrs := engine.MonthlyCommitmentTotal(obligations, today.Year(), today.Month())
	alerts, alertErrs := engine.GenerateAlerts(obligations, entities, today)

	seen := make(map[int64]bool)
	var errs []string
	for _, e := range append(totalErrs, alertErrs...) {
		if seen[e.ObligationID] {
			continue
		}
		seen[e.ObligationID] = true
		errs = append(errs, e.Error())
	}

	active := 0
	for _, o := range obligations {
		if o.Status == core.StatusActive && !seen[o.ID] {
			active++
		}
	}

	projected := settings.Salary.Sub(monthTotal).Sub(settings.SavingsTarget)

	return core.Summary{
		Year:               today.Year(),
		Month:              int(today.Month()),
		MonthTotal:         monthTotal,
		ProjectedRemaining: projected,
		ActiveCount:        active,
		Alerts:             alerts,
		Errors:             errs,
		ComputedAt:         time.Now().UTC(),
	}
}
