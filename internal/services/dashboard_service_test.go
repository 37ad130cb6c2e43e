package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"deyn/internal/cache"
	"deyn/internal/core"
	"deyn/internal/storage"
)

func testSettings() core.Settings {
	s := storage.DefaultSettings()
	s.Salary = core.MoneyFromInt(10000)
	s.SavingsTarget = core.MoneyFromInt(1500)
	return s
}

func activeLoan(id, entityID int64, installment int64, dueDay int) core.Obligation {
	return core.Obligation{
		ID:          id,
		EntityID:    entityID,
		Kind:        core.KindLoan,
		Principal:   core.MoneyFromInt(installment * 12),
		StartDate:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		DueDay:      dueDay,
		Schedule:    core.BoundedSchedule(12, 12),
		Installment: core.MoneyFromInt(installment),
		Status:      core.StatusActive,
	}
}

func TestCompute(t *testing.T) {
	today := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	entities := []core.Entity{{ID: 1, Name: "البنك الأهلي", Kind: core.EntityBank}}

	t.Run("projected remaining", func(t *testing.T) {
		obligations := []core.Obligation{
			activeLoan(1, 1, 300, 5),
			activeLoan(2, 1, 1200, 25),
		}
		sum := Compute(obligations, entities, testSettings(), today)

		if got := sum.MonthTotal.String(); got != "1500.000" {
			t.Errorf("month total = %s, want 1500.000", got)
		}
		// 10000 - 1500 commitments - 1500 savings target.
		if got := sum.ProjectedRemaining.String(); got != "7000.000" {
			t.Errorf("projected remaining = %s, want 7000.000", got)
		}
		if sum.ActiveCount != 2 {
			t.Errorf("active count = %d, want 2", sum.ActiveCount)
		}
		if sum.Stale {
			t.Error("fresh summary marked stale")
		}
		if len(sum.Errors) != 0 {
			t.Errorf("errors = %v, want none", sum.Errors)
		}
	})

	t.Run("projection can go negative", func(t *testing.T) {
		obligations := []core.Obligation{activeLoan(1, 1, 9500, 5)}
		sum := Compute(obligations, entities, testSettings(), today)
		if got := sum.ProjectedRemaining.String(); got != "-1000.000" {
			t.Errorf("projected remaining = %s, want -1000.000", got)
		}
	})

	t.Run("malformed record reported once and excluded", func(t *testing.T) {
		broken := activeLoan(3, 1, 400, 5)
		broken.DueDay = 0
		obligations := []core.Obligation{activeLoan(1, 1, 300, 5), broken}

		sum := Compute(obligations, entities, testSettings(), today)

		// The broken record is flagged both by the total and the alert
		// pass; the summary dedupes to a single message.
		if len(sum.Errors) != 1 {
			t.Fatalf("errors = %v, want exactly one", sum.Errors)
		}
		if sum.ActiveCount != 1 {
			t.Errorf("active count = %d, want 1: malformed records do not count", sum.ActiveCount)
		}
		if got := sum.MonthTotal.String(); got != "300.000" {
			t.Errorf("month total = %s, want the healthy record only", got)
		}
	})

	t.Run("overdue alert present", func(t *testing.T) {
		sum := Compute([]core.Obligation{activeLoan(1, 1, 300, 5)}, entities, testSettings(), today)
		if len(sum.Alerts) != 1 {
			t.Fatalf("alerts = %+v, want one", sum.Alerts)
		}
		a := sum.Alerts[0]
		if a.Type != core.AlertOverdue {
			t.Errorf("alert type = %s, want overdue", a.Type)
		}
		if a.EntityName != "البنك الأهلي" {
			t.Errorf("alert entity = %q, want the resolved name", a.EntityName)
		}
	})
}

// failingStore simulates an unreachable backend. Only the read paths
// Summary touches are overridden.
type failingStore struct {
	storage.Store
}

var errDown = errors.New("connection refused")

func (failingStore) GetSettings(context.Context) (core.Settings, error) {
	return core.Settings{}, errDown
}

func (failingStore) ListObligations(context.Context, core.ObligationStatus) ([]core.Obligation, error) {
	return nil, errDown
}

func (failingStore) ListEntities(context.Context) ([]core.Entity, error) {
	return nil, errDown
}

func TestSummaryStaleFallback(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	summaryCache := cache.NewLRUCache[core.Summary](8, time.Hour)

	store := storage.NewMemoryStore()
	entity, err := store.CreateEntity(ctx, core.Entity{Name: "تابي", Kind: core.EntityBNPL})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
	if _, err := store.CreateObligation(ctx, activeLoan(0, entity.ID, 300, 5)); err != nil {
		t.Fatalf("create obligation: %v", err)
	}

	healthy := NewDashboardService(store, summaryCache)
	fresh, err := healthy.Summary(ctx, today)
	if err != nil {
		t.Fatalf("summary over healthy store: %v", err)
	}
	if fresh.Stale {
		t.Error("fresh summary marked stale")
	}

	// Same cache, dead store: the last good summary comes back stale.
	degraded := NewDashboardService(failingStore{}, summaryCache)
	stale, err := degraded.Summary(ctx, today)
	if err != nil {
		t.Fatalf("summary over failing store with warm cache: %v", err)
	}
	if !stale.Stale {
		t.Error("fallback summary not marked stale")
	}
	if !stale.MonthTotal.Equal(fresh.MonthTotal) {
		t.Errorf("fallback month total = %s, want %s", stale.MonthTotal, fresh.MonthTotal)
	}
}

func TestSummaryUnavailableWithoutCache(t *testing.T) {
	svc := NewDashboardService(failingStore{}, nil)
	_, err := svc.Summary(context.Background(), time.Now().UTC())
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestSummaryColdCacheStillUnavailable(t *testing.T) {
	svc := NewDashboardService(failingStore{}, cache.NewLRUCache[core.Summary](8, time.Hour))
	_, err := svc.Summary(context.Background(), time.Now().UTC())
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}
