package core

import "time"

// Summary is the dashboard view for a single month. It is always
// recomputed from the current record set; Stale is only true when the
// store was unreachable and a previously computed summary was served.
type Summary struct {
	Year  int
	Month int // 1-12

	// MonthTotal is the scheduled commitment total for the month,
	// independent of payments already recorded in the cycle.
	MonthTotal Money

	// ProjectedRemaining is salary minus commitments minus the savings
	// target. It may be negative.
	ProjectedRemaining Money

	ActiveCount int
	Alerts      []Alert

	// Errors lists obligations the engine skipped as malformed.
	Errors []string

	Stale      bool
	ComputedAt time.Time
}
