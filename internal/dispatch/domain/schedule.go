package domain

import "time"

// BudgetPreference selects which bound of a two-sided posting budget to offer.
const (
	BudgetPreferenceLow  = "low"
	BudgetPreferenceHigh = "high"
)

// Schedule is one user's standing bidding preferences. At most one schedule
// exists per user; it is written by the dashboard-facing API and read-only
// for the engine.
type Schedule struct {
	UserID               int64    `db:"user_id"`
	IsActive             bool     `db:"is_active"`
	DaysOfWeek           []string `db:"-"`
	TimeRangeStart       string   `db:"time_range_start"` // "HH:MM" local clock
	TimeRangeEnd         string   `db:"time_range_end"`
	StartDate            string   `db:"start_date"` // "YYYY-MM-DD", optional
	EndDate              string   `db:"end_date"`
	PreferredCategoryIDs []int64  `db:"-"`
	FixedBudgetMin       int64    `db:"fixed_budget_min"`
	FixedBudgetMax       int64    `db:"fixed_budget_max"`
	HourlyBudgetMin      int64    `db:"hourly_budget_min"`
	HourlyBudgetMax      int64    `db:"hourly_budget_max"`
	ClientBudgetPref     string   `db:"client_budget_preference"`
	PreferredHourlyRate  int64    `db:"preferred_hourly_rate"`
	WeeklyHourCap        int64    `db:"weekly_hour_cap"`
}

// CoversTime reports whether the local clock time of now lies inside the
// schedule's inclusive [start, end] window. Times are "HH:MM" strings and
// compare lexicographically.
func (s *Schedule) CoversTime(now time.Time) bool {
	if s.TimeRangeStart == "" || s.TimeRangeEnd == "" {
		return false
	}
	hhmm := now.Format("15:04")
	return s.TimeRangeStart <= hhmm && hhmm <= s.TimeRangeEnd
}

// CoversDay reports whether now's weekday is one of the schedule's days.
func (s *Schedule) CoversDay(now time.Time) bool {
	day := now.Weekday().String()
	for _, d := range s.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// CoversDate reports whether now falls on or before the schedule's end date.
// A schedule without an end date is open-ended. Only the upper bound is
// enforced; StartDate is deliberately not checked to preserve the
// established activation behavior.
func (s *Schedule) CoversDate(now time.Time) bool {
	if s.EndDate == "" {
		return true
	}
	return now.Format("2006-01-02") <= s.EndDate
}

// PrefersCategory reports exact membership of categoryID in the schedule's
// preferred categories. Matching is flat, not hierarchical.
func (s *Schedule) PrefersCategory(categoryID int64) bool {
	for _, id := range s.PreferredCategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// AcceptsBudget reports whether the posting's high budget falls inside the
// schedule's range for the posting's job kind. Budget-agnostic postings are
// never passed here.
func (s *Schedule) AcceptsBudget(jobKind string, highBudget int64) bool {
	switch jobKind {
	case JobKindFixed:
		return s.FixedBudgetMin <= highBudget && highBudget <= s.FixedBudgetMax
	case JobKindHourly:
		return s.HourlyBudgetMin <= highBudget && highBudget <= s.HourlyBudgetMax
	default:
		return false
	}
}
