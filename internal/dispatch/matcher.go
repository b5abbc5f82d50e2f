package dispatch

import (
	"time"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// Match computes which users are eligible to bid on posting right now. It is
// a pure predicate: no side effects, no errors. A user matches only when the
// schedule is active, the current time/day/date fall inside its window, the
// posting's category is preferred, the posting's high budget fits the range
// for its job kind (skipped only when no budget is stated at all), and the user's
// credential carries a valid generation key plus a full platform session.
//
// A user with no credential entry is a non-match, not an error. The returned
// slice carries no ordering guarantee between users; fairness is the queue's
// concern.
func Match(posting *domain.Posting, schedules []domain.Schedule, credentials map[int64]domain.Credential, now time.Time) []int64 {
	var eligible []int64
	for i := range schedules {
		s := &schedules[i]
		if !s.IsActive {
			continue
		}
		if !s.CoversTime(now) || !s.CoversDay(now) || !s.CoversDate(now) {
			continue
		}
		if !s.PrefersCategory(posting.CategoryID) {
			continue
		}
		if posting.HasBudget() && !s.AcceptsBudget(posting.JobKind, posting.HighBudget) {
			continue
		}
		cred, ok := credentials[s.UserID]
		if !ok || !cred.EligibleForMatch() {
			continue
		}
		eligible = append(eligible, s.UserID)
	}
	return eligible
}
