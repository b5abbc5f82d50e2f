package domain

import "time"

// JobKind mirrors the payment model of a posting on the platform.
const (
	JobKindFixed  = "fixed"
	JobKindHourly = "hourly"
)

// Posting is one externally discovered job opportunity. It is created by the
// ingestion side and, from the engine's point of view, only ever mutated by
// appending to Bidders after a successful submission.
type Posting struct {
	ID          int64   `db:"id"`
	CategoryID  int64   `db:"category_id"`
	JobKind     string  `db:"job_kind"`
	LowBudget   int64   `db:"low_budget"`
	HighBudget  int64   `db:"high_budget"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	Bidders     []int64 `db:"-"`
}

// HasBidder reports whether userID already placed a successful bid on p.
func (p *Posting) HasBidder(userID int64) bool {
	for _, id := range p.Bidders {
		if id == userID {
			return true
		}
	}
	return false
}

// HasBudget reports whether the posting states any budget bound. Only
// postings with no budget at all skip the budget filter; a single stated
// bound is still checked against the schedule's range.
func (p *Posting) HasBudget() bool {
	return p.LowBudget > 0 || p.HighBudget > 0
}

// WorkItem is one (user, posting) pair waiting in the dispatch queue. It is
// never persisted.
type WorkItem struct {
	UserID     int64
	PostingID  int64
	EnqueuedAt time.Time
}

// BidRecord is the immutable history row written once per successful
// submission.
type BidRecord struct {
	RecordID      string    `db:"record_id"`
	UserID        int64     `db:"user_id"`
	PostingID     int64     `db:"posting_id"`
	CategoryID    int64     `db:"category_id"`
	BidText       string    `db:"bid_text"`
	JobKind       string    `db:"job_kind"`
	BudgetOffered int64     `db:"budget_offered"`
	SubmittedAt   time.Time `db:"submitted_at"`
}
