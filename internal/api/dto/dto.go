package dto

// IngestPostingRequest is the payload the ingestion side posts for every
// newly discovered job posting.
type IngestPostingRequest struct {
	ID          int64  `json:"id" binding:"required"`
	CategoryID  int64  `json:"category_id" binding:"required"`
	JobKind     string `json:"job_kind" binding:"required,oneof=fixed hourly"`
	LowBudget   int64  `json:"low_budget"`
	HighBudget  int64  `json:"high_budget"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// UpsertScheduleRequest creates or replaces a user's standing bidding
// preferences.
type UpsertScheduleRequest struct {
	IsActive             bool     `json:"is_active"`
	DaysOfWeek           []string `json:"days_of_week" binding:"required"`
	TimeRangeStart       string   `json:"time_range_start" binding:"required"`
	TimeRangeEnd         string   `json:"time_range_end" binding:"required"`
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	PreferredCategoryIDs []int64  `json:"preferred_category_ids" binding:"required"`
	FixedBudgetMin       int64    `json:"fixed_budget_min"`
	FixedBudgetMax       int64    `json:"fixed_budget_max"`
	HourlyBudgetMin      int64    `json:"hourly_budget_min"`
	HourlyBudgetMax      int64    `json:"hourly_budget_max"`
	ClientBudgetPref     string   `json:"client_budget_preference" binding:"required,oneof=low high"`
	PreferredHourlyRate  int64    `json:"preferred_hourly_rate"`
	WeeklyHourCap        int64    `json:"weekly_hour_cap"`
}

// ScheduleResponse echoes the stored schedule. ActivationBlockedReason is
// set when the requested activation was coerced off because credential
// health does not allow it; the value names the specific reason so the
// corrective action is clear.
type ScheduleResponse struct {
	UserID                  int64    `json:"user_id"`
	IsActive                bool     `json:"is_active"`
	DaysOfWeek              []string `json:"days_of_week"`
	TimeRangeStart          string   `json:"time_range_start"`
	TimeRangeEnd            string   `json:"time_range_end"`
	StartDate               string   `json:"start_date,omitempty"`
	EndDate                 string   `json:"end_date,omitempty"`
	PreferredCategoryIDs    []int64  `json:"preferred_category_ids"`
	FixedBudgetMin          int64    `json:"fixed_budget_min"`
	FixedBudgetMax          int64    `json:"fixed_budget_max"`
	HourlyBudgetMin         int64    `json:"hourly_budget_min"`
	HourlyBudgetMax         int64    `json:"hourly_budget_max"`
	ClientBudgetPref        string   `json:"client_budget_preference"`
	PreferredHourlyRate     int64    `json:"preferred_hourly_rate"`
	WeeklyHourCap           int64    `json:"weekly_hour_cap"`
	ActivationBlockedReason string   `json:"activation_blocked_reason,omitempty"`
}

// UpsertCredentialRequest stores a user's platform session and generation
// key. Changing the key resets its health to unknown until re-validated.
type UpsertCredentialRequest struct {
	SessionToken  string `json:"session_token"`
	SessionCookie string `json:"session_cookie"`
	GenerationKey string `json:"generation_key"`
}

// ListBidsRequest filters the bid history listing.
type ListBidsRequest struct {
	UserID    int64  `form:"user_id"`
	PostingID int64  `form:"posting_id"`
	JobKind   string `form:"job_kind"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

// ListBidsResponse pages through bid history.
type ListBidsResponse struct {
	Bids       []BidRecordDTO `json:"bids"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// BidRecordDTO is one bid history entry.
type BidRecordDTO struct {
	RecordID      string `json:"record_id"`
	UserID        int64  `json:"user_id"`
	PostingID     int64  `json:"posting_id"`
	CategoryID    int64  `json:"category_id"`
	BidText       string `json:"bid_text"`
	JobKind       string `json:"job_kind"`
	BudgetOffered int64  `json:"budget_offered"`
	SubmittedAt   string `json:"submitted_at"`
}
