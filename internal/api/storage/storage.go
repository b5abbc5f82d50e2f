package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
	"github.com/gptb70564-code/cw-bot/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// InsertPosting stores a newly ingested posting. Postings are keyed by the
// platform's own id, so a replayed ingestion is a no-op; the returned bool
// reports whether the row was actually created.
func (s *Storage) InsertPosting(ctx context.Context, posting *domain.Posting) (bool, error) {
	query := `
		INSERT INTO postings (
			id, category_id, job_kind, low_budget, high_budget,
			title, description, bidder_ids, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, '{}', NOW()
		)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		posting.ID,
		posting.CategoryID,
		posting.JobKind,
		posting.LowBudget,
		posting.HighBudget,
		posting.Title,
		posting.Description,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert posting: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetPosting loads one posting by id.
func (s *Storage) GetPosting(ctx context.Context, postingID int64) (*domain.Posting, error) {
	query := `
		SELECT id, category_id, job_kind, low_budget, high_budget, title, description, bidder_ids
		FROM postings
		WHERE id = $1
	`

	var posting domain.Posting
	var bidders pq.Int64Array

	err := s.db.QueryRowContext(ctx, query, postingID).Scan(
		&posting.ID,
		&posting.CategoryID,
		&posting.JobKind,
		&posting.LowBudget,
		&posting.HighBudget,
		&posting.Title,
		&posting.Description,
		&bidders,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPostingNotFound
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}

	posting.Bidders = []int64(bidders)
	return &posting, nil
}

// UpsertSchedule creates or replaces the user's schedule.
func (s *Storage) UpsertSchedule(ctx context.Context, schedule *domain.Schedule) error {
	query := `
		INSERT INTO schedules (
			user_id, is_active, days_of_week, time_range_start, time_range_end,
			start_date, end_date, preferred_category_ids,
			fixed_budget_min, fixed_budget_max, hourly_budget_min, hourly_budget_max,
			client_budget_preference, preferred_hourly_rate, weekly_hour_cap,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15,
			NOW(), NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			days_of_week = EXCLUDED.days_of_week,
			time_range_start = EXCLUDED.time_range_start,
			time_range_end = EXCLUDED.time_range_end,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			preferred_category_ids = EXCLUDED.preferred_category_ids,
			fixed_budget_min = EXCLUDED.fixed_budget_min,
			fixed_budget_max = EXCLUDED.fixed_budget_max,
			hourly_budget_min = EXCLUDED.hourly_budget_min,
			hourly_budget_max = EXCLUDED.hourly_budget_max,
			client_budget_preference = EXCLUDED.client_budget_preference,
			preferred_hourly_rate = EXCLUDED.preferred_hourly_rate,
			weekly_hour_cap = EXCLUDED.weekly_hour_cap,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		schedule.UserID,
		schedule.IsActive,
		pq.StringArray(schedule.DaysOfWeek),
		schedule.TimeRangeStart,
		schedule.TimeRangeEnd,
		schedule.StartDate,
		schedule.EndDate,
		pq.Int64Array(schedule.PreferredCategoryIDs),
		schedule.FixedBudgetMin,
		schedule.FixedBudgetMax,
		schedule.HourlyBudgetMin,
		schedule.HourlyBudgetMax,
		schedule.ClientBudgetPref,
		schedule.PreferredHourlyRate,
		schedule.WeeklyHourCap,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule: %w", err)
	}

	return nil
}

// GetSchedule loads one user's schedule.
func (s *Storage) GetSchedule(ctx context.Context, userID int64) (*domain.Schedule, error) {
	query := `
		SELECT user_id, is_active, days_of_week, time_range_start, time_range_end,
		       start_date, end_date, preferred_category_ids,
		       fixed_budget_min, fixed_budget_max, hourly_budget_min, hourly_budget_max,
		       client_budget_preference, preferred_hourly_rate, weekly_hour_cap
		FROM schedules
		WHERE user_id = $1
	`

	var schedule domain.Schedule
	var days pq.StringArray
	var categories pq.Int64Array

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&schedule.UserID,
		&schedule.IsActive,
		&days,
		&schedule.TimeRangeStart,
		&schedule.TimeRangeEnd,
		&schedule.StartDate,
		&schedule.EndDate,
		&categories,
		&schedule.FixedBudgetMin,
		&schedule.FixedBudgetMax,
		&schedule.HourlyBudgetMin,
		&schedule.HourlyBudgetMax,
		&schedule.ClientBudgetPref,
		&schedule.PreferredHourlyRate,
		&schedule.WeeklyHourCap,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	schedule.DaysOfWeek = []string(days)
	schedule.PreferredCategoryIDs = []int64(categories)
	return &schedule, nil
}

// UpsertCredential creates or replaces the user's credential row with an
// explicit key status.
func (s *Storage) UpsertCredential(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (
			user_id, session_token, session_cookie, generation_key,
			generation_key_status, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			session_token = EXCLUDED.session_token,
			session_cookie = EXCLUDED.session_cookie,
			generation_key = EXCLUDED.generation_key,
			generation_key_status = EXCLUDED.generation_key_status,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		cred.UserID,
		cred.SessionToken,
		cred.SessionCookie,
		cred.GenerationKey,
		string(cred.KeyStatus),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// GetCredential loads one user's credential.
func (s *Storage) GetCredential(ctx context.Context, userID int64) (*domain.Credential, error) {
	query := `
		SELECT user_id, session_token, session_cookie, generation_key, generation_key_status
		FROM credentials
		WHERE user_id = $1
	`

	var cred domain.Credential
	if err := s.db.GetContext(ctx, &cred, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return &cred, nil
}

// SetKeyStatus stores the result of an independent key validation.
func (s *Storage) SetKeyStatus(ctx context.Context, userID int64, status domain.KeyStatus) error {
	query := `
		UPDATE credentials
		SET generation_key_status = $1,
		    updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, string(status), userID)
	if err != nil {
		return fmt.Errorf("failed to set key status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrCredentialNotFound
	}

	return nil
}

// BidFilter narrows the history listing.
type BidFilter struct {
	UserID    int64
	PostingID int64
	JobKind   string
	PageSize  int
	Cursor    *BidCursor
}

// BidCursor is the keyset position for history pagination.
type BidCursor struct {
	SubmittedAt time.Time
	RecordID    string
}

// ListBidRecords pages through bid history, newest first. One extra row
// beyond PageSize is fetched so the caller can tell whether more results
// exist.
func (s *Storage) ListBidRecords(ctx context.Context, filter BidFilter) ([]domain.BidRecord, error) {
	query := `
		SELECT record_id, user_id, posting_id, category_id,
		       bid_text, job_kind, budget_offered, submitted_at
		FROM bid_records
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != 0 {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.PostingID != 0 {
		query += fmt.Sprintf(" AND posting_id = $%d", argIdx)
		args = append(args, filter.PostingID)
		argIdx++
	}

	if filter.JobKind != "" {
		query += fmt.Sprintf(" AND job_kind = $%d", argIdx)
		args = append(args, filter.JobKind)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (submitted_at, record_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.SubmittedAt, filter.Cursor.RecordID)
		argIdx += 2
	}

	query += " ORDER BY submitted_at DESC, record_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var records []domain.BidRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bid records: %w", err)
	}

	return records, nil
}
