package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// Storage handles all database operations for the dispatch engine.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance.
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetPosting loads one posting by id, bidders included.
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

// AddPostingBidder appends userID to the posting's bidder set. The append is
// conditional so the set stays duplicate-free no matter how often it is
// called for the same pair.
func (s *Storage) AddPostingBidder(ctx context.Context, postingID, userID int64) error {
	query := `
		UPDATE postings
		SET bidder_ids = array_append(bidder_ids, $1)
		WHERE id = $2
		  AND NOT ($1 = ANY(bidder_ids))
	`

	if _, err := s.db.ExecContext(ctx, query, userID, postingID); err != nil {
		return fmt.Errorf("failed to add posting bidder: %w", err)
	}

	s.logger.Debug("Posting bidder recorded",
		slog.Int64("posting_id", postingID),
		slog.Int64("user_id", userID),
	)

	return nil
}

const scheduleColumns = `
	user_id, is_active, days_of_week, time_range_start, time_range_end,
	start_date, end_date, preferred_category_ids,
	fixed_budget_min, fixed_budget_max, hourly_budget_min, hourly_budget_max,
	client_budget_preference, preferred_hourly_rate, weekly_hour_cap
`

// scanSchedule scans one schedule row, unpacking the array columns.
func scanSchedule(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Schedule, error) {
	var sc domain.Schedule
	var days pq.StringArray
	var categories pq.Int64Array

	err := row.Scan(
		&sc.UserID,
		&sc.IsActive,
		&days,
		&sc.TimeRangeStart,
		&sc.TimeRangeEnd,
		&sc.StartDate,
		&sc.EndDate,
		&categories,
		&sc.FixedBudgetMin,
		&sc.FixedBudgetMax,
		&sc.HourlyBudgetMin,
		&sc.HourlyBudgetMax,
		&sc.ClientBudgetPref,
		&sc.PreferredHourlyRate,
		&sc.WeeklyHourCap,
	)
	if err != nil {
		return nil, err
	}

	sc.DaysOfWeek = []string(days)
	sc.PreferredCategoryIDs = []int64(categories)
	return &sc, nil
}

// ListSchedules loads every schedule row.
func (s *Storage) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}

	return schedules, nil
}

// GetSchedule loads one user's schedule.
func (s *Storage) GetSchedule(ctx context.Context, userID int64) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1`

	sc, err := scanSchedule(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return sc, nil
}

// ListCredentials loads every credential row.
func (s *Storage) ListCredentials(ctx context.Context) ([]domain.Credential, error) {
	query := `
		SELECT user_id, session_token, session_cookie, generation_key, generation_key_status
		FROM credentials
	`

	var credentials []domain.Credential
	if err := s.db.SelectContext(ctx, &credentials, query); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return credentials, nil
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

// SetKeyStatus updates one user's generation key status.
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

	s.logger.Info("Generation key status updated",
		slog.Int64("user_id", userID),
		slog.String("status", string(status)),
	)

	return nil
}

// InsertBidRecord appends one bid record. Records are immutable once
// written.
func (s *Storage) InsertBidRecord(ctx context.Context, record *domain.BidRecord) error {
	query := `
		INSERT INTO bid_records (
			record_id, user_id, posting_id, category_id,
			bid_text, job_kind, budget_offered, submitted_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		record.RecordID,
		record.UserID,
		record.PostingID,
		record.CategoryID,
		record.BidText,
		record.JobKind,
		record.BudgetOffered,
		record.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid record: %w", err)
	}

	return nil
}
