package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
	"github.com/gptb70564-code/cw-bot/internal/genai"
	"github.com/gptb70564-code/cw-bot/internal/platform"
)

// Store is the persistence surface the engine needs. The Postgres
// implementation lives in internal/dispatch/storage.
type Store interface {
	GetPosting(ctx context.Context, postingID int64) (*domain.Posting, error)
	AddPostingBidder(ctx context.Context, postingID, userID int64) error
	ListSchedules(ctx context.Context) ([]domain.Schedule, error)
	GetSchedule(ctx context.Context, userID int64) (*domain.Schedule, error)
	ListCredentials(ctx context.Context) ([]domain.Credential, error)
	GetCredential(ctx context.Context, userID int64) (*domain.Credential, error)
	SetKeyStatus(ctx context.Context, userID int64, status domain.KeyStatus) error
	InsertBidRecord(ctx context.Context, record *domain.BidRecord) error
}

// Generator produces bid text for one (user, posting) pair.
type Generator interface {
	Generate(ctx context.Context, apiKey string, posting *domain.Posting) (string, error)
}

// Submitter places one proposal on the external platform.
type Submitter interface {
	Submit(ctx context.Context, req *platform.SubmitRequest) error
}

// DefaultHourCap is used when a schedule does not set a weekly hour cap.
const DefaultHourCap = 35

// Orchestrator executes one dispatch end to end: duplicate check, credential
// gate, text generation, budget computation, submission, and recording.
// Side effects are strictly ordered: key-status downgrades happen before any
// posting mutation, and the posting is only marked after a successful
// external submission.
type Orchestrator struct {
	logger    *slog.Logger
	store     Store
	generator Generator
	submitter Submitter
	recorder  *Recorder
	hourCap   int64
}

// OrchestratorConfig holds orchestrator construction parameters.
type OrchestratorConfig struct {
	Logger         *slog.Logger
	Store          Store
	Generator      Generator
	Submitter      Submitter
	DefaultHourCap int64
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	hourCap := cfg.DefaultHourCap
	if hourCap <= 0 {
		hourCap = DefaultHourCap
	}

	return &Orchestrator{
		logger:    cfg.Logger,
		store:     cfg.Store,
		generator: cfg.Generator,
		submitter: cfg.Submitter,
		recorder:  NewRecorder(cfg.Store, cfg.Logger),
		hourCap:   hourCap,
	}
}

// Run dispatches one bid for (userID, postingID) and returns a typed
// outcome. It never returns an error; the worker loop always proceeds.
func (o *Orchestrator) Run(ctx context.Context, userID, postingID int64) domain.Outcome {
	posting, err := o.store.GetPosting(ctx, postingID)
	if err != nil {
		// A lookup miss for an id that was just enqueued is an invariant
		// violation for this item only.
		o.logger.Error("Failed to load posting for dispatch",
			slog.Int64("posting_id", postingID),
			slog.Any("error", err),
		)
		return domain.Outcome{Code: domain.OutcomeInternalError, Reason: "posting lookup failed: " + err.Error()}
	}

	if posting.HasBidder(userID) {
		return domain.Outcome{Code: domain.OutcomeAlreadyBid}
	}

	cred, err := o.store.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return domain.Outcome{Code: domain.OutcomeCredentialMissing, Reason: "no credential on file"}
		}
		return domain.Outcome{Code: domain.OutcomeCredentialMissing, Reason: err.Error()}
	}

	if !cred.SessionComplete() {
		return domain.Outcome{Code: domain.OutcomeCredentialMissing, Reason: "platform session incomplete"}
	}

	// Fail fast on a known-bad key; do not spend a generation call on it.
	switch cred.KeyStatus {
	case domain.KeyStatusValid:
	case domain.KeyStatusLimited:
		return domain.Outcome{Code: domain.OutcomeKeyLimited, Reason: "generation key rate limited"}
	default:
		return domain.Outcome{Code: domain.OutcomeKeyInvalid, Reason: "generation key not valid"}
	}

	bidText, err := o.generator.Generate(ctx, cred.GenerationKey, posting)
	if err != nil {
		switch {
		case errors.Is(err, genai.ErrUnauthorized):
			o.downgradeKey(ctx, userID, cred.KeyStatus, domain.KeyStatusInvalid)
			return domain.Outcome{Code: domain.OutcomeKeyInvalid, Reason: err.Error()}
		case errors.Is(err, genai.ErrRateLimited):
			o.downgradeKey(ctx, userID, cred.KeyStatus, domain.KeyStatusLimited)
			return domain.Outcome{Code: domain.OutcomeKeyLimited, Reason: err.Error()}
		default:
			return domain.Outcome{Code: domain.OutcomeGenerationFailed, Reason: err.Error()}
		}
	}

	// The client treats a blank completion as an error already; re-check here
	// so no Generator implementation can submit an empty proposal.
	if strings.TrimSpace(bidText) == "" {
		return domain.Outcome{Code: domain.OutcomeGenerationFailed, Reason: "generated bid text is empty"}
	}

	schedule, err := o.store.GetSchedule(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrScheduleNotFound) {
			return domain.Outcome{Code: domain.OutcomeInternalError, Reason: "schedule lookup failed: " + err.Error()}
		}
		// No schedule on file: submit with defaults only.
		schedule = &domain.Schedule{}
	}

	budget := offerBudget(posting, schedule)
	hourCap := schedule.WeeklyHourCap
	if hourCap <= 0 {
		hourCap = o.hourCap
	}

	err = o.submitter.Submit(ctx, &platform.SubmitRequest{
		AuthToken: cred.SessionToken,
		Cookie:    cred.SessionCookie,
		PostingID: posting.ID,
		JobKind:   posting.JobKind,
		Budget:    budget,
		HourCap:   hourCap,
		BidText:   bidText,
	})
	if err != nil {
		// No state mutated: a later cycle may retry this pair naturally.
		return domain.Outcome{Code: domain.OutcomeSubmissionFailed, Reason: err.Error()}
	}

	if err := o.store.AddPostingBidder(ctx, posting.ID, userID); err != nil {
		o.logger.Error("Bid placed but failed to mark posting bidder",
			slog.Int64("user_id", userID),
			slog.Int64("posting_id", posting.ID),
			slog.Any("error", err),
		)
	}

	record := &domain.BidRecord{
		RecordID:      uuid.New().String(),
		UserID:        userID,
		PostingID:     posting.ID,
		CategoryID:    posting.CategoryID,
		BidText:       bidText,
		JobKind:       posting.JobKind,
		BudgetOffered: budget,
		SubmittedAt:   time.Now().UTC(),
	}
	o.recorder.Record(ctx, record)

	return domain.Outcome{Code: domain.OutcomeSubmitted, Record: record}
}

// downgradeKey applies an automatic trust downgrade. The engine may only
// ever lower key trust; recovery goes through the validation endpoint.
func (o *Orchestrator) downgradeKey(ctx context.Context, userID int64, from, to domain.KeyStatus) {
	if !domain.CanDowngrade(from, to) {
		return
	}
	if err := o.store.SetKeyStatus(ctx, userID, to); err != nil {
		o.logger.Error("Failed to downgrade generation key status",
			slog.Int64("user_id", userID),
			slog.String("to", string(to)),
			slog.Any("error", err),
		)
	}
}

// offerBudget computes the amount to offer: the preferred bound of a
// two-sided posting budget, the single stated bound otherwise, or the user's
// preferred hourly rate when the posting carries no usable budget at all.
func offerBudget(posting *domain.Posting, schedule *domain.Schedule) int64 {
	if posting.LowBudget > 0 && posting.HighBudget > 0 {
		if schedule.ClientBudgetPref == domain.BudgetPreferenceLow {
			return posting.LowBudget
		}
		return posting.HighBudget
	}
	if posting.HighBudget > 0 {
		return posting.HighBudget
	}
	if posting.LowBudget > 0 {
		return posting.LowBudget
	}
	return schedule.PreferredHourlyRate
}
