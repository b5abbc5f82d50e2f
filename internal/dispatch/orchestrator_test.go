package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
	"github.com/gptb70564-code/cw-bot/internal/genai"
	"github.com/gptb70564-code/cw-bot/internal/platform"
)

// fakeStore is an in-memory Store for orchestration tests.
type fakeStore struct {
	postings    map[int64]*domain.Posting
	schedules   map[int64]*domain.Schedule
	credentials map[int64]*domain.Credential
	records     []*domain.BidRecord

	postingErr   error
	scheduleErr  error
	schedulesErr error
	bidderErr    error
	recordErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		postings:    make(map[int64]*domain.Posting),
		schedules:   make(map[int64]*domain.Schedule),
		credentials: make(map[int64]*domain.Credential),
	}
}

func (f *fakeStore) GetPosting(ctx context.Context, postingID int64) (*domain.Posting, error) {
	if f.postingErr != nil {
		return nil, f.postingErr
	}
	p, ok := f.postings[postingID]
	if !ok {
		return nil, domain.ErrPostingNotFound
	}
	cp := *p
	cp.Bidders = append([]int64(nil), p.Bidders...)
	return &cp, nil
}

func (f *fakeStore) AddPostingBidder(ctx context.Context, postingID, userID int64) error {
	if f.bidderErr != nil {
		return f.bidderErr
	}
	p, ok := f.postings[postingID]
	if !ok {
		return domain.ErrPostingNotFound
	}
	if !p.HasBidder(userID) {
		p.Bidders = append(p.Bidders, userID)
	}
	return nil
}

func (f *fakeStore) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	if f.schedulesErr != nil {
		return nil, f.schedulesErr
	}
	var out []domain.Schedule
	for _, s := range f.schedules {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) GetSchedule(ctx context.Context, userID int64) (*domain.Schedule, error) {
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	s, ok := f.schedules[userID]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListCredentials(ctx context.Context) ([]domain.Credential, error) {
	var out []domain.Credential
	for _, c := range f.credentials {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) GetCredential(ctx context.Context, userID int64) (*domain.Credential, error) {
	c, ok := f.credentials[userID]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) SetKeyStatus(ctx context.Context, userID int64, status domain.KeyStatus) error {
	c, ok := f.credentials[userID]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	c.KeyStatus = status
	return nil
}

func (f *fakeStore) InsertBidRecord(ctx context.Context, record *domain.BidRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, record)
	return nil
}

// fakeGenerator returns canned text or a canned error.
type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, apiKey string, posting *domain.Posting) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeSubmitter records submissions and can fail on demand.
type fakeSubmitter struct {
	err      error
	requests []*platform.SubmitRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req *platform.SubmitRequest) error {
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func testOrchestrator(store *fakeStore, gen *fakeGenerator, sub *fakeSubmitter) *Orchestrator {
	return NewOrchestrator(&OrchestratorConfig{
		Logger:    testLogger(),
		Store:     store,
		Generator: gen,
		Submitter: sub,
	})
}

func seedStore() *fakeStore {
	store := newFakeStore()
	store.postings[100] = &domain.Posting{
		ID:          100,
		CategoryID:  7,
		JobKind:     domain.JobKindFixed,
		LowBudget:   200,
		HighBudget:  800,
		Title:       "Build a data pipeline",
		Description: "ETL work",
	}
	store.schedules[1] = &domain.Schedule{
		UserID:              1,
		ClientBudgetPref:    domain.BudgetPreferenceHigh,
		PreferredHourlyRate: 45,
		WeeklyHourCap:       20,
	}
	store.credentials[1] = &domain.Credential{
		UserID:        1,
		SessionToken:  "tok",
		SessionCookie: "cookie",
		GenerationKey: "sk-test",
		KeyStatus:     domain.KeyStatusValid,
	}
	return store
}

func TestOrchestrator_SuccessfulDispatch(t *testing.T) {
	store := seedStore()
	gen := &fakeGenerator{text: "I can deliver this."}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeSubmitted, outcome.Code)
	assert.True(t, outcome.Success())

	require.NotNil(t, outcome.Record)
	assert.Equal(t, int64(1), outcome.Record.UserID)
	assert.Equal(t, int64(100), outcome.Record.PostingID)
	assert.Equal(t, "I can deliver this.", outcome.Record.BidText)
	assert.Equal(t, int64(800), outcome.Record.BudgetOffered)
	assert.NotEmpty(t, outcome.Record.RecordID)

	require.Len(t, sub.requests, 1)
	req := sub.requests[0]
	assert.Equal(t, "tok", req.AuthToken)
	assert.Equal(t, "cookie", req.Cookie)
	assert.Equal(t, int64(800), req.Budget)
	assert.Equal(t, int64(20), req.HourCap)

	assert.True(t, store.postings[100].HasBidder(1))
	require.Len(t, store.records, 1)
}

func TestOrchestrator_AlreadyBid(t *testing.T) {
	store := seedStore()
	store.postings[100].Bidders = []int64{1}
	gen := &fakeGenerator{text: "unused"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeAlreadyBid, outcome.Code)
	assert.Zero(t, gen.calls)
	assert.Empty(t, sub.requests)
	assert.Empty(t, store.records)
}

func TestOrchestrator_CredentialMissing(t *testing.T) {
	store := seedStore()
	delete(store.credentials, 1)
	gen := &fakeGenerator{text: "unused"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeCredentialMissing, outcome.Code)
	assert.Zero(t, gen.calls)
}

func TestOrchestrator_IncompleteSession(t *testing.T) {
	store := seedStore()
	store.credentials[1].SessionCookie = ""
	gen := &fakeGenerator{text: "unused"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeCredentialMissing, outcome.Code)
	assert.Zero(t, gen.calls)
}

func TestOrchestrator_KnownBadKeyFailsFast(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.KeyStatus
		expected domain.OutcomeCode
	}{
		{
			name:     "invalid key",
			status:   domain.KeyStatusInvalid,
			expected: domain.OutcomeKeyInvalid,
		},
		{
			name:     "unvalidated key",
			status:   domain.KeyStatusUnknown,
			expected: domain.OutcomeKeyInvalid,
		},
		{
			name:     "limited key",
			status:   domain.KeyStatusLimited,
			expected: domain.OutcomeKeyLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore()
			store.credentials[1].KeyStatus = tt.status
			gen := &fakeGenerator{text: "unused"}
			sub := &fakeSubmitter{}

			outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

			assert.Equal(t, tt.expected, outcome.Code)
			// Fail fast: the generation service must not be called.
			assert.Zero(t, gen.calls)
		})
	}
}

func TestOrchestrator_AuthFailureDowngradesKey(t *testing.T) {
	store := seedStore()
	gen := &fakeGenerator{err: genai.ErrUnauthorized}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeKeyInvalid, outcome.Code)
	assert.Equal(t, domain.KeyStatusInvalid, store.credentials[1].KeyStatus)
	assert.Empty(t, sub.requests)
	assert.False(t, store.postings[100].HasBidder(1))
}

func TestOrchestrator_RateLimitDowngradesKey(t *testing.T) {
	store := seedStore()
	gen := &fakeGenerator{err: genai.ErrRateLimited}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeKeyLimited, outcome.Code)
	assert.Equal(t, domain.KeyStatusLimited, store.credentials[1].KeyStatus)
	assert.Empty(t, sub.requests)
}

func TestOrchestrator_GenerationFailureLeavesKeyAlone(t *testing.T) {
	store := seedStore()
	gen := &fakeGenerator{err: errors.New("upstream timeout")}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeGenerationFailed, outcome.Code)
	// A non-auth, non-rate-limit failure must not touch key trust.
	assert.Equal(t, domain.KeyStatusValid, store.credentials[1].KeyStatus)
}

func TestOrchestrator_BlankBidTextIsGenerationFailure(t *testing.T) {
	store := seedStore()
	gen := &fakeGenerator{text: "  \n\t"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	// Whitespace-only text never reaches the platform.
	assert.Equal(t, domain.OutcomeGenerationFailed, outcome.Code)
	assert.Empty(t, sub.requests)
	assert.Equal(t, domain.KeyStatusValid, store.credentials[1].KeyStatus)
}

func TestOrchestrator_PostingLookupFailureIsInternal(t *testing.T) {
	store := seedStore()
	store.postingErr = errors.New("connection refused")
	gen := &fakeGenerator{text: "unused"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeInternalError, outcome.Code)
	assert.Zero(t, gen.calls)
	assert.Empty(t, sub.requests)
}

func TestOrchestrator_ScheduleLookupFailureIsInternal(t *testing.T) {
	store := seedStore()
	store.scheduleErr = errors.New("connection refused")
	gen := &fakeGenerator{text: "bid text"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	// A real lookup failure is not the same as no schedule on file; the
	// latter submits with defaults.
	assert.Equal(t, domain.OutcomeInternalError, outcome.Code)
	assert.Empty(t, sub.requests)
}

func TestOrchestrator_SubmissionFailureMutatesNothing(t *testing.T) {
	store := seedStore()
	gen := &fakeGenerator{text: "bid text"}
	sub := &fakeSubmitter{err: errors.New("502 bad gateway")}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeSubmissionFailed, outcome.Code)
	assert.False(t, store.postings[100].HasBidder(1))
	assert.Empty(t, store.records)
}

func TestOrchestrator_RecordFailureDoesNotUndoBid(t *testing.T) {
	store := seedStore()
	store.recordErr = errors.New("insert failed")
	gen := &fakeGenerator{text: "bid text"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	// The bid stands even when the history row cannot be written.
	assert.Equal(t, domain.OutcomeSubmitted, outcome.Code)
	assert.True(t, store.postings[100].HasBidder(1))
}

func TestOrchestrator_NoScheduleUsesDefaults(t *testing.T) {
	store := seedStore()
	delete(store.schedules, 1)
	gen := &fakeGenerator{text: "bid text"}
	sub := &fakeSubmitter{}

	outcome := testOrchestrator(store, gen, sub).Run(context.Background(), 1, 100)

	assert.Equal(t, domain.OutcomeSubmitted, outcome.Code)
	require.Len(t, sub.requests, 1)
	// No budget preference on file: the high bound wins, and the default
	// hour cap applies.
	assert.Equal(t, int64(800), sub.requests[0].Budget)
	assert.Equal(t, int64(DefaultHourCap), sub.requests[0].HourCap)
}

func TestOfferBudget(t *testing.T) {
	tests := []struct {
		name     string
		posting  domain.Posting
		schedule domain.Schedule
		expected int64
	}{
		{
			name:     "both bounds with low preference",
			posting:  domain.Posting{LowBudget: 200, HighBudget: 800},
			schedule: domain.Schedule{ClientBudgetPref: domain.BudgetPreferenceLow},
			expected: 200,
		},
		{
			name:     "both bounds with high preference",
			posting:  domain.Posting{LowBudget: 200, HighBudget: 800},
			schedule: domain.Schedule{ClientBudgetPref: domain.BudgetPreferenceHigh},
			expected: 800,
		},
		{
			name:     "both bounds with no preference",
			posting:  domain.Posting{LowBudget: 200, HighBudget: 800},
			schedule: domain.Schedule{},
			expected: 800,
		},
		{
			name:     "only high bound",
			posting:  domain.Posting{HighBudget: 500},
			schedule: domain.Schedule{ClientBudgetPref: domain.BudgetPreferenceLow},
			expected: 500,
		},
		{
			name:     "only low bound",
			posting:  domain.Posting{LowBudget: 300},
			schedule: domain.Schedule{},
			expected: 300,
		},
		{
			name:     "no bounds falls back to preferred hourly rate",
			posting:  domain.Posting{},
			schedule: domain.Schedule{PreferredHourlyRate: 45},
			expected: 45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, offerBudget(&tt.posting, &tt.schedule))
		})
	}
}
