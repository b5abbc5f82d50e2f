package domain

// OutcomeCode classifies the result of one dispatch attempt.
type OutcomeCode string

const (
	OutcomeSubmitted         OutcomeCode = "SUBMITTED"
	OutcomeAlreadyBid        OutcomeCode = "ALREADY_BID"
	OutcomeCredentialMissing OutcomeCode = "CREDENTIAL_MISSING"
	OutcomeKeyInvalid        OutcomeCode = "KEY_INVALID"
	OutcomeKeyLimited        OutcomeCode = "KEY_LIMITED"
	OutcomeGenerationFailed  OutcomeCode = "GENERATION_FAILED"
	OutcomeSubmissionFailed  OutcomeCode = "SUBMISSION_FAILED"
	OutcomeInternalError     OutcomeCode = "INTERNAL_ERROR"
)

// Outcome is the typed result of orchestrating one (user, posting) pair.
// The worker loop never sees an error from orchestration, only an Outcome,
// so it can always proceed to the next item.
type Outcome struct {
	Code   OutcomeCode
	Reason string
	Record *BidRecord // set only when Code == OutcomeSubmitted
}

// Success reports whether a bid was actually placed.
func (o Outcome) Success() bool {
	return o.Code == OutcomeSubmitted
}
