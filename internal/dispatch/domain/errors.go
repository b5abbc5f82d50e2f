package domain

import "errors"

var (
	// ErrPostingNotFound is returned when a posting cannot be found for an
	// id that was just enqueued.
	ErrPostingNotFound = errors.New("posting not found")

	// ErrScheduleNotFound is returned when a user has no schedule row.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrCredentialNotFound is returned when a user has no credential row.
	ErrCredentialNotFound = errors.New("credential not found")
)
