// Credential health state machine for the text-generation key.
//
// Automatic transitions (taken by the engine while dispatching):
//
//	valid ──► invalid     auth-class generation failure
//	valid ──► limited     rate-limit-class generation failure
//
// Recovery is never automatic. Only an independent validation call made by
// the profile-management side may move a key back to valid (or confirm it
// invalid/limited), so a transient failure cannot self-heal into false
// confidence.
package domain

import "fmt"

// KeyStatus is the validity state of a user's generation key.
type KeyStatus string

const (
	KeyStatusUnknown KeyStatus = "unknown"
	KeyStatusValid   KeyStatus = "valid"
	KeyStatusInvalid KeyStatus = "invalid"
	KeyStatusLimited KeyStatus = "limited"
)

// downgrades lists the automatic (engine-taken) transitions. Everything else
// requires the external re-validation path.
var downgrades = map[KeyStatus][]KeyStatus{
	KeyStatusValid: {KeyStatusInvalid, KeyStatusLimited},
}

// ParseKeyStatus converts a raw string to a KeyStatus, returning an error
// for unknown values.
func ParseKeyStatus(s string) (KeyStatus, error) {
	st := KeyStatus(s)
	switch st {
	case KeyStatusUnknown, KeyStatusValid, KeyStatusInvalid, KeyStatusLimited:
		return st, nil
	}
	return "", fmt.Errorf("unknown generation key status %q", s)
}

// CanDowngrade reports whether the engine may move from → to on its own.
func CanDowngrade(from, to KeyStatus) bool {
	for _, s := range downgrades[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Credential holds one user's platform session and generation-key state.
type Credential struct {
	UserID        int64     `db:"user_id"`
	SessionToken  string    `db:"session_token"`
	SessionCookie string    `db:"session_cookie"`
	GenerationKey string    `db:"generation_key"`
	KeyStatus     KeyStatus `db:"generation_key_status"`
}

// SessionComplete reports whether both platform session fields are present.
func (c *Credential) SessionComplete() bool {
	return c.SessionToken != "" && c.SessionCookie != ""
}

// EligibleForMatch reports whether this credential allows the user's
// schedule to match at all: a valid generation key plus a full session.
func (c *Credential) EligibleForMatch() bool {
	return c.KeyStatus == KeyStatusValid && c.SessionComplete()
}
