package blotto

import "errors"

// Code is a machine-readable rejection reason carried to the offending player.
type Code string

const (
	CodeInvalidMove       Code = "INVALID_MOVE"
	CodeMissingSettings   Code = "MISSING_SETTINGS"
	CodeUnauthorized      Code = "UNAUTHORIZED_SETTINGS_CHANGE"
	CodeInvalidSettings   Code = "INVALID_SETTINGS"
	CodeNotRegistered     Code = "NOT_REGISTERED"
	CodeRoundNotResolved  Code = "ROUND_NOT_RESOLVED"
	CodeRoundResolved     Code = "ROUND_RESOLVED"
	CodeSettingsLocked    Code = "SETTINGS_LOCKED"
	CodeMalformedMove     Code = "MALFORMED_MOVE"
	CodeMalformedSettings Code = "MALFORMED_SETTINGS"
)

// Error is a recoverable, caller-local rejection. It never implies shared state changed.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Is matches on Code so wrapped variants with a different message still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

var (
	ErrInvalidMove      = newError(CodeInvalidMove, "invalid move")
	ErrMissingSettings  = newError(CodeMissingSettings, "no game settings yet")
	ErrUnauthorized     = newError(CodeUnauthorized, "only the settings authority can change settings")
	ErrInvalidSettings  = newError(CodeInvalidSettings, "invalid game settings")
	ErrNotRegistered    = newError(CodeNotRegistered, "player has not joined")
	ErrRoundNotResolved = newError(CodeRoundNotResolved, "round has not resolved yet")
	ErrRoundResolved    = newError(CodeRoundResolved, "round already resolved; waiting for next round")
	ErrSettingsLocked   = newError(CodeSettingsLocked, "settings cannot be changed in this mode")
)

// CodeOf extracts the rejection code from err, defaulting to CodeInvalidMove.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalidMove
}
