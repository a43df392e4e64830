package service

import "errors"

// User-state errors. They are expected outcomes of a request and are
// reported to the caller, never retried.
var (
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrCheckInRequired   = errors.New("check-in required first")
	ErrAlreadyCheckedOut = errors.New("already checked out today")

	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrDuplicateRecord = errors.New("attendance record already exists for this employee and date")

	ErrLeaveNotFound   = errors.New("leave request not found")
	ErrLeaveNotPending = errors.New("leave request is no longer pending")
)

// ValidationError reports bad caller input. Key is an i18n message ID.
type ValidationError struct {
	Key    string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Key + ": " + e.Detail
	}
	return e.Key
}

func invalid(key, detail string) error {
	return &ValidationError{Key: key, Detail: detail}
}
