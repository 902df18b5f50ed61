package app

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
)

// ErrNotSaved marks user actions whose event did not reach the journal.
var ErrNotSaved = errors.New("action not saved")

type notSavedError struct {
	cause error
}

func (e *notSavedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrNotSaved, e.cause)
}

func (e *notSavedError) Unwrap() []error {
	return []error{ErrNotSaved, e.cause}
}

func notSaved(err error) error {
	if err == nil {
		return nil
	}
	return &notSavedError{cause: err}
}

// UserMessage renders err for the person at the keyboard. Failed appends
// read "action not saved: <reason>"; other domain errors show their message
// without the cause chain.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotSaved) {
		return err.Error()
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
