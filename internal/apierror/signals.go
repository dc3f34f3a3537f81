package apierror

import (
	"errors"
	"fmt"
)

// ErrRecoverable unwinds to the nearest per-record boundary. The diagnostic
// is already in the collector when it is returned, so callers must not
// report it again.
var ErrRecoverable = errors.New("recoverable failure")

// ErrNotImplemented marks the parts of the plan pipeline that do not exist yet.
var ErrNotImplemented = errors.New("not yet implemented")

// FeedbackError carries a message meant to be shown to the operator as is.
type FeedbackError struct {
	Message string
	Err     error
}

func (e *FeedbackError) Error() string { return e.Message }

func (e *FeedbackError) Unwrap() error { return e.Err }

// Feedback builds a FeedbackError from a format string.
func Feedback(format string, args ...any) error {
	return &FeedbackError{Message: fmt.Sprintf(format, args...)}
}

// WrapFeedback attaches an operator message to a lower-level cause.
func WrapFeedback(err error, format string, args ...any) error {
	return &FeedbackError{Message: fmt.Sprintf(format, args...), Err: err}
}

// AsFeedback extracts the FeedbackError in err's chain, if any.
func AsFeedback(err error) (*FeedbackError, bool) {
	var fe *FeedbackError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
