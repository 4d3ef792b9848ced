package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// StageError is a document scoped failure. The processor records it on the
// document and does not return it to the caller.
type StageError struct {
	Code    constants.ErrorCode
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(code constants.ErrorCode, message string, err error) *StageError {
	if message == "" {
		message = code.Message()
	}
	return &StageError{Code: code, Message: message, Err: err}
}

func asStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}
