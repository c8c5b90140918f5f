package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a step failure for retry matching and error routing.
type ErrorCode string

const (
	CodeValidationError      ErrorCode = "VALIDATION_ERROR"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeTabNotFound          ErrorCode = "TAB_NOT_FOUND"
	CodeFrameNotFound        ErrorCode = "FRAME_NOT_FOUND"
	CodeTargetNotFound       ErrorCode = "TARGET_NOT_FOUND"
	CodeElementNotVisible    ErrorCode = "ELEMENT_NOT_VISIBLE"
	CodeNavigationFailed     ErrorCode = "NAVIGATION_FAILED"
	CodeNetworkRequestFailed ErrorCode = "NETWORK_REQUEST_FAILED"
	CodeDownloadFailed       ErrorCode = "DOWNLOAD_FAILED"
	CodeAssertionFailed      ErrorCode = "ASSERTION_FAILED"
	CodeScriptFailed         ErrorCode = "SCRIPT_FAILED"
	CodeUnknown              ErrorCode = "UNKNOWN"
)

// StepError is a classified step failure.
type StepError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *StepError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewStepError builds a classified step error.
func NewStepError(code ErrorCode, format string, args ...any) *StepError {
	return &StepError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsStepError extracts a StepError from err, classifying unknown errors as
// CodeUnknown. Returns nil for a nil error.
func AsStepError(err error) *StepError {
	if err == nil {
		return nil
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}

	return &StepError{Code: CodeUnknown, Message: err.Error()}
}

// CodeOf returns the error code of err, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	if stepErr := AsStepError(err); stepErr != nil {
		return stepErr.Code
	}

	return CodeUnknown
}
