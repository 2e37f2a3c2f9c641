package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeNetwork      = "NETWORK_FAILED"
	ErrCodeHTTPStatus   = "HTTP_STATUS"
	ErrCodeExtraction   = "EXTRACTION_FAILED"
	ErrCodeIO           = "IO_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnsupported  = "UNSUPPORTED_SITE"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeBrowser      = "BROWSER_CRASH"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DownloadError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type DownloadError struct {
	Code    string
	Message string
	Status  int   // HTTP status for ErrCodeHTTPStatus, 0 otherwise
	Err     error // wrapped original error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(code, message string, err error) *DownloadError {
	return &DownloadError{Code: code, Message: message, Err: err}
}

// NewHTTPStatusError creates a DownloadError for a non-success HTTP status.
func NewHTTPStatusError(status int, message string) *DownloadError {
	return &DownloadError{Code: ErrCodeHTTPStatus, Message: message, Status: status}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *DownloadError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the error code of err, or ErrCodeInternal when err does not
// carry one. It unwraps through fmt.Errorf chains.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}
