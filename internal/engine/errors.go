// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ErrNoPartitions is returned by Driver.Run for an empty partition list
var ErrNoPartitions = errors.New("no partitions to crawl")

// ErrorCode represents a specific failure class of the crawl
type ErrorCode string

const (
	ErrCodeFetch             ErrorCode = "FETCH_FAILURE"
	ErrCodeParse             ErrorCode = "PARSE_FAILURE"
	ErrCodeCheckpointWrite   ErrorCode = "CHECKPOINT_WRITE"
	ErrCodeCheckpointCorrupt ErrorCode = "CHECKPOINT_CORRUPT"
	ErrCodeSink              ErrorCode = "SINK_FAILURE"
)

// CrawlError wraps errors with additional context
type CrawlError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Underlying
}

// Is matches another CrawlError by code, otherwise defers to the underlying error
func (e *CrawlError) Is(target error) bool {
	if t, ok := target.(*CrawlError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewCrawlError creates a new CrawlError
func NewCrawlError(code ErrorCode, message string, err error) *CrawlError {
	return &CrawlError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *CrawlError) WithDetail(key string, value interface{}) *CrawlError {
	e.Details[key] = value
	return e
}

// IsCode reports whether err is a CrawlError with the given code
func IsCode(err error, code ErrorCode) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
