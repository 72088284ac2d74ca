// Package errors provides standardized error handling for the notification pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Producer enqueued a job type this consumer has no builder for.
	ErrCodeUnknownJobType ErrorCode = "UNKNOWN_JOB_TYPE"
	// A required payload field is missing or malformed.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// The notification store write failed.
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"
	// A single live connection's send failed. Contained to the publisher.
	ErrCodeDelivery ErrorCode = "DELIVERY_ERROR"

	ErrCodeQueueDecode      ErrorCode = "QUEUE_DECODE_ERROR"
	ErrCodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// DispatchError represents a structured pipeline error.
type DispatchError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("DispatchError[%s]: %s", e.Code, e.Message)
}

func (e *DispatchError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUnknownJobTypeError creates a non-retryable error for an unmatched job type.
// This is a producer/consumer version mismatch, not a transient fault.
func NewUnknownJobTypeError(jobType string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeUnknownJobType,
		Message:   "No builder registered for job type",
		Details:   fmt.Sprintf("jobType: %s", jobType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable payload validation error.
func NewValidationError(jobType, details string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeValidation,
		Message:   "Job payload validation failed",
		Details:   fmt.Sprintf("jobType: %s, %s", jobType, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable store write error.
func NewPersistenceError(err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodePersistence,
		Message:   "Notification store write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDeliveryError creates an error for a single connection's failed send.
// The publisher contains these; they never reach the queue.
func NewDeliveryError(connID string, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeDelivery,
		Message:   "Live delivery to connection failed",
		Details:   fmt.Sprintf("connId: %s, error: %s", connID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRetriesExhaustedError marks a job that failed every allowed delivery
// attempt and is being dead-lettered.
func NewRetriesExhaustedError(jobType string, attempts int64) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeRetriesExhausted,
		Message:   "Job exhausted its redelivery budget",
		Details:   fmt.Sprintf("jobType: %s, attempts: %d", jobType, attempts),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueDecodeError creates a non-retryable error for an undecodable queue entry.
func NewQueueDecodeError(err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeQueueDecode,
		Message:   "Queue entry could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsDispatchError normalizes any error to a DispatchError.
func AsDispatchError(err error) *DispatchError {
	var de *DispatchError
	if errors.As(err, &de) {
		return de
	}
	return &DispatchError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// IsRetryable reports whether the job should be redelivered by the queue.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return AsDispatchError(err).Retryable
}

// CodeOf returns the error code for metrics labels.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsDispatchError(err).Code
}
