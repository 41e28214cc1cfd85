package errors

import (
	"fmt"

	sterrors "errors"
)

var (
	ErrLoggerRequired    = sterrors.New("oplog: logger is required")
	ErrConfigRequired    = sterrors.New("oplog: configuration is required")
	ErrPublisherRequired = sterrors.New("oplog: transport publisher is required")
	ErrTopicRequired     = sterrors.New("oplog: topic is required")
	ErrBrokersRequired   = sterrors.New("oplog: broker address list is required")
	ErrLoggerClosed      = sterrors.New("oplog: operate logger is closed")
	ErrAckTimeout        = sterrors.New("oplog: broker acknowledgment timed out")
)

// ValidationError reports a required operation field that is missing or empty.
// It is raised locally before any transport I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("oplog: invalid operation: field %q %s", e.Field, e.Reason)
}

// NewValidationError reports that the named required field is missing or empty.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required and must be non-empty"}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return sterrors.As(err, &ve)
}

// BrokerError wraps a failed send or a missed acknowledgment. The event
// carrying OperationID is considered not durably delivered.
type BrokerError struct {
	OperationID string
	Err         error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("oplog: broker delivery failed for operation %s: %v", e.OperationID, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// NewBrokerError wraps err with the affected operation id. Returns nil when
// err is nil.
func NewBrokerError(operationID string, err error) error {
	if err == nil {
		return nil
	}
	return &BrokerError{OperationID: operationID, Err: err}
}

// IsBroker reports whether err is (or wraps) a BrokerError.
func IsBroker(err error) bool {
	var be *BrokerError
	return sterrors.As(err, &be)
}

// ConfigValidationError wraps configuration problems detected at construction
// time, before any broker connection is established.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "oplog: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err in a ConfigValidationError. Returns nil
// when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
