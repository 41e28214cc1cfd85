// Package event defines the canonical operation-log record and its
// construction rules.
package event

import (
	"time"

	errspkg "github.com/drblury/oplog/internal/runtime/errors"
	idspkg "github.com/drblury/oplog/internal/runtime/ids"
	"github.com/drblury/oplog/internal/runtime/jsoncodec"
	"github.com/drblury/oplog/internal/runtime/sanitize"
)

// StatusSuccess is the status recorded when the caller does not supply one.
const StatusSuccess = "SUCCESS"

// Operation carries the caller-supplied fields of a single operation-log
// entry. Type, Operator, and Target are required; everything else is
// optional. Details and TraceContext accept arbitrary nested values and are
// sanitized during event construction.
type Operation struct {
	// Type classifies the action, e.g. "CREATE_USER".
	Type string
	// Operator identifies the actor performing the operation.
	Operator string
	// Target identifies the affected resource.
	Target string

	// Status of the operation; defaults to StatusSuccess.
	Status string
	// Details is a free-form payload describing the operation.
	Details map[string]any
	// RequestID correlates the operation across services.
	RequestID string
	// SourceIP records where the operation originated.
	SourceIP string
	// UserID and SubuserID identify the affected tenant and sub-tenant.
	UserID    string
	SubuserID string
	// TraceContext carries distributed-trace fields (trace id, parent id,
	// span id).
	TraceContext map[string]any
	// Timestamp overrides the construction-time default. UTC is enforced.
	Timestamp time.Time
}

// OperationLog is the published record. It is constructed by New, immutable
// afterwards, and exists only until the publish call returns. Field names
// match the wire format exactly.
type OperationLog struct {
	OperationID   string         `json:"operation_id"`
	RequestID     string         `json:"request_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	OperationType string         `json:"operation_type"`
	Operator      string         `json:"operator"`
	UserID        string         `json:"user_id,omitempty"`
	SubuserID     string         `json:"subuser_id,omitempty"`
	Target        string         `json:"target"`
	Status        string         `json:"status"`
	Details       map[string]any `json:"details"`
	SourceIP      string         `json:"source_ip,omitempty"`
	Application   string         `json:"application,omitempty"`
	Environment   string         `json:"environment,omitempty"`
	TraceContext  map[string]any `json:"trace_context"`
}

// New builds a fully-populated, validated OperationLog. The operation id is
// assigned here, exactly once; callers never supply it. Returns a
// *errors.ValidationError when a required field is missing or empty. No I/O
// happens during construction.
func New(op Operation, application, environment string) (*OperationLog, error) {
	if op.Type == "" {
		return nil, errspkg.NewValidationError("operation_type")
	}
	if op.Operator == "" {
		return nil, errspkg.NewValidationError("operator")
	}
	if op.Target == "" {
		return nil, errspkg.NewValidationError("target")
	}

	status := op.Status
	if status == "" {
		status = StatusSuccess
	}

	ts := op.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &OperationLog{
		OperationID:   idspkg.NewOperationID(),
		RequestID:     op.RequestID,
		Timestamp:     ts.UTC(),
		OperationType: op.Type,
		Operator:      op.Operator,
		UserID:        op.UserID,
		SubuserID:     op.SubuserID,
		Target:        op.Target,
		Status:        status,
		Details:       sanitize.Mapping(op.Details),
		SourceIP:      op.SourceIP,
		Application:   application,
		Environment:   environment,
		TraceContext:  sanitize.Mapping(op.TraceContext),
	}, nil
}

// Encode serializes the event to its canonical wire form: a UTF-8 JSON
// object with the timestamp as an ISO-8601 string.
func (l *OperationLog) Encode() ([]byte, error) {
	return jsoncodec.Marshal(l)
}
