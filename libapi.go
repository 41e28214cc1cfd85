package oplog

import (
	runtimepkg "github.com/drblury/oplog/internal/runtime"
	configpkg "github.com/drblury/oplog/internal/runtime/config"
	errspkg "github.com/drblury/oplog/internal/runtime/errors"
	eventpkg "github.com/drblury/oplog/internal/runtime/event"
	idspkg "github.com/drblury/oplog/internal/runtime/ids"
	jsoncodec "github.com/drblury/oplog/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/oplog/internal/runtime/logging"
	metadatapkg "github.com/drblury/oplog/internal/runtime/metadata"
	sanitizepkg "github.com/drblury/oplog/internal/runtime/sanitize"
	transportpkg "github.com/drblury/oplog/transport"
)

type (
	Config        = configpkg.Config
	SASL          = configpkg.SASL
	OperateLogger = runtimepkg.OperateLogger
	Dependencies  = runtimepkg.Dependencies

	Operation    = eventpkg.Operation
	OperationLog = eventpkg.OperationLog

	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	ValidationError       = errspkg.ValidationError
	BrokerError           = errspkg.BrokerError
	ConfigValidationError = errspkg.ConfigValidationError

	// Publish lifecycle hooks
	PublishContext = runtimepkg.PublishContext
	PublishHooks   = runtimepkg.PublishHooks

	// Publish metrics
	PublishMetrics = runtimepkg.PublishMetrics

	// File-like values recognized by the sanitizer
	FileLike = sanitizepkg.FileLike

	// Transport types
	Transport        = transportpkg.Transport
	TransportBuilder = transportpkg.Builder
	TransportConfig  = transportpkg.Config
	TransportFlusher = transportpkg.Flusher
	Registry         = transportpkg.Registry
	Capabilities     = transportpkg.Capabilities
)

var (
	New            = runtimepkg.New
	ValidateConfig = configpkg.ValidateConfig

	// Publish lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	AlertingHooks = runtimepkg.AlertingHooks

	// Publish metrics
	NewPublishMetrics = runtimepkg.NewPublishMetrics

	// Sanitizer entry points
	Sanitize        = sanitizepkg.Value
	SanitizeMapping = sanitizepkg.Mapping

	// Trace context helper for the trace_context event field
	TraceContext = runtimepkg.TraceContext

	// Operation-type inference for HTTP adapters
	OperationTypeForMethod = runtimepkg.OperationTypeForMethod

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrTopicRequired     = errspkg.ErrTopicRequired
	ErrBrokersRequired   = errspkg.ErrBrokersRequired
	ErrLoggerClosed      = errspkg.ErrLoggerClosed
	ErrAckTimeout        = errspkg.ErrAckTimeout

	IsValidation = errspkg.IsValidation
	IsBroker     = errspkg.IsBroker

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	NewMetadata = metadatapkg.New

	// NewOperationID generates a fresh UUIDv4 operation id.
	NewOperationID = idspkg.NewOperationID

	// Transport registry
	// Import individual transports via: _ "github.com/drblury/oplog/transport/kafka"
	// or pull in all of them with _ "github.com/drblury/oplog/transport/transports".
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	GetCapabilities          = transportpkg.GetCapabilities
)

// StatusSuccess is the default event status.
const StatusSuccess = eventpkg.StatusSuccess

// EventSchema is the schema name stamped into message metadata.
const EventSchema = runtimepkg.EventSchema

// Metadata keys - use these constants for standard header fields.
const (
	MetadataKeyOperationID   = metadatapkg.KeyOperationID
	MetadataKeyEventSchema   = metadatapkg.KeyEventSchema
	MetadataKeyApplication   = metadatapkg.KeyApplication
	MetadataKeyEnvironment   = metadatapkg.KeyEnvironment
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
)

// NewEntryServiceLogger wraps an entry-style logger (for example a
// logrus.Entry) so it can be supplied to New.
func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
