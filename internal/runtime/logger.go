package runtime

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/drblury/oplog/internal/runtime/config"
	errspkg "github.com/drblury/oplog/internal/runtime/errors"
	eventpkg "github.com/drblury/oplog/internal/runtime/event"
	idspkg "github.com/drblury/oplog/internal/runtime/ids"
	loggingpkg "github.com/drblury/oplog/internal/runtime/logging"
	metadatapkg "github.com/drblury/oplog/internal/runtime/metadata"
	transportpkg "github.com/drblury/oplog/transport"
)

// EventSchema identifies the wire format carried in the message metadata.
const EventSchema = "operation_log"

// Dependencies holds the optional collaborators of an OperateLogger.
// Leave fields nil/zero to use the defaults.
type Dependencies struct {
	// Publisher bypasses the transport registry entirely. Used in tests and
	// by callers that bring their own Watermill publisher.
	Publisher message.Publisher

	// Registry selects the transports to build from. Nil means the default
	// registry with all imported transports.
	Registry *transportpkg.Registry

	// Hooks are invoked around every publish attempt.
	Hooks PublishHooks
}

// OperateLogger publishes operation-log events to the configured broker.
// Safe for concurrent use; each publish blocks until the broker acknowledges
// the event or the configured ack timeout elapses.
type OperateLogger struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher message.Publisher
	state     *lifecycleState
	hooks     PublishHooks
	metrics   *PublishMetrics
	hostname  string
}

// lifecycleState owns the flush-and-close sequence. It is separate from
// OperateLogger so runtime.AddCleanup can run it after the logger itself
// becomes unreachable.
type lifecycleState struct {
	closed       atomic.Bool
	publisher    message.Publisher
	flushTimeout time.Duration
	log          loggingpkg.ServiceLogger
}

func (s *lifecycleState) close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.publisher.Close()
}

func (s *lifecycleState) flush(timeout time.Duration) error {
	flusher, ok := s.publisher.(transportpkg.Flusher)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return flusher.Flush(ctx)
}

func (s *lifecycleState) cleanup() {
	if s.closed.Load() {
		return
	}
	if err := s.flush(s.flushTimeout); err != nil {
		s.log.Error("Failed to flush publisher during cleanup", err, nil)
	}
	if err := s.close(); err != nil {
		s.log.Error("Failed to close publisher during cleanup", err, nil)
	}
}

// New constructs an OperateLogger for the supplied configuration. The config
// is validated before any connection is attempted; a validation failure is
// returned as *errors.ConfigValidationError.
func New(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps Dependencies) (*OperateLogger, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	merged := conf.WithDefaults()
	if err := merged.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	log.Info("Creating operate logger",
		loggingpkg.LogFields{
			"transport": merged.GetTransport(),
			"topic":     merged.Topic,
			"config":    merged.String(),
		})

	publisher := deps.Publisher
	if publisher == nil {
		registry := deps.Registry
		if registry == nil {
			registry = transportpkg.DefaultRegistry
		}
		built, err := registry.Build(ctx, &merged, loggingpkg.NewWatermillAdapter(log))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s transport: %w", merged.GetTransport(), err)
		}
		publisher = built.Publisher
	}
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}

	hostname, _ := os.Hostname()

	l := &OperateLogger{
		Conf:      &merged,
		Logger:    log,
		publisher: publisher,
		hooks:     deps.Hooks,
		hostname:  hostname,
		state: &lifecycleState{
			publisher:    publisher,
			flushTimeout: merged.FlushTimeout,
			log:          log,
		},
	}

	if !merged.DisableMetrics {
		l.metrics = NewPublishMetrics(merged.MetricsRegisterer)
		if err := l.metrics.Register(); err != nil {
			log.Error("Failed to register publish metrics", err, nil)
		}
	}

	if merged.AutoCleanup {
		goruntime.AddCleanup(l, func(s *lifecycleState) { s.cleanup() }, l.state)
	}

	return l, nil
}

// Hostname returns the host name captured at construction, as stamped into
// the publish diagnostics.
func (l *OperateLogger) Hostname() string {
	return l.hostname
}

// LogOperation validates op, builds an event, and publishes it to the
// configured topic. It blocks until the broker acknowledges the event or the
// ack timeout elapses, then returns the event's operation id. Failures after
// validation are returned as *errors.BrokerError wrapping the cause.
func (l *OperateLogger) LogOperation(ctx context.Context, op eventpkg.Operation) (string, error) {
	if l.state.closed.Load() {
		return "", errspkg.ErrLoggerClosed
	}

	evt, err := eventpkg.New(op, l.Conf.Application, l.Conf.Environment)
	if err != nil {
		return "", err
	}

	payload, err := evt.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode event payload: %w", err)
	}

	msg := message.NewMessage(idspkg.NewMessageID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
		metadatapkg.KeyOperationID, evt.OperationID,
		metadatapkg.KeyEventSchema, EventSchema,
	).WithNonEmpty(metadatapkg.KeyApplication, evt.Application).
		WithNonEmpty(metadatapkg.KeyEnvironment, evt.Environment).
		WithNonEmpty(metadatapkg.KeyCorrelationID, evt.RequestID))
	if ctx != nil {
		msg.SetContext(ctx)
	}

	pubCtx := PublishContext{
		OperationID:   evt.OperationID,
		OperationType: evt.OperationType,
		Topic:         l.Conf.Topic,
		MessageUUID:   msg.UUID,
		Metadata:      msg.Metadata,
		Context:       ctx,
		StartedAt:     time.Now(),
	}
	if l.hooks.OnPublish != nil {
		l.hooks.OnPublish(pubCtx)
	}

	publishErr := l.publishWait(msg)
	pubCtx.Duration = time.Since(pubCtx.StartedAt)

	// The local diagnostic mirror is emitted whether or not the broker
	// accepted the event.
	l.Logger.Info("Operation logged", loggingpkg.LogFields{
		"operation_id":   evt.OperationID,
		"operation_type": evt.OperationType,
		"operator":       evt.Operator,
		"target":         evt.Target,
		"status":         evt.Status,
		"topic":          l.Conf.Topic,
		"hostname":       l.hostname,
		"delivered":      publishErr == nil,
	})

	if publishErr != nil {
		l.Logger.Error("Failed to publish operation log", publishErr, loggingpkg.LogFields{
			"operation_id": evt.OperationID,
			"topic":        l.Conf.Topic,
			"transport":    l.Conf.GetTransport(),
		})
		l.metrics.RecordFailure(l.Conf.GetTransport(), l.Conf.Topic)
		if l.hooks.OnError != nil {
			l.hooks.OnError(pubCtx, publishErr)
		}
		return "", errspkg.NewBrokerError(evt.OperationID, publishErr)
	}

	l.metrics.RecordPublished(l.Conf.GetTransport(), l.Conf.Topic, evt.Status, pubCtx.Duration)
	if l.hooks.OnPublished != nil {
		l.hooks.OnPublished(pubCtx)
	}

	return evt.OperationID, nil
}

// publishWait bounds the synchronous publish with the configured ack timeout.
// The publish itself is not cancelled mid-flight; a late ack after the
// deadline is discarded.
func (l *OperateLogger) publishWait(msg *message.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- l.publisher.Publish(l.Conf.Topic, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(l.Conf.AckTimeout):
		return errspkg.ErrAckTimeout
	}
}

// LogBatch publishes the operations strictly sequentially, in input order.
// The first validation or broker failure aborts the batch: the error is
// returned, no identifier slice is produced, and later operations are never
// sent. Records published before the failure are not rolled back.
func (l *OperateLogger) LogBatch(ctx context.Context, ops []eventpkg.Operation) ([]string, error) {
	l.metrics.RecordBatch(len(ops))

	operationIDs := make([]string, 0, len(ops))
	for i, op := range ops {
		operationID, err := l.LogOperation(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("batch aborted at record %d: %w", i, err)
		}
		operationIDs = append(operationIDs, operationID)
	}
	return operationIDs, nil
}

// Flush blocks until buffered events are handed to the broker or the timeout
// elapses. Transports that publish synchronously have nothing to flush and
// return immediately.
func (l *OperateLogger) Flush(timeout time.Duration) error {
	if l.state.closed.Load() {
		return errspkg.ErrLoggerClosed
	}
	if timeout <= 0 {
		timeout = l.Conf.FlushTimeout
	}
	return l.state.flush(timeout)
}

// Close closes the transport publisher. Subsequent publishes fail with
// ErrLoggerClosed. Closing twice is a no-op.
func (l *OperateLogger) Close() error {
	return l.state.close()
}

// Cleanup flushes and closes the logger. It is idempotent and never returns
// an error; flush and close failures are logged and suppressed. Intended for
// defer at the end of the logger's scope.
func (l *OperateLogger) Cleanup() {
	l.state.cleanup()
}
