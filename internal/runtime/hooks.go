package runtime

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishContext provides information about a publish attempt to hooks.
type PublishContext struct {
	// OperationID is the unique identifier of the event being published.
	OperationID string
	// OperationType is the kind of operation the event records.
	OperationType string
	// Topic is the topic/queue the event is published to.
	Topic string
	// MessageUUID is the unique identifier of the broker message.
	MessageUUID string
	// Metadata contains the message metadata.
	Metadata message.Metadata
	// Context is the context associated with the publish call.
	Context context.Context
	// StartedAt is when the publish attempt started.
	StartedAt time.Time
	// Duration is how long the publish took (only set in OnPublished and OnError).
	Duration time.Duration
}

// PublishHooks defines callbacks for the publish lifecycle.
// All hooks are optional - nil hooks are simply not called.
type PublishHooks struct {
	// OnPublish is called after the event is validated and encoded,
	// immediately before it is handed to the transport.
	OnPublish func(ctx PublishContext)

	// OnPublished is called when the broker acknowledged the event.
	// Duration will be set to how long the round trip took.
	OnPublished func(ctx PublishContext)

	// OnError is called when the publish fails or times out.
	// The error is passed as the second argument.
	OnError func(ctx PublishContext, err error)
}

// Merge combines two PublishHooks, creating a new PublishHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h PublishHooks) Merge(other PublishHooks) PublishHooks {
	return PublishHooks{
		OnPublish:   chainPublishHooks(h.OnPublish, other.OnPublish),
		OnPublished: chainPublishHooks(h.OnPublished, other.OnPublished),
		OnError:     chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainPublishHooks(a, b func(PublishContext)) func(PublishContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx PublishContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(PublishContext, error)) func(PublishContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx PublishContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log publish lifecycle events.
func LoggingHooks(logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}) PublishHooks {
	return PublishHooks{
		OnPublish: func(ctx PublishContext) {
			logger.Info("Publishing operation log", map[string]interface{}{
				"operation_id":   ctx.OperationID,
				"operation_type": ctx.OperationType,
				"topic":          ctx.Topic,
				"message_uuid":   ctx.MessageUUID,
			})
		},
		OnPublished: func(ctx PublishContext) {
			logger.Info("Operation log acknowledged", map[string]interface{}{
				"operation_id": ctx.OperationID,
				"topic":        ctx.Topic,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
		OnError: func(ctx PublishContext, err error) {
			logger.Error("Operation log publish failed", err, map[string]interface{}{
				"operation_id": ctx.OperationID,
				"topic":        ctx.Topic,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on publish errors.
func AlertingHooks(alertFunc func(ctx PublishContext, err error)) PublishHooks {
	return PublishHooks{
		OnError: alertFunc,
	}
}
