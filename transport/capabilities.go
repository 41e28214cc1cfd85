package transport

// Capabilities describes the delivery features supported by a transport backend.
// Use this to introspect what guarantees the configured broker can give.
type Capabilities struct {
	// SupportsAck indicates the broker confirms writes before the publish
	// call returns. When false, a successful publish only means the message
	// left the process.
	SupportsAck bool

	// SupportsOrdering indicates the transport preserves publish order
	// within a partition/stream.
	SupportsOrdering bool

	// SupportsTracing indicates the transport propagates tracing headers natively.
	SupportsTracing bool

	// SupportsBatching indicates the transport can batch multiple messages
	// into a single broker write.
	SupportsBatching bool

	// SupportsPartitioning indicates the transport supports message partitioning.
	SupportsPartitioning bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the transport.
	Name string

	// Version is the transport/driver version.
	Version string
}

// ConfirmsDelivery returns true if a nil publish error means the broker has
// durably accepted the event.
func (c Capabilities) ConfirmsDelivery() bool {
	return c.SupportsAck
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsAck:      true,
		SupportsOrdering: true,
	}

	// KafkaCapabilities for the Apache Kafka transport.
	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsAck:          true,
		SupportsOrdering:     true,
		SupportsTracing:      true,
		SupportsBatching:     true,
		SupportsPartitioning: true,
		MaxMessageSize:       1048576, // Default 1MB
	}

	// RabbitMQCapabilities for the RabbitMQ/AMQP transport.
	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsAck:      true,
		SupportsOrdering: true,
		SupportsTracing:  true,
	}

	// NATSCapabilities for the NATS Core transport.
	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1048576, // Default 1MB
	}

	// AWSCapabilities for the AWS SNS transport.
	AWSCapabilities = Capabilities{
		Name:             "aws",
		SupportsAck:      true,
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsBatching: true,
		MaxMessageSize:   262144, // 256KB
	}

	// HTTPCapabilities for the HTTP sink transport.
	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsAck:     true,
		SupportsTracing: true,
	}
)

// GetCapabilities returns the capabilities for a transport by name.
// Uses the registry to look up capabilities registered by each transport package.
// Returns a zero Capabilities struct if the transport is unknown.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
