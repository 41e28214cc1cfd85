// Package transport defines the core interfaces and types for oplog transports.
// Each transport implementation (kafka, rabbitmq, nats, etc.) lives in its own
// sub-package and registers itself with the transport registry.
package transport

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport wraps the publisher produced by a factory. Operation logging is a
// produce-only pipeline, so transports never open a subscription.
type Transport struct {
	Publisher message.Publisher
}

// Builder is the function signature for creating a transport from config.
// Each transport package provides a Builder function that can be registered.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports.
// This interface allows transports to access only the config they need
// without depending on the full config package.
type Config interface {
	// GetTransport returns the transport type name.
	GetTransport() string

	// Topic every event is published to.
	GetTopic() string

	// Kafka
	GetBrokers() []string
	GetClientID() string

	// Delivery tuning.
	GetRetries() int
	GetAcks() string
	GetAckTimeout() time.Duration

	// Broker security.
	GetSASL() (enable bool, mechanism, username, password string)
	GetTLS() (enable bool, config *tls.Config)
	GetSaramaOverride() *sarama.Config

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string

	// HTTP
	GetHTTPPublisherURL() string

	// AWS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}

// Flusher is implemented by publishers that buffer writes. Flush blocks until
// buffered messages are handed to the broker or the context is done.
type Flusher interface {
	Flush(ctx context.Context) error
}
