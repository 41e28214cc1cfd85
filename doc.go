// Package oplog is a small layer on top of Watermill that publishes audit
// events (operation logs) to a message broker with synchronous delivery
// confirmation. It reads the target transport (Kafka, RabbitMQ, NATS, AWS SNS,
// HTTP, or Go channels) from Config, builds the publisher through the transport
// registry, and turns every logged operation into a validated, sanitized JSON
// event on the configured topic.
//
// OperateLogger is the entry point: LogOperation validates the operation,
// assigns a fresh operation id, sanitizes free-form details, and blocks until
// the broker acknowledges the event or the ack timeout elapses. LogBatch
// publishes a slice of operations sequentially and aborts on the first
// failure. A minimal setup therefore involves filling Config, creating an
// OperateLogger, logging operations, and deferring Cleanup; see README.md for
// a copy/paste quick start snippet.
//
// # Transports
//
// Oplog supports 6 transports out of the box:
//   - kafka: the default, a synchronous sarama producer with configurable acks
//   - rabbitmq: AMQP durable topic exchange
//   - nats: NATS Core (fire-and-forget, no broker confirmation)
//   - aws: AWS SNS with LocalStack support
//   - http: POST events to a collector endpoint
//   - channel: in-memory Go channels for testing
//
// # Delivery semantics
//
// Every publish is synchronous: a nil error from LogOperation means the broker
// accepted the event (on transports that confirm writes). Failures come back
// as *BrokerError carrying the affected operation id, and a local structured
// diagnostic with the same id is always emitted, so an audit trail survives
// broker outages in the application logs.
//
// # Publish hooks
//
// PublishHooks provides OnPublish, OnPublished, and OnError callbacks for
// custom logging, metrics collection, and alerting around event delivery.
// Framework adapters (HTTP middleware and the like) are built on these; see
// the examples directory.
package oplog
