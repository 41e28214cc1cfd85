// Package kafka provides the Kafka transport for oplog. It is the default
// transport: a synchronous sarama producer that waits for the broker ack on
// every publish.
package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/oplog/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register adds the kafka transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// Build creates a new Kafka transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	saramaConfig, err := buildSaramaConfig(cfg)
	if err != nil {
		return transport.Transport{}, err
	}

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               cfg.GetBrokers(),
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher}, nil
}

// buildSaramaConfig derives the sarama producer configuration from the
// connection settings. A caller-supplied override replaces the derived
// configuration wholesale.
func buildSaramaConfig(cfg transport.Config) (*sarama.Config, error) {
	if override := cfg.GetSaramaOverride(); override != nil {
		return override, nil
	}

	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()

	if clientID := cfg.GetClientID(); clientID != "" {
		saramaConfig.ClientID = clientID
	}

	acks, err := requiredAcks(cfg.GetAcks())
	if err != nil {
		return nil, err
	}
	saramaConfig.Producer.RequiredAcks = acks

	if retries := cfg.GetRetries(); retries > 0 {
		saramaConfig.Producer.Retry.Max = retries
	}
	if timeout := cfg.GetAckTimeout(); timeout > 0 {
		saramaConfig.Producer.Timeout = timeout
	}

	if enable, mechanism, username, password := cfg.GetSASL(); enable {
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = username
		saramaConfig.Net.SASL.Password = password
		saramaConfig.Net.SASL.Mechanism = saslMechanism(mechanism)
	}

	if enable, tlsConfig := cfg.GetTLS(); enable {
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = tlsConfig
	}

	return saramaConfig, nil
}

func requiredAcks(mode string) (sarama.RequiredAcks, error) {
	switch strings.ToLower(mode) {
	case "", "all":
		return sarama.WaitForAll, nil
	case "local":
		return sarama.WaitForLocal, nil
	case "none":
		return sarama.NoResponse, nil
	default:
		return 0, fmt.Errorf("kafka: unknown acks mode %q", mode)
	}
}

func saslMechanism(mechanism string) sarama.SASLMechanism {
	switch strings.ToUpper(mechanism) {
	case "SCRAM-SHA-256":
		return sarama.SASLTypeSCRAMSHA256
	case "SCRAM-SHA-512":
		return sarama.SASLTypeSCRAMSHA512
	default:
		return sarama.SASLTypePlaintext
	}
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
