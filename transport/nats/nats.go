// Package nats provides a NATS Core transport for oplog. NATS Core is
// fire-and-forget: the broker does not confirm writes, so a nil publish error
// only means the event left the process.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/drblury/oplog/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register adds the NATS transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a new NATS transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	var options []nc.Option
	if clientID := cfg.GetClientID(); clientID != "" {
		options = append(options, nc.Name(clientID))
	}
	if timeout := cfg.GetAckTimeout(); timeout > 0 {
		options = append(options, nc.Timeout(timeout))
	}
	if enable, tlsConfig := cfg.GetTLS(); enable && tlsConfig != nil {
		options = append(options, nc.Secure(tlsConfig))
	}

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:         cfg.GetNATSURL(),
			Marshaler:   &nats.NATSMarshaler{},
			NatsOptions: options,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}
