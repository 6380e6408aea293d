package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn used by the forwarder
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes store events as JSON on NATS subjects named
// <prefix>.<event type>, e.g. cashew.inventory.adjusted
type NATSForwarder struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// NewNATSForwarder wraps an existing publisher
func NewNATSForwarder(publisher Publisher, prefix string, logger *zap.Logger) *NATSForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSForwarder{
		publisher: publisher,
		prefix:    strings.Trim(prefix, "."),
		logger:    logger,
	}
}

// ConnectNATS dials the server with reconnect settings suited to a plant LAN
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("cashew"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}

// Subject returns the subject an event type is published on
func (f *NATSForwarder) Subject(eventType string) string {
	if f.prefix == "" {
		return eventType
	}
	return f.prefix + "." + eventType
}

func (f *NATSForwarder) CanHandle(eventType string) bool {
	for _, t := range AllEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (f *NATSForwarder) Handle(event Event) error {
	payload, err := json.Marshal(BaseEvent{
		EventType:    event.Type(),
		Stream:       event.StreamID(),
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: event.Version(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type(), err)
	}

	subject := f.Subject(event.Type())
	if err := f.publisher.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	f.logger.Debug("Event forwarded", zap.String("subject", subject), zap.String("stream", event.StreamID()))
	return nil
}
