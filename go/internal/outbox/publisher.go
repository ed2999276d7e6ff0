package outbox

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Publisher delivers one outbox event to the notification transport.
// Delivery is fire-and-forget from the engine's perspective; a failure here
// never rolls back the transaction that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NATSPublisher publishes events to JetStream subjects under a prefix, e.g.
// officiating.events.assignment.responded.
type NATSPublisher struct {
	js            jetstream.JetStream
	subjectPrefix string
}

func NewNATSPublisher(natsURL, subjectPrefix string) (*NATSPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &NATSPublisher{js: js, subjectPrefix: subjectPrefix}, nc, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.EventType)
	if _, err := p.js.Publish(ctx, subject, event.Payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// LogPublisher is an in-memory publisher for development and tests.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("entity_id", event.EntityID.String()).
		Msg("publishing event")
	return nil
}
