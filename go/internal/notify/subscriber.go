package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	streamName         = "OFFICIATING_EVENTS"
	consumerName       = "notification-subscriber"
	consumerMaxDeliver = 5
	consumerAckWait    = 30 * time.Second
	natsMaxReconnects  = -1
	natsReconnectWait  = 2 * time.Second
)

// NotificationService is the external delivery collaborator. It receives
// domain events and owns push/email/in-app delivery; the engine never blocks
// on it.
type NotificationService interface {
	Notify(ctx context.Context, eventType string, payload []byte) error
}

// Subscriber consumes the engine's domain events off JetStream and hands them
// to the notification service. Delivery is at-least-once; the service must
// tolerate duplicates.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	service  NotificationService
	subjects string
}

func NewSubscriber(natsURL, subjectPrefix string, service NotificationService) (*Subscriber, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &Subscriber{
		nc:       nc,
		js:       js,
		service:  service,
		subjects: subjectPrefix + ".>",
	}, nil
}

// Start ensures the durable consumer exists and consumes until ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.ensureConsumer(ctx); err != nil {
		return err
	}

	cc, err := s.consumer.Consume(func(msg jetstream.Msg) {
		eventType := strings.TrimPrefix(msg.Subject(), strings.TrimSuffix(s.subjects, ">"))
		if err := s.service.Notify(ctx, eventType, msg.Data()); err != nil {
			log.Error().
				Err(err).
				Str("subject", msg.Subject()).
				Msg("notification delivery failed")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	log.Info().Str("subjects", s.subjects).Msg("notification subscriber started")
	<-ctx.Done()
	cc.Stop()
	s.nc.Close()
	return nil
}

func (s *Subscriber) ensureConsumer(ctx context.Context) error {
	stream, err := s.js.Stream(ctx, streamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		Description:   "Delivers officiating domain events to the notification service",
		FilterSubject: s.subjects,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    consumerMaxDeliver,
		AckWait:       consumerAckWait,
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for notifications")
	}

	s.consumer = consumer
	return nil
}

// LogNotifier is the default NotificationService. It logs events instead of
// delivering them, which is enough for local runs and for deployments that
// have not plugged in a real delivery backend yet.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, eventType string, payload []byte) error {
	log.Info().
		Str("event_type", eventType).
		RawJSON("payload", payload).
		Msg("notification event")
	return nil
}
