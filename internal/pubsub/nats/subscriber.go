package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

// Subscriber follows the events stream from its current end.
type Subscriber struct {
	nats *Client

	logger logrus.FieldLogger
}

func NewSubscriber(injector *do.Injector) (*Subscriber, error) {
	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	natsClient, err := do.Invoke[*Client](injector)
	if err != nil {
		return nil, err
	}

	return &Subscriber{
		nats:   natsClient,
		logger: logger.WithField("component", "pubsub.nats.Subscriber"),
	}, nil
}

func (s *Subscriber) HealthCheck() error {
	s.logger.Debug("Subscriber health check...")

	err := s.nats.HealthCheck()
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	return nil
}

func (s *Subscriber) Shutdown() error {
	return nil
}

// Subscribe delivers new events for address, or for every election when address is empty.
func (s *Subscriber) Subscribe(ctx context.Context, address string) (*Subscription, error) {
	subject := core.EventsSubjectBase + ".>"
	if address != "" {
		subject = fmt.Sprintf("%s.*.*.%s", core.EventsSubjectBase, core.SubjectToken(address))
	}

	cons, err := s.nats.JetStream.OrderedConsumer(ctx, core.EventsStreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	s.logger.WithField("subject", subject).Debug("NATS consumer created")

	return newSubscription(cons, s.logger)
}
