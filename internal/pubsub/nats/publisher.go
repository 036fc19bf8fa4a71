package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/pkg/json"
)

const (
	maxBytes = 64 * 1024 * 1024 // 64MB
	maxMsgs  = 100000
	maxAge   = 72 * time.Hour
)

var eventsStreamConfig = jetstream.StreamConfig{ //nolint:gochecknoglobals
	Name:      core.EventsStreamName,
	Subjects:  []string{core.EventsSubjectBase + ".>"},
	Storage:   jetstream.FileStorage,
	Retention: jetstream.LimitsPolicy,
	MaxAge:    maxAge,
	MaxMsgs:   maxMsgs,
	MaxBytes:  maxBytes,
	Replicas:  1,
}

// Publisher writes committed election events to the JetStream events stream.
type Publisher struct {
	nats *Client

	logger logrus.FieldLogger
}

func NewPublisher(injector *do.Injector) (*Publisher, error) {
	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	natsClient, err := do.Invoke[*Client](injector)
	if err != nil {
		return nil, err
	}

	return CreatePublisher(context.Background(), natsClient, logger)
}

func CreatePublisher(ctx context.Context, natsClient *Client, logger logrus.FieldLogger) (*Publisher, error) {
	publisher := &Publisher{
		nats:   natsClient,
		logger: logger.WithField("component", "pubsub.nats.Publisher"),
	}

	err := publisher.createOrUpdateStreams(ctx, eventsStreamConfig)
	if err != nil {
		return nil, err
	}

	return publisher, nil
}

func (p *Publisher) HealthCheck() error {
	p.logger.Debug("Publisher health check...")

	err := p.nats.HealthCheck()
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	return nil
}

func (p *Publisher) Shutdown() error {
	return nil
}

// Publish sends event to its subject. The event id doubles as the JetStream dedup id.
func (p *Publisher) Publish(ctx context.Context, event core.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(event.Subject())
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, event.ID)

	_, err = p.nats.JetStream.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"subject": msg.Subject,
		"eventID": event.ID,
	}).Debug("Event published")

	return nil
}

func (p *Publisher) createOrUpdateStreams(ctx context.Context, streams ...jetstream.StreamConfig) error {
	for _, stream := range streams {
		logger := p.logger.WithField("streamName", stream.Name)

		_, err := p.nats.JetStream.CreateOrUpdateStream(ctx, stream)
		if err != nil {
			return fmt.Errorf("failed to create or update stream: %w", err)
		}

		logger.Info("Stream created or updated")
	}

	return nil
}
