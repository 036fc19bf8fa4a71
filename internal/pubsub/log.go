package pubsub

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

// LogPublisher writes events to the log only. It is used when no broker is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{
		logger: logger.WithField("component", "pubsub.LogPublisher"),
	}
}

func (p *LogPublisher) Publish(_ context.Context, event core.Event) error {
	p.logger.WithFields(logrus.Fields{
		"kind":       event.Kind,
		"address":    event.Address,
		"eventID":    event.ID,
		"totalVotes": event.Election.TotalVotes,
	}).Info("Election event")

	return nil
}

func (p *LogPublisher) HealthCheck() error {
	return nil
}

func (p *LogPublisher) Shutdown() error {
	return nil
}
