package nats

import (
	"context"
	"fmt"
	"time"

	libNats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

const connectTimeout = 5 * time.Second

func NewClient(injector *do.Injector) (*Client, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	return Connect(config.NatsURL(), logger)
}

func Connect(url string, logger logrus.FieldLogger) (*Client, error) {
	natsClient, err := libNats.Connect(url, libNats.Name("evote"), libNats.Timeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS client: %w", err)
	}

	jetStream, err := jetstream.New(natsClient)
	if err != nil {
		natsClient.Close()

		return nil, fmt.Errorf("failed to build JetStream client: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"component": "pubsub.nats.Client",
		"url":       natsClient.ConnectedUrlRedacted(),
	}).Info("Connected to NATS")

	return &Client{
		Nats:      natsClient,
		JetStream: jetStream,
	}, nil
}

type Client struct {
	Nats      *libNats.Conn
	JetStream jetstream.JetStream
}

func (c *Client) HealthCheck() error {
	_, err := c.Nats.GetClientID()
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	_, err = c.JetStream.AccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	return nil
}

func (c *Client) Shutdown() error {
	c.JetStream.CleanupPublisher()
	c.Nats.Close()

	return nil
}
