// Package nats mirrors elections into a JetStream key-value bucket, one key per election.
package nats

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	pubsubNats "github.com/zhulik/evote/internal/pubsub/nats"
	"github.com/zhulik/evote/pkg/json"
)

const history = 5

type Mirror struct {
	nats   *pubsubNats.Client
	bucket jetstream.KeyValue

	logger logrus.FieldLogger
}

func NewMirror(injector *do.Injector) (*Mirror, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	natsClient, err := do.Invoke[*pubsubNats.Client](injector)
	if err != nil {
		return nil, err
	}

	return Open(context.Background(), natsClient, config.MirrorBucket(), logger)
}

// Open creates the bucket when it does not exist yet.
func Open(ctx context.Context, natsClient *pubsubNats.Client, bucket string, logger logrus.FieldLogger) (*Mirror, error) {
	kv, err := natsClient.JetStream.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Mirrored election snapshots",
		History:     history,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger = logger.WithFields(logrus.Fields{
		"component": "mirror.nats.Mirror",
		"bucket":    bucket,
	})
	logger.Info("NATS mirror bucket ready")

	return &Mirror{
		nats:   natsClient,
		bucket: kv,
		logger: logger,
	}, nil
}

func (m *Mirror) Load(ctx context.Context, address string) (core.Election, error) {
	entry, err := m.bucket.Get(ctx, core.SubjectToken(address))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
		}

		return core.Election{}, fmt.Errorf("failed to get value: %w", err)
	}

	return decode(entry)
}

// Save stores election unless the bucket already holds the same or a later revision of it.
// Bucket revision conflicts re-read the stored snapshot, so the comparison always sees the latest write.
func (m *Mirror) Save(ctx context.Context, election core.Election) error { //nolint:cyclop
	key := core.SubjectToken(election.Address)

	value, err := json.Marshal(election)
	if err != nil {
		return fmt.Errorf("failed to marshal election: %w", err)
	}

	for {
		entry, err := m.bucket.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, jetstream.ErrKeyNotFound) {
				return fmt.Errorf("failed to get value: %w", err)
			}

			_, err := m.bucket.Create(ctx, key, value)
			if err == nil {
				return nil
			}

			// Created concurrently, try again.
			if errors.Is(err, jetstream.ErrKeyExists) {
				continue
			}

			return fmt.Errorf("failed to create value: %w", err)
		}

		stored, err := decode(entry)
		if err != nil {
			return err
		}

		if stored.Revision >= election.Revision {
			return fmt.Errorf("%w: %s is at revision %d", core.ErrStaleSnapshot, election.Address, stored.Revision)
		}

		_, err = m.bucket.Update(ctx, key, value, entry.Revision())
		if err == nil {
			return nil
		}

		if errors.Is(err, jetstream.ErrKeyExists) ||
			errors.Is(err, jetstream.ErrKeyDeleted) ||
			errors.Is(err, jetstream.ErrKeyNotFound) {
			// Updated or deleted concurrently, try again.
			m.logger.WithField("address", election.Address).Debug("Revision conflict, retrying")

			continue
		}

		return fmt.Errorf("failed to update value: %w", err)
	}
}

func (m *Mirror) Delete(ctx context.Context, address string) error {
	err := m.bucket.Purge(ctx, core.SubjectToken(address))
	if err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}

	return nil
}

// Addresses reads every snapshot, keys alone do not carry the original address.
func (m *Mirror) Addresses(ctx context.Context) ([]string, error) {
	lister, err := m.bucket.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var addresses []string //nolint:prealloc

	for key := range lister.Keys() {
		entry, err := m.bucket.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}

			return nil, fmt.Errorf("failed to get value: %w", err)
		}

		election, err := decode(entry)
		if err != nil {
			return nil, err
		}

		addresses = append(addresses, election.Address)
	}

	slices.Sort(addresses)

	return addresses, nil
}

func (m *Mirror) HealthCheck() error {
	m.logger.Debug("Mirror health check...")

	err := m.nats.HealthCheck()
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	return nil
}

func (m *Mirror) Shutdown() error {
	return nil
}

func decode(entry jetstream.KeyValueEntry) (core.Election, error) {
	election, err := json.Unmarshal[core.Election](entry.Value())
	if err != nil {
		return core.Election{}, fmt.Errorf("failed to unmarshal %s: %w", entry.Key(), err)
	}

	return election, nil
}
