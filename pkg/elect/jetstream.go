package elect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

type JetStreamKV struct {
	KV jetstream.KeyValue

	Ttl time.Duration //nolint:stylecheck
}

// NewJetStreamKV creates or opens bucket with ttl as its entry lifetime.
func NewJetStreamKV(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (JetStreamKV, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return JetStreamKV{}, fmt.Errorf("failed to create leader bucket: %w", err)
	}

	return JetStreamKV{
		KV:  kv,
		Ttl: ttl,
	}, nil
}

func (j JetStreamKV) TTL() time.Duration {
	return j.Ttl
}

func (j JetStreamKV) Create(ctx context.Context, key string, value []byte) (uint64, error) {
	seq, err := j.KV.Create(ctx, key, value)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return 0, ErrKeyExists
		}

		return 0, fmt.Errorf("%w: failed to create key %s: %w", ErrAnotherError, key, err)
	}

	return seq, nil
}

func (j JetStreamKV) Update(ctx context.Context, key string, value []byte, seq uint64) (uint64, error) {
	seq, err := j.KV.Update(ctx, key, value, seq)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return 0, ErrKeyExists
		}

		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return 0, ErrKeyNotFound
		}

		return 0, fmt.Errorf("%w: failed to update key %s: %w", ErrAnotherError, key, err)
	}

	return seq, nil
}
