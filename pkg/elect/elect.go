// Package elect runs a lease based leader election on top of a TTL key-value bucket.
package elect

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultUpdateMultiplier = 0.5
	DefaultPollMultiplier   = 0.25
)

var ErrInvalidTTL = errors.New("TTL must be configured for the KeyValue bucket")

type Elect struct {
	KV KV

	Config Config
}

func New(kv KV, key string, id string, opts ...Option) (*Elect, error) {
	ttl := kv.TTL()
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	config := &Config{
		Key:            key,
		ID:             id,
		UpdateInterval: time.Duration(float64(ttl) * DefaultUpdateMultiplier),
		PollInterval:   time.Duration(float64(ttl) * DefaultPollMultiplier),
	}

	for _, opt := range opts {
		opt(config)
	}

	return &Elect{
		KV:     kv,
		Config: *config,
	}, nil
}

// Start campaigns until ctx is done. The channel reports every status change and is closed after
// a terminal Error or Cancelled outcome.
func (e *Elect) Start(ctx context.Context) <-chan Outcome {
	outcomeCh := make(chan Outcome, 1)

	go e.election(ctx, outcomeCh)

	return outcomeCh
}

func (e *Elect) election(ctx context.Context, outcomeCh chan<- Outcome) {
	defer close(outcomeCh)

	status := Unknown

	var seq uint64

	for {
		next, nextSeq, err := e.step(ctx, status, seq)

		if ctx.Err() != nil {
			outcomeCh <- Outcome{Status: Cancelled, Error: ctx.Err()}

			return
		}

		if err != nil {
			outcomeCh <- Outcome{Status: Error, Error: err}

			return
		}

		if next != status {
			select {
			case outcomeCh <- Outcome{Status: next}:
			case <-ctx.Done():
				outcomeCh <- Outcome{Status: Cancelled, Error: ctx.Err()}

				return
			}
		}

		status, seq = next, nextSeq

		interval := e.Config.PollInterval
		if status == Won {
			interval = e.Config.UpdateInterval
		}

		select {
		case <-ctx.Done():
			outcomeCh <- Outcome{Status: Cancelled, Error: ctx.Err()}

			return
		case <-time.After(interval):
		}
	}
}

// step tries to take the lease when not holding it, or to extend it otherwise.
func (e *Elect) step(ctx context.Context, status ElectionStatus, seq uint64) (ElectionStatus, uint64, error) {
	if status == Won {
		seq, err := e.KV.Update(ctx, e.Config.Key, []byte(e.Config.ID), seq)
		if err == nil {
			return Won, seq, nil
		}

		if errors.Is(err, ErrKeyExists) || errors.Is(err, ErrKeyNotFound) {
			return Lost, 0, nil
		}

		return Error, 0, fmt.Errorf("failed to extend lease: %w", err)
	}

	seq, err := e.KV.Create(ctx, e.Config.Key, []byte(e.Config.ID))
	if err == nil {
		return Won, seq, nil
	}

	if errors.Is(err, ErrKeyExists) {
		return Lost, 0, nil
	}

	return Error, 0, fmt.Errorf("failed to take lease: %w", err)
}
