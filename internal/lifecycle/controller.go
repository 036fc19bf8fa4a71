// Package lifecycle is the operation surface of the election engine: every read and mutation the
// dashboard performs goes through the Controller.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/ledger"
	"github.com/zhulik/evote/internal/reconciler"
	"github.com/zhulik/evote/internal/tally"
)

// Resolver populates and refreshes election stores.
type Resolver interface {
	ledger.Loader

	Resolve(ctx context.Context, address string) (core.Resolution, error)
}

type Options struct {
	Timeout time.Duration
	Demo    bool
}

type Controller struct {
	registry  *election.Registry
	resolver  Resolver
	ledger    *ledger.Ledger
	contract  core.ContractClient
	backend   core.RegistrationBackend
	publisher core.Publisher
	logger    logrus.FieldLogger
	validate  *validator.Validate

	timeout time.Duration
	demo    bool
}

func NewController(injector *do.Injector) (*Controller, error) {
	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	registry, err := do.Invoke[*election.Registry](injector)
	if err != nil {
		return nil, err
	}

	resolver, err := do.Invoke[*reconciler.Reconciler](injector)
	if err != nil {
		return nil, err
	}

	votes, err := do.Invoke[*ledger.Ledger](injector)
	if err != nil {
		return nil, err
	}

	contract, err := do.Invoke[core.ContractClient](injector)
	if err != nil {
		return nil, err
	}

	backend, err := do.Invoke[core.RegistrationBackend](injector)
	if err != nil {
		return nil, err
	}

	publisher, err := do.Invoke[core.Publisher](injector)
	if err != nil {
		return nil, err
	}

	return New(registry, resolver, votes, contract, backend, publisher, logger, Options{
		Timeout: config.CollaboratorTimeout(),
		Demo:    config.SampleFallback(),
	}), nil
}

func New(
	registry *election.Registry,
	resolver Resolver,
	votes *ledger.Ledger,
	contract core.ContractClient,
	backend core.RegistrationBackend,
	publisher core.Publisher,
	logger logrus.FieldLogger,
	opts Options,
) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = core.DefaultCollaboratorTimeout
	}

	return &Controller{
		registry:  registry,
		resolver:  resolver,
		ledger:    votes,
		contract:  contract,
		backend:   backend,
		publisher: publisher,
		logger:    logger.WithField("component", "lifecycle.Controller"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		timeout:   opts.Timeout,
		demo:      opts.Demo,
	}
}

// Snapshot returns the current snapshot, resolving the election on first access.
func (c *Controller) Snapshot(ctx context.Context, address string) (core.Election, error) {
	store, err := c.resolver.Store(ctx, address)
	if err != nil {
		return core.Election{}, err
	}

	return store.Get(), nil
}

func (c *Controller) Tallies(ctx context.Context, address string) (core.Tallies, error) {
	snapshot, err := c.Snapshot(ctx, address)
	if err != nil {
		return core.Tallies{}, err
	}

	return tally.Compute(snapshot), nil
}

// Refresh re-reads the election from the contract, falling back to the mirrored snapshot.
func (c *Controller) Refresh(ctx context.Context, address string) (core.Resolution, error) {
	return c.resolver.Resolve(ctx, address)
}

func (c *Controller) CastVote(ctx context.Context, address, voterEmail string, candidateID int) (core.Election, error) {
	return c.ledger.CastVote(ctx, address, voterEmail, candidateID)
}

func (c *Controller) HasVoted(ctx context.Context, key core.VoteRecordKey) (bool, error) {
	return c.ledger.HasVoted(ctx, key)
}

// Reset restores the baseline snapshot of a known election, clearing its VoteRecords.
func (c *Controller) Reset(ctx context.Context, address string) (core.Election, error) {
	if _, err := c.resolver.Store(ctx, address); err != nil {
		return core.Election{}, err
	}

	unlock, err := c.registry.Lock(ctx, address)
	if err != nil {
		return core.Election{}, err
	}
	defer unlock()

	reset, err := c.registry.Reset(ctx, address)
	if err != nil {
		return core.Election{}, err
	}

	c.logger.WithField("address", address).Warn("Election reset to baseline")
	c.publish(ctx, core.EventElectionReset, reset)

	return reset, nil
}

// mutate runs fn on the latest snapshot under the election lock and commits its result.
func (c *Controller) mutate(
	ctx context.Context, address string, fn func(current core.Election) (core.Election, error),
) (core.Election, error) {
	if _, err := c.resolver.Store(ctx, address); err != nil {
		return core.Election{}, err
	}

	unlock, err := c.registry.Lock(ctx, address)
	if err != nil {
		return core.Election{}, err
	}
	defer unlock()

	return c.registry.Mutate(ctx, address, fn)
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) publish(ctx context.Context, kind core.EventKind, e core.Election) {
	err := c.publisher.Publish(ctx, core.NewEvent(kind, e))
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"address": e.Address,
			"event":   kind,
		}).Warn("Failed to publish event")
	}
}

func (c *Controller) invalidInput(err error) error {
	return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
}
