// Package refresher periodically re-resolves every known election against the contract, so
// dashboards see votes cast elsewhere. With a shared NATS mirror only the elected leader refreshes.
package refresher

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	pubsubNats "github.com/zhulik/evote/internal/pubsub/nats"
	"github.com/zhulik/evote/internal/reconciler"
	"github.com/zhulik/evote/pkg/elect"
)

const leaderKey = "refresher"

type Resolver interface {
	Resolve(ctx context.Context, address string) (core.Resolution, error)
}

type Refresher struct {
	registry *election.Registry
	mirror   core.Mirror
	resolver Resolver
	// leases is nil when this instance is the only writer of its mirror.
	leases   elect.KV
	interval time.Duration

	logger logrus.FieldLogger
}

func NewRefresher(injector *do.Injector) (*Refresher, error) {
	config, err := do.Invoke[core.Config](injector)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	registry, err := do.Invoke[*election.Registry](injector)
	if err != nil {
		return nil, err
	}

	mirror, err := do.Invoke[core.Mirror](injector)
	if err != nil {
		return nil, err
	}

	resolver, err := do.Invoke[*reconciler.Reconciler](injector)
	if err != nil {
		return nil, err
	}

	var leases elect.KV

	if config.MirrorBackend() == core.MirrorBackendNATS && config.RefreshInterval() > 0 {
		natsClient, err := do.Invoke[*pubsubNats.Client](injector)
		if err != nil {
			return nil, err
		}

		leases, err = elect.NewJetStreamKV(context.Background(), natsClient.JetStream, core.DefaultLeaderBucket, core.DefaultLeaderTTL)
		if err != nil {
			return nil, err
		}
	}

	return New(registry, mirror, resolver, leases, config.RefreshInterval(), logger), nil
}

func New(
	registry *election.Registry,
	mirror core.Mirror,
	resolver Resolver,
	leases elect.KV,
	interval time.Duration,
	logger logrus.FieldLogger,
) *Refresher {
	return &Refresher{
		registry: registry,
		mirror:   mirror,
		resolver: resolver,
		leases:   leases,
		interval: interval,
		logger:   logger.WithField("component", "refresher.Refresher"),
	}
}

// Run blocks until ctx is done. It returns immediately when refreshing is disabled.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Debug("Periodic refresh disabled")

		return nil
	}

	if r.leases == nil {
		r.loop(ctx)

		return nil
	}

	return r.campaign(ctx)
}

// RefreshAll resolves every election known in memory or in the mirror and returns how many
// resolutions succeeded.
func (r *Refresher) RefreshAll(ctx context.Context) int {
	addresses := r.registry.Addresses()

	mirrored, err := r.mirror.Addresses(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to list mirrored elections")
	}

	addresses = lo.Uniq(append(addresses, mirrored...))
	slices.Sort(addresses)

	refreshed := 0

	for _, address := range addresses {
		if ctx.Err() != nil {
			break
		}

		resolution, err := r.resolver.Resolve(ctx, address)
		if err != nil {
			r.logger.WithError(err).WithField("address", address).Warn("Failed to refresh election")

			continue
		}

		refreshed++

		r.logger.WithFields(logrus.Fields{
			"address": address,
			"source":  resolution.Source,
		}).Debug("Election refreshed")
	}

	return refreshed
}

func (r *Refresher) HealthCheck() error {
	return nil
}

func (r *Refresher) Shutdown() error {
	return nil
}

func (r *Refresher) loop(ctx context.Context) {
	r.logger.WithField("interval", r.interval).Info("Periodic refresh started")
	defer r.logger.Info("Periodic refresh stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// campaign refreshes only while this instance holds the leader lease.
func (r *Refresher) campaign(ctx context.Context) error {
	elector, err := elect.New(r.leases, leaderKey, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to start leader election: %w", err)
	}

	var stop context.CancelFunc = func() {}
	defer func() { stop() }()

	for outcome := range elector.Start(ctx) {
		r.logger.WithField("status", outcome.Status).Debug("Leader election outcome")

		switch outcome.Status {
		case elect.Won:
			var leaderCtx context.Context

			leaderCtx, stop = context.WithCancel(ctx)
			go r.loop(leaderCtx)
		case elect.Lost:
			stop()
		case elect.Error:
			return fmt.Errorf("leader election failed: %w", outcome.Error)
		case elect.Cancelled, elect.Unknown:
			return nil
		}
	}

	return nil
}
