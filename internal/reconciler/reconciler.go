// Package reconciler decides which snapshot of an election is current: the one read from the
// contract ledger or the mirrored fallback.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/pkg/iter"
	"github.com/zhulik/evote/pkg/utils"
)

type Reconciler struct {
	registry  *election.Registry
	contract  core.ContractClient
	publisher core.Publisher
	logger    logrus.FieldLogger

	timeout        time.Duration
	sampleFallback bool
}

func NewReconciler(injector *do.Injector) (*Reconciler, error) {
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

	contract, err := do.Invoke[core.ContractClient](injector)
	if err != nil {
		return nil, err
	}

	publisher, err := do.Invoke[core.Publisher](injector)
	if err != nil {
		return nil, err
	}

	return New(registry, contract, publisher, logger, config.CollaboratorTimeout(), config.SampleFallback()), nil
}

func New(
	registry *election.Registry,
	contract core.ContractClient,
	publisher core.Publisher,
	logger logrus.FieldLogger,
	timeout time.Duration,
	sampleFallback bool,
) *Reconciler {
	if timeout <= 0 {
		timeout = core.DefaultCollaboratorTimeout
	}

	return &Reconciler{
		registry:       registry,
		contract:       contract,
		publisher:      publisher,
		logger:         logger.WithField("component", "reconciler.Reconciler"),
		timeout:        timeout,
		sampleFallback: sampleFallback,
	}
}

// Resolve reads the election from the contract and adopts it when it has candidates.
// Otherwise the mirrored snapshot is returned, tagged as fallback.
func (r *Reconciler) Resolve(ctx context.Context, address string) (core.Resolution, error) {
	logger := r.logger.WithField("address", address)

	fetched, err := r.fetch(ctx, address)
	if ctx.Err() != nil {
		return core.Resolution{}, fmt.Errorf("resolve %s: %w", address, ctx.Err())
	}

	switch {
	case err != nil:
		logger.WithError(err).Warn("Contract unavailable, using fallback")
	case len(fetched.Candidates) == 0:
		logger.Debug("Contract has no candidates, using fallback")
	default:
		resolution, err := r.adopt(ctx, fetched)
		if err == nil {
			return resolution, nil
		}

		if errors.Is(err, core.ErrInvalidState) || ctx.Err() != nil {
			return core.Resolution{}, err
		}

		logger.WithError(err).Warn("Failed to adopt contract snapshot, using fallback")
	}

	return r.fallback(ctx, address)
}

// Store returns the populated store of address, resolving it on first access.
func (r *Reconciler) Store(ctx context.Context, address string) (*election.Store, error) {
	if store, ok := r.registry.Lookup(address); ok {
		return store, nil
	}

	if _, err := r.Resolve(ctx, address); err != nil {
		return nil, err
	}

	store, ok := r.registry.Lookup(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
	}

	return store, nil
}

func (r *Reconciler) fetch(ctx context.Context, address string) (core.Election, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	select {
	case result := <-lo.Async2(func() (core.Election, error) {
		return utils.Try(func() (core.Election, error) { return r.query(ctx, address) })
	}):
		return result.A, result.B

	case <-ctx.Done():
		return core.Election{}, core.Sanitize(ctx.Err(), core.ErrCollaboratorTimeout, "contract query")
	}
}

func (r *Reconciler) query(ctx context.Context, address string) (core.Election, error) {
	summary, err := r.contract.ElectionSummary(ctx, address)
	if err != nil {
		return core.Election{}, fmt.Errorf("failed to read election summary: %w", err)
	}

	if !summary.Status.Valid() {
		return core.Election{}, fmt.Errorf("%w: status %q", core.ErrMalformedResponse, summary.Status)
	}

	count, err := r.contract.CandidateCount(ctx, address)
	if err != nil {
		return core.Election{}, fmt.Errorf("failed to read candidate count: %w", err)
	}

	if count < 0 {
		return core.Election{}, fmt.Errorf("%w: candidate count %d", core.ErrMalformedResponse, count)
	}

	candidates, err := iter.MapErr(lo.Range(count), func(i int) (core.Candidate, error) {
		candidate, err := r.contract.Candidate(ctx, address, i)
		if err != nil {
			return core.Candidate{}, fmt.Errorf("failed to read candidate %d: %w", i, err)
		}

		if candidate.Votes < 0 {
			return core.Candidate{}, fmt.Errorf("%w: candidate %d has %d votes", core.ErrMalformedResponse, i, candidate.Votes)
		}

		return core.Candidate{
			ID:       i,
			Email:    candidate.Email,
			Name:     candidate.Name,
			Position: candidate.Position,
			Votes:    candidate.Votes,
		}, nil
	})
	if err != nil {
		return core.Election{}, err
	}

	e := core.Election{
		Address:     address,
		Name:        summary.Name,
		Description: summary.Description,
		Status:      summary.Status,
		Candidates:  candidates,
		Source:      core.SourceAuthoritative,
	}
	e.TotalVotes = e.SumVotes()

	return e, nil
}

// adopt merges the local roster into the contract snapshot and commits it.
func (r *Reconciler) adopt(ctx context.Context, fetched core.Election) (core.Resolution, error) {
	unlock, err := r.registry.Lock(ctx, fetched.Address)
	if err != nil {
		return core.Resolution{}, err
	}
	defer unlock()

	var committed core.Election

	if _, err := r.registry.Load(ctx, fetched.Address); err == nil {
		committed, err = r.registry.Mutate(ctx, fetched.Address, func(current core.Election) (core.Election, error) {
			return Merge(fetched, &current), nil
		})
		if err != nil {
			return core.Resolution{}, err
		}
	} else {
		committed, err = r.registry.Commit(ctx, Merge(fetched, nil))
		if err != nil {
			return core.Resolution{}, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"address":    committed.Address,
		"candidates": len(committed.Candidates),
	}).Info("Adopted contract snapshot")

	err = r.publisher.Publish(ctx, core.NewEvent(core.EventElectionResolved, committed))
	if err != nil {
		r.logger.WithError(err).Warn("Failed to publish resolution event")
	}

	return core.Resolution{Election: committed, Source: core.SourceAuthoritative}, nil
}

func (r *Reconciler) fallback(ctx context.Context, address string) (core.Resolution, error) {
	store, err := r.registry.Load(ctx, address)
	if err == nil {
		return core.Resolution{Election: store.Get(), Source: core.SourceFallback}, nil
	}

	if !errors.Is(err, core.ErrElectionNotFound) {
		r.logger.WithError(err).WithField("address", address).Warn("Mirror unavailable")
	}

	if !r.sampleFallback {
		return core.Resolution{}, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
	}

	unlock, err := r.registry.Lock(ctx, address)
	if err != nil {
		return core.Resolution{}, err
	}
	defer unlock()

	if store, ok := r.registry.Lookup(address); ok {
		return core.Resolution{Election: store.Get(), Source: core.SourceFallback}, nil
	}

	committed, err := r.registry.Commit(ctx, r.registry.Baseline(address))
	if err != nil {
		return core.Resolution{}, err
	}

	r.logger.WithField("address", address).Info("Serving sample election")

	return core.Resolution{Election: committed, Source: core.SourceFallback}, nil
}

// Merge builds the snapshot to adopt from a contract read and the local snapshot, if any.
// The contract owns candidates and their votes; the roster, dates and bios are local.
func Merge(fetched core.Election, local *core.Election) core.Election {
	next := fetched.Clone()
	next.Source = core.SourceAuthoritative

	if local == nil {
		next.Candidates = lo.Map(next.Candidates, func(c core.Candidate, _ int) core.Candidate {
			c.Bio = lo.CoalesceOrEmpty(c.Bio, core.DefaultCandidateBio)

			return c
		})

		return next
	}

	if local.Status.Rank() > next.Status.Rank() {
		next.Status = local.Status
	}

	next.StartDate = local.StartDate
	next.EndDate = local.EndDate
	next.Voters = append([]core.Voter(nil), local.Voters...)
	next.VoterCount = max(local.VoterCount, len(next.Voters))
	next.Name = lo.CoalesceOrEmpty(next.Name, local.Name)
	next.Description = lo.CoalesceOrEmpty(next.Description, local.Description)

	next.Candidates = lo.Map(next.Candidates, func(c core.Candidate, _ int) core.Candidate {
		bio := ""

		if _, i, ok := lo.FindIndexOf(local.Candidates, func(l core.Candidate) bool {
			return c.Email != "" && core.NormalizeEmail(l.Email) == core.NormalizeEmail(c.Email)
		}); ok {
			bio = local.Candidates[i].Bio
		}

		c.Bio = lo.CoalesceOrEmpty(c.Bio, bio, core.DefaultCandidateBio)

		return c
	})

	return next
}
