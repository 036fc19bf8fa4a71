// Package ledger applies ballots: one vote per voter per election, applied atomically.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/reconciler"
)

// Loader makes sure the store of an election is populated, resolving it on first access.
type Loader interface {
	Store(ctx context.Context, address string) (*election.Store, error)
}

type Ledger struct {
	registry  *election.Registry
	loader    Loader
	publisher core.Publisher
	logger    logrus.FieldLogger
}

func NewLedger(injector *do.Injector) (*Ledger, error) {
	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	registry, err := do.Invoke[*election.Registry](injector)
	if err != nil {
		return nil, err
	}

	loader, err := do.Invoke[*reconciler.Reconciler](injector)
	if err != nil {
		return nil, err
	}

	publisher, err := do.Invoke[core.Publisher](injector)
	if err != nil {
		return nil, err
	}

	return New(registry, loader, publisher, logger), nil
}

func New(registry *election.Registry, loader Loader, publisher core.Publisher, logger logrus.FieldLogger) *Ledger {
	return &Ledger{
		registry:  registry,
		loader:    loader,
		publisher: publisher,
		logger:    logger.WithField("component", "ledger.Ledger"),
	}
}

// CastVote records the ballot of voterEmail for candidateID. Rejected ballots change nothing.
func (l *Ledger) CastVote(ctx context.Context, address, voterEmail string, candidateID int) (core.Election, error) {
	if strings.TrimSpace(voterEmail) == "" {
		return core.Election{}, core.ErrVoterNotIdentified
	}

	if _, err := l.loader.Store(ctx, address); err != nil {
		return core.Election{}, err
	}

	unlock, err := l.registry.Lock(ctx, address)
	if err != nil {
		return core.Election{}, err
	}
	defer unlock()

	committed, err := l.registry.Mutate(ctx, address, func(current core.Election) (core.Election, error) {
		return Apply(current, voterEmail, candidateID)
	})
	if err != nil {
		return core.Election{}, err
	}

	l.logger.WithFields(logrus.Fields{
		"address":   address,
		"candidate": candidateID,
	}).Info("Vote cast")

	l.publish(ctx, committed)

	return committed, nil
}

func (l *Ledger) HasVoted(ctx context.Context, key core.VoteRecordKey) (bool, error) {
	store, err := l.loader.Store(ctx, key.ElectionAddress)
	if err != nil {
		return false, err
	}

	return store.Get().HasVoted(key), nil
}

// Apply returns e with the ballot applied. e itself is never modified.
func Apply(e core.Election, voterEmail string, candidateID int) (core.Election, error) {
	email := core.NormalizeEmail(voterEmail)
	if email == "" {
		return core.Election{}, core.ErrVoterNotIdentified
	}

	if e.Status != core.StatusActive {
		return core.Election{}, fmt.Errorf("%w: status is %s", core.ErrElectionClosed, e.Status)
	}

	if _, ok := e.Candidate(candidateID); !ok {
		return core.Election{}, fmt.Errorf("%w: %d", core.ErrInvalidCandidate, candidateID)
	}

	if e.HasVoted(core.NewVoteRecordKey(e.Address, email)) {
		return core.Election{}, fmt.Errorf("%w: %s", core.ErrDuplicateVote, email)
	}

	next := e.Clone()
	next.Candidates[candidateID].Votes++
	next.TotalVotes = next.SumVotes()

	if _, i, ok := next.Voter(email); ok {
		next.Voters[i].HasVoted = true
	} else {
		next.Voters = append(next.Voters, core.Voter{Email: email, HasVoted: true})
		next.VoterCount = max(next.VoterCount, len(next.Voters))
	}

	return next, nil
}

func (l *Ledger) publish(ctx context.Context, e core.Election) {
	err := l.publisher.Publish(ctx, core.NewEvent(core.EventVoteCast, e))
	if err != nil {
		l.logger.WithError(err).WithField("address", e.Address).Warn("Failed to publish vote event")
	}
}
