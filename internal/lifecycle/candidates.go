package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

// AddCandidate appends a candidate to the ballot. On ledger-backed elections the contract
// transaction runs first and nothing changes when it fails.
func (c *Controller) AddCandidate(ctx context.Context, address string, input core.CandidateInput) (core.Election, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = core.NormalizeEmail(input.Email)
	input.Bio = lo.CoalesceOrEmpty(strings.TrimSpace(input.Bio), core.DefaultCandidateBio)

	if err := c.validate.Struct(input); err != nil {
		return core.Election{}, c.invalidInput(err)
	}

	var onChain bool

	// A retried mutation must not send the transaction twice.
	addOnChain := sync.OnceValue(func() error {
		callCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		_, err := c.contract.AddCandidate(
			callCtx, address, input.Name, input.Position, core.DefaultMetadataHash, input.Email, c.contract.DefaultSigner(),
		)

		return err //nolint:wrapcheck
	})

	updated, err := c.mutate(ctx, address, func(current core.Election) (core.Election, error) {
		if current.Status == core.StatusCompleted {
			return core.Election{}, fmt.Errorf("%w: %s is completed", core.ErrElectionClosed, address)
		}

		if current.HasCandidateEmail(input.Email) {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrDuplicateCandidate, input.Email)
		}

		onChain = current.Source == core.SourceAuthoritative

		if onChain {
			if err := addOnChain(); err != nil {
				return core.Election{}, core.Sanitize(err, core.ErrCollaboratorFailed, "add candidate")
			}
		}

		next := current.Clone()
		next.Candidates = append(next.Candidates, core.Candidate{
			ID:       len(next.Candidates),
			Email:    input.Email,
			Name:     input.Name,
			Position: input.Position,
			Bio:      input.Bio,
			Votes:    input.Votes,
		})
		next.TotalVotes = next.SumVotes()

		return next, nil
	})
	if err != nil {
		return core.Election{}, err
	}

	logger := c.logger.WithFields(logrus.Fields{
		"address":   address,
		"candidate": len(updated.Candidates) - 1,
	})

	if onChain {
		callCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		if err := c.backend.RegisterCandidate(callCtx, input.Email, updated.Name); err != nil {
			logger.WithError(err).Warn("Candidate added on chain but backend registration failed")
		}
	}

	logger.Info("Candidate added")
	c.publish(ctx, core.EventCandidateAdded, updated)

	return updated, nil
}
