package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

type CreateElectionInput struct {
	Name          string `json:"name"          validate:"required"`
	Description   string `json:"description"`
	AdminIdentity string `json:"adminIdentity" validate:"required"`
}

// CreateElection creates the election on the contract and registers its empty snapshot.
// Every collaborator failure is reported as ErrCreationFailed.
func (c *Controller) CreateElection(ctx context.Context, input CreateElectionInput) (core.Election, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.AdminIdentity = strings.TrimSpace(input.AdminIdentity)

	if err := c.validate.Struct(input); err != nil {
		return core.Election{}, c.invalidInput(err)
	}

	created, err := c.createOnContract(ctx, input)
	if err != nil {
		return core.Election{}, err
	}

	unlock, err := c.registry.Lock(ctx, created.Address)
	if err != nil {
		return core.Election{}, err
	}
	defer unlock()

	if _, err := c.registry.Load(ctx, created.Address); err == nil {
		return core.Election{}, fmt.Errorf("%w: address %s is already taken", core.ErrCreationFailed, created.Address)
	}

	committed, err := c.registry.Commit(ctx, created)
	if err != nil {
		c.logger.WithError(err).WithField("address", created.Address).Error("Created election could not be registered")

		return core.Election{}, fmt.Errorf("%w: failed to persist election", core.ErrCreationFailed)
	}

	c.logger.WithFields(logrus.Fields{
		"address": committed.Address,
		"status":  committed.Status,
	}).Info("Election created")

	c.publish(ctx, core.EventElectionCreated, committed)

	return committed, nil
}

func (c *Controller) createOnContract(ctx context.Context, input CreateElectionInput) (core.Election, error) {
	created := core.Election{
		Name:        input.Name,
		Description: input.Description,
		Status:      core.StatusPending,
		Source:      core.SourceAuthoritative,
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	tx, err := c.contract.CreateElection(callCtx, input.AdminIdentity, input.Name, input.Description, c.contract.DefaultSigner())
	if err != nil {
		if errors.Is(err, core.ErrCollaboratorDisabled) && c.demo {
			// No ledger to confirm against, so the election is open right away.
			created.Address = "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")
			created.Status = core.StatusActive
			created.Source = core.SourceFallback

			return created, nil
		}

		return core.Election{}, creationFailed(err, "create election")
	}

	ref, err := c.contract.LookupElectionByIdentity(callCtx, input.AdminIdentity, c.contract.DefaultSigner())
	if err != nil {
		return core.Election{}, creationFailed(err, "look up created election")
	}

	if ref.Address == "" {
		return core.Election{}, fmt.Errorf("%w: contract returned no address", core.ErrCreationFailed)
	}

	created.Address = ref.Address

	if tx.Confirmed {
		created.Status = core.StatusActive
	}

	return created, nil
}

// FindElection looks up the election administered by identity.
func (c *Controller) FindElection(ctx context.Context, identity string) (core.ElectionRef, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return core.ElectionRef{}, fmt.Errorf("%w: identity is required", core.ErrInvalidInput)
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	ref, err := c.contract.LookupElectionByIdentity(callCtx, identity, c.contract.DefaultSigner())
	if err == nil {
		return ref, nil
	}

	if c.demo && ctx.Err() == nil {
		c.logger.WithError(err).WithField("identity", identity).Info("Election lookup failed, using sample election")

		sample := c.registry.Baseline(core.SampleAddress)

		return core.ElectionRef{Address: sample.Address, Name: sample.Name, Description: sample.Description}, nil
	}

	return core.ElectionRef{}, core.Sanitize(err, core.ErrCollaboratorFailed, "find election")
}

// EndElection completes an active election. Completion is published exactly once.
func (c *Controller) EndElection(ctx context.Context, address string) (core.Election, error) {
	endOnChain := sync.OnceValue(func() error {
		callCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		_, err := c.contract.EndElection(callCtx, address, c.contract.DefaultSigner())

		return err //nolint:wrapcheck
	})

	ended, err := c.mutate(ctx, address, func(current core.Election) (core.Election, error) {
		if current.Status == core.StatusCompleted {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrAlreadyCompleted, address)
		}

		if current.Status == core.StatusPending {
			return core.Election{}, fmt.Errorf("%w: %s is still pending", core.ErrElectionClosed, address)
		}

		if current.Source == core.SourceAuthoritative {
			if err := endOnChain(); err != nil {
				return core.Election{}, core.Sanitize(err, core.ErrCollaboratorFailed, "end election")
			}
		}

		next := current.Clone()
		next.Status = core.StatusCompleted

		return next, nil
	})
	if err != nil {
		return core.Election{}, err
	}

	c.logger.WithField("address", address).Info("Election ended")
	c.publish(ctx, core.EventElectionEnded, ended)

	return ended, nil
}

func creationFailed(err error, op string) error {
	sanitized := core.Sanitize(err, core.ErrCreationFailed, op)
	if errors.Is(sanitized, core.ErrCreationFailed) {
		return sanitized
	}

	return fmt.Errorf("%w: %w", core.ErrCreationFailed, sanitized)
}
