package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
)

// RegisterVoter adds email to the roster and registers it with the backend.
func (c *Controller) RegisterVoter(ctx context.Context, address, email string) (core.Voter, error) {
	email, err := c.voterEmail(email)
	if err != nil {
		return core.Voter{}, err
	}

	var registered core.Voter

	updated, err := c.mutate(ctx, address, func(current core.Election) (core.Election, error) {
		if _, _, ok := current.Voter(email); ok {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrDuplicateVoter, email)
		}

		// Already registered by an attempt that lost the commit race.
		if registered.Email == "" {
			callCtx, cancel := c.withTimeout(ctx)
			defer cancel()

			voterID, err := c.backend.RegisterVoter(callCtx, email, address, current.Name, current.Description)
			if err != nil && !errors.Is(err, core.ErrCollaboratorDisabled) {
				return core.Election{}, core.Sanitize(err, core.ErrCollaboratorFailed, "register voter")
			}

			registered = core.Voter{ID: voterID, Email: email}
		}

		next := current.Clone()
		next.Voters = append(next.Voters, registered)
		next.VoterCount = max(next.VoterCount+1, len(next.Voters))

		return next, nil
	})
	if err != nil {
		if registered.ID != "" {
			c.unregisterVoter(ctx, address, registered)
		}

		return core.Voter{}, err
	}

	c.logger.WithField("address", address).Info("Voter registered")
	c.publish(ctx, core.EventVoterRegistered, updated)

	return registered, nil
}

// ListVoters merges the backend roster with the local VoteRecords. When the backend is
// unreachable the local roster is returned.
func (c *Controller) ListVoters(ctx context.Context, address string) ([]core.Voter, error) {
	snapshot, err := c.Snapshot(ctx, address)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	remote, err := c.backend.ListVoters(callCtx, address)
	if err != nil {
		if !errors.Is(err, core.ErrCollaboratorDisabled) {
			c.logger.WithError(err).WithField("address", address).Warn("Backend roster unavailable, using local roster")
		}

		return snapshot.Voters, nil
	}

	return MergeRoster(snapshot.Voters, remote), nil
}

// MergeRoster lists the backend voters first, in backend order, then the local-only ones.
func MergeRoster(local []core.Voter, remote []core.BackendVoter) []core.Voter {
	seen := map[string]struct{}{}
	voters := make([]core.Voter, 0, len(local)+len(remote))

	for _, r := range remote {
		email := core.NormalizeEmail(r.Email)
		if _, ok := seen[email]; ok || email == "" {
			continue
		}

		seen[email] = struct{}{}

		voter := core.Voter{ID: r.ID, Email: email}

		if l, ok := lo.Find(local, func(v core.Voter) bool { return core.NormalizeEmail(v.Email) == email }); ok {
			voter.HasVoted = l.HasVoted
			voter.ID = lo.CoalesceOrEmpty(voter.ID, l.ID)
		}

		voters = append(voters, voter)
	}

	for _, l := range local {
		if _, ok := seen[core.NormalizeEmail(l.Email)]; !ok {
			voters = append(voters, l)
		}
	}

	return voters
}

// UpdateVoter changes the email of a voter who has not voted yet.
func (c *Controller) UpdateVoter(ctx context.Context, address, email, newEmail string) (core.Voter, error) {
	email = core.NormalizeEmail(email)

	newEmail, err := c.voterEmail(newEmail)
	if err != nil {
		return core.Voter{}, err
	}

	var changed core.Voter

	var synced bool

	updated, err := c.mutate(ctx, address, func(current core.Election) (core.Election, error) {
		voter, i, err := editableVoter(current, email)
		if err != nil {
			return core.Election{}, err
		}

		if _, _, ok := current.Voter(newEmail); ok && newEmail != email {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrDuplicateVoter, newEmail)
		}

		if voter.ID != "" && !synced {
			callCtx, cancel := c.withTimeout(ctx)
			defer cancel()

			err := c.backend.UpdateVoter(callCtx, voter.ID, newEmail, current.Name, current.Description)
			if err != nil && !errors.Is(err, core.ErrCollaboratorDisabled) {
				return core.Election{}, core.Sanitize(err, core.ErrCollaboratorFailed, "update voter")
			}

			synced = true
		}

		changed = core.Voter{ID: voter.ID, Email: newEmail}

		next := current.Clone()
		next.Voters[i] = changed

		return next, nil
	})
	if err != nil {
		return core.Voter{}, err
	}

	c.logger.WithField("address", address).Info("Voter updated")
	c.publish(ctx, core.EventVoterUpdated, updated)

	return changed, nil
}

// DeleteVoter removes a voter who has not voted yet.
func (c *Controller) DeleteVoter(ctx context.Context, address, email string) error {
	email = core.NormalizeEmail(email)

	var synced bool

	updated, err := c.mutate(ctx, address, func(current core.Election) (core.Election, error) {
		voter, i, err := editableVoter(current, email)
		if err != nil {
			return core.Election{}, err
		}

		if voter.ID != "" && !synced {
			callCtx, cancel := c.withTimeout(ctx)
			defer cancel()

			err := c.backend.DeleteVoter(callCtx, voter.ID)
			if err != nil && !errors.Is(err, core.ErrCollaboratorDisabled) {
				return core.Election{}, core.Sanitize(err, core.ErrCollaboratorFailed, "delete voter")
			}

			synced = true
		}

		next := current.Clone()
		next.Voters = slices.Delete(next.Voters, i, i+1)
		next.VoterCount = max(next.VoterCount-1, len(next.Voters))

		return next, nil
	})
	if err != nil {
		return err
	}

	c.logger.WithField("address", address).Info("Voter deleted")
	c.publish(ctx, core.EventVoterDeleted, updated)

	return nil
}

// AuthenticateVoter checks the credentials with the backend and returns the voter identity.
func (c *Controller) AuthenticateVoter(ctx context.Context, email, password string) (core.Identity, error) {
	email, err := c.voterEmail(email)
	if err != nil {
		return core.Identity{}, err
	}

	if strings.TrimSpace(password) == "" {
		return core.Identity{}, fmt.Errorf("%w: password is required", core.ErrInvalidInput)
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	identity, err := c.backend.Authenticate(callCtx, email, password)
	if err != nil {
		return core.Identity{}, core.Sanitize(err, core.ErrCollaboratorFailed, "authenticate voter")
	}

	return identity, nil
}

func (c *Controller) voterEmail(email string) (string, error) {
	email = core.NormalizeEmail(email)

	if err := c.validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q is not a valid email", core.ErrInvalidInput, email)
	}

	return email, nil
}

// unregisterVoter undoes a backend registration whose roster commit failed.
func (c *Controller) unregisterVoter(ctx context.Context, address string, voter core.Voter) {
	logger := c.logger.WithFields(logrus.Fields{
		"address": address,
		"voterId": voter.ID,
	})

	callCtx, cancel := c.withTimeout(context.WithoutCancel(ctx))
	defer cancel()

	if err := c.backend.DeleteVoter(callCtx, voter.ID); err != nil {
		logger.WithError(err).Warn("Voter registered with the backend but not in the roster")

		return
	}

	logger.Info("Backend registration rolled back")
}

func editableVoter(e core.Election, email string) (core.Voter, int, error) {
	voter, i, ok := e.Voter(email)
	if !ok {
		return core.Voter{}, 0, fmt.Errorf("%w: %s", core.ErrVoterNotFound, email)
	}

	if voter.HasVoted {
		return core.Voter{}, 0, fmt.Errorf("%w: %s", core.ErrVoterHasVoted, email)
	}

	return voter, i, nil
}
