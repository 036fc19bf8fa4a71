package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Ballot errors.
	ErrInvalidCandidate   = errors.New("invalid candidate")
	ErrElectionClosed     = errors.New("election is not active")
	ErrDuplicateVote      = errors.New("voter has already voted")
	ErrVoterNotIdentified = errors.New("voter is not identified")

	// Roster errors.
	ErrDuplicateVoter     = errors.New("voter already registered")
	ErrDuplicateCandidate = errors.New("candidate already registered")
	ErrVoterNotFound      = errors.New("voter not found")
	ErrVoterHasVoted      = errors.New("voter has already voted and cannot be changed")

	// Lifecycle errors.
	ErrInvalidState      = errors.New("invalid election state")
	ErrAlreadyCompleted  = errors.New("election already completed")
	ErrElectionNotFound  = errors.New("election not found")
	ErrCreationFailed    = errors.New("election creation failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrMirrorUnavailable = errors.New("mirror unavailable")
	ErrStaleSnapshot     = errors.New("a newer snapshot is already mirrored")
	ErrConcurrentUpdate  = errors.New("election was changed concurrently")

	// Collaborator errors.
	ErrCollaboratorTimeout  = errors.New("collaborator timed out")
	ErrCollaboratorFailed   = errors.New("collaborator request failed")
	ErrCollaboratorDisabled = errors.New("collaborator is not configured")
	ErrMalformedResponse    = errors.New("malformed collaborator response")
)

// Domain sentinels a collaborator may legitimately report; Sanitize keeps them.
var passthrough = []error{ //nolint:gochecknoglobals
	ErrElectionNotFound,
	ErrAuthFailed,
	ErrDuplicateVoter,
	ErrVoterNotFound,
}

// Sanitize converts a collaborator error into kind, dropping transport details from the message.
// Timeouts additionally wrap ErrCollaboratorTimeout, caller cancellation is returned as is.
func Sanitize(err error, kind error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s cancelled: %w", op, context.Canceled)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCollaboratorTimeout) {
		if errors.Is(kind, ErrCollaboratorTimeout) {
			return fmt.Errorf("%w: %s", ErrCollaboratorTimeout, op)
		}

		return fmt.Errorf("%w: %w: %s", kind, ErrCollaboratorTimeout, op)
	}

	for _, sentinel := range passthrough {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%s: %w", op, sentinel)
		}
	}

	return fmt.Errorf("%w: %s", kind, op)
}
