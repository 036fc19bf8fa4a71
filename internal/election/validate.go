package election

import (
	"fmt"

	"github.com/zhulik/evote/internal/core"
)

// Validate checks the invariants a single snapshot must hold on its own.
func Validate(e core.Election) error { //nolint:cyclop
	if e.Address == "" {
		return fmt.Errorf("%w: empty address", core.ErrInvalidState)
	}

	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", core.ErrInvalidState, e.Status)
	}

	if e.VoterCount < 0 {
		return fmt.Errorf("%w: negative voter count", core.ErrInvalidState)
	}

	emails := make(map[string]struct{}, len(e.Candidates))

	for i, candidate := range e.Candidates {
		if candidate.ID != i {
			return fmt.Errorf("%w: candidate at position %d has id %d", core.ErrInvalidState, i, candidate.ID)
		}

		if candidate.Votes < 0 {
			return fmt.Errorf("%w: candidate %d has negative votes", core.ErrInvalidState, i)
		}

		email := core.NormalizeEmail(candidate.Email)
		if _, ok := emails[email]; ok && email != "" {
			return fmt.Errorf("%w: duplicate candidate email %s", core.ErrInvalidState, email)
		}

		emails[email] = struct{}{}
	}

	if sum := e.SumVotes(); sum != e.TotalVotes {
		return fmt.Errorf("%w: total votes %d != sum of candidate votes %d", core.ErrInvalidState, e.TotalVotes, sum)
	}

	voters := make(map[string]struct{}, len(e.Voters))

	for _, voter := range e.Voters {
		email := core.NormalizeEmail(voter.Email)
		if email == "" {
			return fmt.Errorf("%w: voter without email", core.ErrInvalidState)
		}

		if _, ok := voters[email]; ok {
			return fmt.Errorf("%w: duplicate voter %s", core.ErrInvalidState, email)
		}

		voters[email] = struct{}{}
	}

	return nil
}

// ValidateTransition checks the invariants that relate a snapshot to its successor:
// candidates are append-only, status only moves forward and VoteRecords are never cleared.
func ValidateTransition(prev, next core.Election) error {
	if prev.Address != next.Address {
		return fmt.Errorf("%w: address changed from %s to %s", core.ErrInvalidState, prev.Address, next.Address)
	}

	if next.Status.Rank() < prev.Status.Rank() {
		return fmt.Errorf("%w: status cannot go from %s to %s", core.ErrInvalidState, prev.Status, next.Status)
	}

	if len(next.Candidates) < len(prev.Candidates) {
		return fmt.Errorf("%w: candidates cannot be removed", core.ErrInvalidState)
	}

	for i, candidate := range prev.Candidates {
		if core.NormalizeEmail(next.Candidates[i].Email) != core.NormalizeEmail(candidate.Email) {
			return fmt.Errorf("%w: candidate %d was replaced", core.ErrInvalidState, i)
		}
	}

	for _, key := range prev.VoteRecords() {
		if !next.HasVoted(key) {
			return fmt.Errorf("%w: vote record of %s was cleared", core.ErrInvalidState, key.VoterEmail)
		}
	}

	return nil
}

// IsRebase reports whether next replaces a fallback snapshot with ledger data, in which case
// the transition rules relative to the fallback do not apply.
func IsRebase(prev, next core.Election) bool {
	return prev.Source == core.SourceFallback && next.Source == core.SourceAuthoritative
}
