// Package contract selects the client of the contract ledger.
package contract

import (
	"context"
	"fmt"

	"github.com/zhulik/evote/internal/core"
)

// Disabled is used when no contract node is configured. Every call fails, so reads fall back
// to mirrored snapshots.
type Disabled struct{}

func (Disabled) DefaultSigner() core.Signer {
	return ""
}

func (Disabled) ElectionSummary(context.Context, string) (core.ElectionSummary, error) {
	return core.ElectionSummary{}, disabled()
}

func (Disabled) CandidateCount(context.Context, string) (int, error) {
	return 0, disabled()
}

func (Disabled) Candidate(context.Context, string, int) (core.ContractCandidate, error) {
	return core.ContractCandidate{}, disabled()
}

func (Disabled) AddCandidate(
	context.Context, string, string, string, string, string, core.Signer,
) (core.TransactionResult, error) {
	return core.TransactionResult{}, disabled()
}

func (Disabled) LookupElectionByIdentity(context.Context, string, core.Signer) (core.ElectionRef, error) {
	return core.ElectionRef{}, disabled()
}

func (Disabled) CreateElection(context.Context, string, string, string, core.Signer) (core.TransactionResult, error) {
	return core.TransactionResult{}, disabled()
}

func (Disabled) EndElection(context.Context, string, core.Signer) (core.TransactionResult, error) {
	return core.TransactionResult{}, disabled()
}

func (Disabled) HealthCheck() error {
	return nil
}

func (Disabled) Shutdown() error {
	return nil
}

func disabled() error {
	return fmt.Errorf("%w: contract node", core.ErrCollaboratorDisabled)
}
