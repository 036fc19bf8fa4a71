package backend

import (
	"context"
	"fmt"

	"github.com/zhulik/evote/internal/core"
)

// Disabled is used when no registration service is configured. Voters are then kept only on the
// local roster.
type Disabled struct{}

func (Disabled) RegisterVoter(context.Context, string, string, string, string) (string, error) {
	return "", disabled()
}

func (Disabled) ListVoters(context.Context, string) ([]core.BackendVoter, error) {
	return nil, disabled()
}

func (Disabled) UpdateVoter(context.Context, string, string, string, string) error {
	return disabled()
}

func (Disabled) DeleteVoter(context.Context, string) error {
	return disabled()
}

func (Disabled) Authenticate(context.Context, string, string) (core.Identity, error) {
	return core.Identity{}, disabled()
}

func (Disabled) RegisterCandidate(context.Context, string, string) error {
	return disabled()
}

func (Disabled) HealthCheck() error {
	return nil
}

func (Disabled) Shutdown() error {
	return nil
}

func disabled() error {
	return fmt.Errorf("%w: registration backend", core.ErrCollaboratorDisabled)
}
