package testhelpers

import (
	"context"

	"github.com/zhulik/evote/internal/election"
)

// RegistryLoader resolves elections from the registry and its mirror only.
type RegistryLoader struct {
	Registry *election.Registry
}

func (l RegistryLoader) Store(ctx context.Context, address string) (*election.Store, error) {
	return l.Registry.Load(ctx, address)
}
