// Package memory keeps mirrored snapshots in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
)

type Mirror struct {
	mu        sync.RWMutex
	elections map[string]core.Election
}

func New() *Mirror {
	return &Mirror{
		elections: map[string]core.Election{},
	}
}

func (m *Mirror) Load(_ context.Context, address string) (core.Election, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	election, ok := m.elections[address]
	if !ok {
		return core.Election{}, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
	}

	return election.Clone(), nil
}

func (m *Mirror) Save(_ context.Context, election core.Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, ok := m.elections[election.Address]; ok && stored.Revision >= election.Revision {
		return fmt.Errorf("%w: %s is at revision %d", core.ErrStaleSnapshot, election.Address, stored.Revision)
	}

	m.elections[election.Address] = election.Clone()

	return nil
}

func (m *Mirror) Delete(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.elections, address)

	return nil
}

func (m *Mirror) Addresses(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addresses := lo.Keys(m.elections)
	slices.Sort(addresses)

	return addresses, nil
}

func (m *Mirror) HealthCheck() error {
	return nil
}

func (m *Mirror) Shutdown() error {
	return nil
}
