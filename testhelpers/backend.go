package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
)

var ErrBackendDown = errors.New("backend is down")

type backendVoter struct {
	core.BackendVoter

	address  string
	password string
}

// FakeBackend is an in-memory registration service.
type FakeBackend struct {
	mu         sync.Mutex
	voters     []backendVoter
	candidates []string

	// Err, when set, is returned by every call.
	Err error
}

func (b *FakeBackend) Candidates() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.candidates...)
}

// SetPassword sets the password of a registered voter.
func (b *FakeBackend) SetPassword(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.voters {
		if b.voters[i].Email == email {
			b.voters[i].password = password
		}
	}
}

func (b *FakeBackend) RegisterVoter(_ context.Context, email, address, _, _ string) (string, error) {
	if b.Err != nil {
		return "", b.Err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if lo.ContainsBy(b.voters, func(v backendVoter) bool { return v.Email == email && v.address == address }) {
		return "", fmt.Errorf("%w: %s", core.ErrDuplicateVoter, email)
	}

	id := uuid.NewString()
	b.voters = append(b.voters, backendVoter{
		BackendVoter: core.BackendVoter{ID: id, Email: email},
		address:      address,
	})

	return id, nil
}

func (b *FakeBackend) ListVoters(_ context.Context, address string) ([]core.BackendVoter, error) {
	if b.Err != nil {
		return nil, b.Err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	voters := lo.Filter(b.voters, func(v backendVoter, _ int) bool { return v.address == address })

	return lo.Map(voters, func(v backendVoter, _ int) core.BackendVoter { return v.BackendVoter }), nil
}

func (b *FakeBackend) UpdateVoter(_ context.Context, voterID, email, _, _ string) error {
	if b.Err != nil {
		return b.Err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, i, ok := lo.FindIndexOf(b.voters, func(v backendVoter) bool { return v.ID == voterID })
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrVoterNotFound, voterID)
	}

	b.voters[i].Email = email

	return nil
}

func (b *FakeBackend) DeleteVoter(_ context.Context, voterID string) error {
	if b.Err != nil {
		return b.Err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.voters = lo.Reject(b.voters, func(v backendVoter, _ int) bool { return v.ID == voterID })

	return nil
}

func (b *FakeBackend) Authenticate(_ context.Context, email, password string) (core.Identity, error) {
	if b.Err != nil {
		return core.Identity{}, b.Err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	voter, ok := lo.Find(b.voters, func(v backendVoter) bool { return v.Email == email })
	if !ok || voter.password == "" || voter.password != password {
		return core.Identity{}, core.ErrAuthFailed
	}

	return core.Identity{ID: voter.ID, Email: voter.Email, ElectionAddress: voter.address}, nil
}

func (b *FakeBackend) RegisterCandidate(_ context.Context, email, _ string) error {
	if b.Err != nil {
		return b.Err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.candidates = append(b.candidates, email)

	return nil
}

func (b *FakeBackend) HealthCheck() error {
	return nil
}

func (b *FakeBackend) Shutdown() error {
	return nil
}
