package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhulik/evote/internal/core"
	"go.uber.org/atomic"
)

var ErrContractDown = errors.New("contract node is down")

// FakeContract is an in-memory contract network holding any number of elections.
type FakeContract struct {
	mu        sync.Mutex
	elections map[string]*fakeElection
	admins    map[string]string

	// Err, when set, is returned by every call.
	Err error
	// Delay is applied to every call before answering, respecting the context.
	Delay time.Duration
	// Pending makes transactions unconfirmed.
	Pending bool

	Reads        atomic.Int64
	Transactions atomic.Int64
}

type fakeElection struct {
	summary    core.ElectionSummary
	candidates []core.ContractCandidate
}

func NewFakeContract() *FakeContract {
	return &FakeContract{
		elections: map[string]*fakeElection{},
		admins:    map[string]string{},
	}
}

// Seed puts an election on the fake network.
func (c *FakeContract) Seed(address string, e core.Election) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seeded := &fakeElection{
		summary: core.ElectionSummary{Name: e.Name, Description: e.Description, Status: e.Status},
	}

	for _, candidate := range e.Candidates {
		seeded.candidates = append(seeded.candidates, core.ContractCandidate{
			Name:     candidate.Name,
			Position: candidate.Position,
			Votes:    candidate.Votes,
			Email:    candidate.Email,
		})
	}

	c.elections[address] = seeded
}

func (c *FakeContract) SetVotes(address string, index, votes int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.elections[address].candidates[index].Votes = votes
}

func (c *FakeContract) Status(address string) core.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.elections[address]; ok {
		return e.summary.Status
	}

	return ""
}

func (c *FakeContract) DefaultSigner() core.Signer {
	return "0xfake-signer"
}

func (c *FakeContract) ElectionSummary(ctx context.Context, address string) (core.ElectionSummary, error) {
	c.Reads.Inc()

	e, err := c.election(ctx, address)
	if err != nil {
		return core.ElectionSummary{}, err
	}

	return e.summary, nil
}

func (c *FakeContract) CandidateCount(ctx context.Context, address string) (int, error) {
	e, err := c.election(ctx, address)
	if err != nil {
		return 0, err
	}

	return len(e.candidates), nil
}

func (c *FakeContract) Candidate(ctx context.Context, address string, index int) (core.ContractCandidate, error) {
	e, err := c.election(ctx, address)
	if err != nil {
		return core.ContractCandidate{}, err
	}

	if index < 0 || index >= len(e.candidates) {
		return core.ContractCandidate{}, fmt.Errorf("%w: candidate %d", core.ErrMalformedResponse, index)
	}

	return e.candidates[index], nil
}

func (c *FakeContract) AddCandidate(
	ctx context.Context, address, name, position, metadataHash, email string, _ core.Signer,
) (core.TransactionResult, error) {
	if err := c.wait(ctx); err != nil {
		return core.TransactionResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.elections[address]
	if !ok {
		e = &fakeElection{summary: core.ElectionSummary{Status: core.StatusActive}}
		c.elections[address] = e
	}

	e.candidates = append(e.candidates, core.ContractCandidate{
		Name:         name,
		Position:     position,
		MetadataHash: metadataHash,
		Email:        email,
	})

	return c.transaction(), nil
}

func (c *FakeContract) LookupElectionByIdentity(
	ctx context.Context, identity string, _ core.Signer,
) (core.ElectionRef, error) {
	if err := c.wait(ctx); err != nil {
		return core.ElectionRef{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	address, ok := c.admins[identity]
	if !ok {
		return core.ElectionRef{}, fmt.Errorf("%w: %s", core.ErrElectionNotFound, identity)
	}

	e := c.elections[address]

	return core.ElectionRef{Address: address, Name: e.summary.Name, Description: e.summary.Description}, nil
}

func (c *FakeContract) CreateElection(
	ctx context.Context, adminIdentity, name, description string, _ core.Signer,
) (core.TransactionResult, error) {
	if err := c.wait(ctx); err != nil {
		return core.TransactionResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	address := "0x" + uuid.NewString()
	c.admins[adminIdentity] = address

	status := core.StatusActive
	if c.Pending {
		status = core.StatusPending
	}

	c.elections[address] = &fakeElection{
		summary: core.ElectionSummary{Name: name, Description: description, Status: status},
	}

	return c.transaction(), nil
}

func (c *FakeContract) EndElection(ctx context.Context, address string, _ core.Signer) (core.TransactionResult, error) {
	if err := c.wait(ctx); err != nil {
		return core.TransactionResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.elections[address]; ok {
		e.summary.Status = core.StatusCompleted
	}

	return c.transaction(), nil
}

func (c *FakeContract) HealthCheck() error {
	return nil
}

func (c *FakeContract) Shutdown() error {
	return nil
}

func (c *FakeContract) election(ctx context.Context, address string) (fakeElection, error) {
	if err := c.wait(ctx); err != nil {
		return fakeElection{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.elections[address]
	if !ok {
		return fakeElection{summary: core.ElectionSummary{Status: core.StatusPending}}, nil
	}

	return fakeElection{
		summary:    e.summary,
		candidates: append([]core.ContractCandidate(nil), e.candidates...),
	}, nil
}

func (c *FakeContract) wait(ctx context.Context) error {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return c.Err
}

// transaction must be called with mu held.
func (c *FakeContract) transaction() core.TransactionResult {
	c.Transactions.Inc()

	return core.TransactionResult{
		Hash:      "0x" + uuid.NewString(),
		Confirmed: !c.Pending,
	}
}
