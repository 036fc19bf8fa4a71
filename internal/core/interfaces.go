package core

import (
	"context"
	"time"

	"github.com/samber/do"
)

type ServiceDependency interface {
	do.Healthcheckable
	do.Shutdownable
}

type Config interface {
	HTTPPort() int
	LogLevel() string

	NatsURL() string

	MirrorBackend() string
	MirrorBucket() string
	SQLitePath() string

	EthRPCURL() string
	EthFactoryAddress() string
	EthPrivateKey() string

	BackendURL() string

	CollaboratorTimeout() time.Duration
	RefreshInterval() time.Duration

	SampleFallback() bool
	SampleFile() string

	EventsEnabled() bool
}

// Signer is the account a contract transaction is sent from. Empty means the client's default.
type Signer string

type ElectionSummary struct {
	Name        string
	Description string
	Status      Status
}

type ContractCandidate struct {
	Name         string
	Position     string
	MetadataHash string
	Votes        int
	Email        string
}

type TransactionResult struct {
	Hash      string
	Confirmed bool
}

type ElectionRef struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ContractClient is the authoritative election ledger.
type ContractClient interface {
	ServiceDependency

	DefaultSigner() Signer

	ElectionSummary(ctx context.Context, address string) (ElectionSummary, error)
	CandidateCount(ctx context.Context, address string) (int, error)
	Candidate(ctx context.Context, address string, index int) (ContractCandidate, error)

	AddCandidate(ctx context.Context, address, name, position, metadataHash, email string, signer Signer) (TransactionResult, error) //nolint:lll
	LookupElectionByIdentity(ctx context.Context, identity string, signer Signer) (ElectionRef, error)
	CreateElection(ctx context.Context, adminIdentity, name, description string, signer Signer) (TransactionResult, error)
	EndElection(ctx context.Context, address string, signer Signer) (TransactionResult, error)
}

type BackendVoter struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Identity struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	ElectionAddress string `json:"electionAddress,omitempty"`
}

// RegistrationBackend is the account and voter registration service.
type RegistrationBackend interface {
	ServiceDependency

	RegisterVoter(ctx context.Context, email, electionAddress, electionName, electionDescription string) (string, error)
	ListVoters(ctx context.Context, electionAddress string) ([]BackendVoter, error)
	UpdateVoter(ctx context.Context, voterID, email, electionName, electionDescription string) error
	DeleteVoter(ctx context.Context, voterID string) error
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	RegisterCandidate(ctx context.Context, email, electionName string) error
}

// Mirror persists the last known snapshot of every election together with its VoteRecords.
type Mirror interface {
	ServiceDependency

	// Load returns ErrElectionNotFound when nothing is mirrored for address.
	Load(ctx context.Context, address string) (Election, error)
	// Save stores the snapshot and its roster atomically. It returns ErrStaleSnapshot when the
	// mirror already holds a revision equal to or newer than election.Revision.
	Save(ctx context.Context, election Election) error
	Delete(ctx context.Context, address string) error
	Addresses(ctx context.Context) ([]string, error)
}

type Publisher interface {
	ServiceDependency

	Publish(ctx context.Context, event Event) error
}
