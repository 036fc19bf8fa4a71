package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Rank orders statuses along the only allowed direction of travel.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusActive:
		return 1
	case StatusCompleted:
		return 2 //nolint:mnd
	default:
		return -1
	}
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, value)
	}

	return status, nil
}

// Source is where an election snapshot came from.
type Source string

const (
	SourceAuthoritative Source = "authoritative"
	SourceFallback      Source = "fallback"
)

type Candidate struct {
	ID       int    `json:"id"       yaml:"-"`
	Email    string `json:"email"    validate:"required,email" yaml:"email"`
	Name     string `json:"name"     validate:"required"       yaml:"name"`
	Position string `json:"position" yaml:"position"`
	Bio      string `json:"bio"      yaml:"bio"`
	Votes    int    `json:"votes"    validate:"gte=0"          yaml:"votes"`
}

type Voter struct {
	ID       string `json:"id,omitempty" yaml:"id"`
	Email    string `json:"email"        validate:"required,email" yaml:"email"`
	HasVoted bool   `json:"hasVoted"     yaml:"hasVoted"`
}

type Election struct {
	Address     string `json:"address"     validate:"required" yaml:"address"`
	Name        string `json:"name"        validate:"required" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Status      Status `json:"status"      validate:"required,oneof=pending active completed" yaml:"status"`
	StartDate   string `json:"startDate"   yaml:"startDate"`
	EndDate     string `json:"endDate"     yaml:"endDate"`
	VoterCount  int    `json:"voterCount"  validate:"gte=0" yaml:"voterCount"`

	Candidates []Candidate `json:"candidates" validate:"dive" yaml:"candidates"`
	Voters     []Voter     `json:"voters"     validate:"dive" yaml:"voters"`
	TotalVotes int         `json:"totalVotes" yaml:"totalVotes"`

	Source    Source    `json:"source"    yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
	// Revision grows by one with every committed snapshot. Mirrors refuse to go back.
	Revision uint64 `json:"revision" yaml:"-"`
}

// Clone returns a deep copy that shares no slices with e.
func (e Election) Clone() Election {
	e.Candidates = slices.Clone(e.Candidates)
	e.Voters = slices.Clone(e.Voters)

	return e
}

func (e Election) SumVotes() int {
	return lo.SumBy(e.Candidates, func(c Candidate) int { return c.Votes })
}

func (e Election) Candidate(id int) (Candidate, bool) {
	if id < 0 || id >= len(e.Candidates) {
		return Candidate{}, false
	}

	return e.Candidates[id], true
}

func (e Election) HasCandidateEmail(email string) bool {
	email = NormalizeEmail(email)

	return lo.ContainsBy(e.Candidates, func(c Candidate) bool { return NormalizeEmail(c.Email) == email })
}

// Voter finds a roster entry by email, returning its index.
func (e Election) Voter(email string) (Voter, int, bool) {
	email = NormalizeEmail(email)

	return lo.FindIndexOf(e.Voters, func(v Voter) bool { return NormalizeEmail(v.Email) == email })
}

// HasVoted reports the VoteRecord for key. Keys for other elections are never marked.
func (e Election) HasVoted(key VoteRecordKey) bool {
	if key.ElectionAddress != e.Address {
		return false
	}

	voter, _, ok := e.Voter(key.VoterEmail)

	return ok && voter.HasVoted
}

// VoteRecords lists every marked (election, voter) pair.
func (e Election) VoteRecords() []VoteRecordKey {
	voted := lo.Filter(e.Voters, func(v Voter, _ int) bool { return v.HasVoted })

	return lo.Map(voted, func(v Voter, _ int) VoteRecordKey {
		return NewVoteRecordKey(e.Address, v.Email)
	})
}

// VoteRecordKey identifies the one-vote marker of a voter in an election.
type VoteRecordKey struct {
	ElectionAddress string `json:"electionAddress"`
	VoterEmail      string `json:"voterEmail"`
}

func NewVoteRecordKey(address, email string) VoteRecordKey {
	return VoteRecordKey{
		ElectionAddress: address,
		VoterEmail:      NormalizeEmail(email),
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Tallies struct {
	TotalVotes        int        `json:"totalVotes"`
	ParticipationRate int        `json:"participationRate"`
	Leader            *Candidate `json:"leader"`
}

// Resolution is an election snapshot together with the source that produced it for this call.
type Resolution struct {
	Election Election `json:"election"`
	Source   Source   `json:"source"`
}

type CandidateInput struct {
	Name     string `json:"name"     validate:"required"`
	Position string `json:"position"`
	Bio      string `json:"bio"`
	Email    string `json:"email"    validate:"required,email"`
	Votes    int    `json:"votes"    validate:"gte=0"`
}
