package sqlite

import (
	"time"

	"github.com/zhulik/evote/internal/core"
)

type electionDB struct {
	Address     string `gorm:"primaryKey;column:address"`
	Name        string `gorm:"column:name;not null"`
	Description string `gorm:"column:description;not null"`
	Status      string `gorm:"column:status;not null"`
	StartDate   string `gorm:"column:start_date"`
	EndDate     string `gorm:"column:end_date"`
	VoterCount  int    `gorm:"column:voter_count;not null"`
	TotalVotes  int    `gorm:"column:total_votes;not null"`
	Source      string `gorm:"column:source;not null"`
	// Set by the registry, not by gorm.
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	Revision  uint64    `gorm:"column:revision;not null;default:0"`

	Candidates  []candidateDB  `gorm:"foreignKey:ElectionAddress;references:Address;constraint:OnDelete:CASCADE"`
	VoteRecords []voteRecordDB `gorm:"foreignKey:ElectionAddress;references:Address;constraint:OnDelete:CASCADE"`
}

func (electionDB) TableName() string {
	return "elections"
}

type candidateDB struct {
	ElectionAddress string `gorm:"primaryKey;column:election_address"`
	Position        int    `gorm:"primaryKey;column:position;autoIncrement:false"`
	Email           string `gorm:"column:email"`
	Name            string `gorm:"column:name;not null"`
	Role            string `gorm:"column:role"`
	Bio             string `gorm:"column:bio"`
	Votes           int    `gorm:"column:votes;not null"`
}

func (candidateDB) TableName() string {
	return "candidates"
}

// voteRecordDB is one roster entry together with its VoteRecord.
type voteRecordDB struct {
	ElectionAddress string `gorm:"primaryKey;column:election_address"`
	VoterEmail      string `gorm:"primaryKey;column:voter_email"`
	VoterID         string `gorm:"column:voter_id"`
	HasVoted        bool   `gorm:"column:has_voted;not null"`
	Seq             int    `gorm:"column:seq;not null"`
}

func (voteRecordDB) TableName() string {
	return "vote_records"
}

func toDB(e core.Election) electionDB {
	record := electionDB{
		Address:     e.Address,
		Name:        e.Name,
		Description: e.Description,
		Status:      string(e.Status),
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		VoterCount:  e.VoterCount,
		TotalVotes:  e.TotalVotes,
		Source:      string(e.Source),
		UpdatedAt:   e.UpdatedAt,
		Revision:    e.Revision,
	}

	for _, candidate := range e.Candidates {
		record.Candidates = append(record.Candidates, candidateDB{
			ElectionAddress: e.Address,
			Position:        candidate.ID,
			Email:           candidate.Email,
			Name:            candidate.Name,
			Role:            candidate.Position,
			Bio:             candidate.Bio,
			Votes:           candidate.Votes,
		})
	}

	for i, voter := range e.Voters {
		record.VoteRecords = append(record.VoteRecords, voteRecordDB{
			ElectionAddress: e.Address,
			VoterEmail:      core.NormalizeEmail(voter.Email),
			VoterID:         voter.ID,
			HasVoted:        voter.HasVoted,
			Seq:             i,
		})
	}

	return record
}

func fromDB(record electionDB) core.Election {
	e := core.Election{
		Address:     record.Address,
		Name:        record.Name,
		Description: record.Description,
		Status:      core.Status(record.Status),
		StartDate:   record.StartDate,
		EndDate:     record.EndDate,
		VoterCount:  record.VoterCount,
		TotalVotes:  record.TotalVotes,
		Source:      core.Source(record.Source),
		UpdatedAt:   record.UpdatedAt,
		Revision:    record.Revision,
	}

	for _, candidate := range record.Candidates {
		e.Candidates = append(e.Candidates, core.Candidate{
			ID:       candidate.Position,
			Email:    candidate.Email,
			Name:     candidate.Name,
			Position: candidate.Role,
			Bio:      candidate.Bio,
			Votes:    candidate.Votes,
		})
	}

	for _, voter := range record.VoteRecords {
		e.Voters = append(e.Voters, core.Voter{
			ID:       voter.VoterID,
			Email:    voter.VoterEmail,
			HasVoted: voter.HasVoted,
		})
	}

	return e
}
