package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind = string

const (
	EventElectionCreated  EventKind = "election.created"
	EventElectionResolved EventKind = "election.resolved"
	EventElectionEnded    EventKind = "election.ended"
	EventElectionReset    EventKind = "election.reset"
	EventCandidateAdded   EventKind = "candidate.added"
	EventVoterRegistered  EventKind = "voter.registered"
	EventVoterUpdated     EventKind = "voter.updated"
	EventVoterDeleted     EventKind = "voter.deleted"
	EventVoteCast         EventKind = "vote.cast"
)

// Event is published after a mutation has been committed.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Address  string    `json:"address"`
	At       time.Time `json:"at"`
	Election Election  `json:"election"`
}

func NewEvent(kind EventKind, election Election) Event {
	return Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		Address:  election.Address,
		At:       time.Now(),
		Election: election,
	}
}

func (e Event) Subject() string {
	return fmt.Sprintf("%s.%s.%s", EventsSubjectBase, e.Kind, SubjectToken(e.Address))
}

// SubjectToken makes an election address safe for use as a NATS subject or KV key token.
func SubjectToken(address string) string {
	token := make([]rune, 0, len(address))

	for _, r := range address {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			token = append(token, r)
		default:
			token = append(token, '_')
		}
	}

	return string(token)
}
