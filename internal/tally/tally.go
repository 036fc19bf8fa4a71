// Package tally derives the aggregate figures shown on the dashboard from an election snapshot.
package tally

import (
	"math"

	"github.com/zhulik/evote/internal/core"
)

// Compute is pure and safe for concurrent use.
func Compute(e core.Election) core.Tallies {
	tallies := core.Tallies{
		TotalVotes:        e.TotalVotes,
		ParticipationRate: ParticipationRate(e.TotalVotes, e.VoterCount),
	}

	if leader, ok := Leader(e.Candidates); ok {
		tallies.Leader = &leader
	}

	return tallies
}

// ParticipationRate is the rounded share of registered voters that voted, in percent.
func ParticipationRate(totalVotes, voterCount int) int {
	if voterCount <= 0 {
		return 0
	}

	return int(math.Round(float64(totalVotes) / float64(voterCount) * 100)) //nolint:mnd
}

// Leader picks the candidate with strictly most votes, the lowest id wins a tie.
func Leader(candidates []core.Candidate) (core.Candidate, bool) {
	if len(candidates) == 0 {
		return core.Candidate{}, false
	}

	leader := candidates[0]

	for _, candidate := range candidates[1:] {
		if candidate.Votes > leader.Votes || (candidate.Votes == leader.Votes && candidate.ID < leader.ID) {
			leader = candidate
		}
	}

	return leader, true
}
