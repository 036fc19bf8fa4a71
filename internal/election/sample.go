package election

import (
	"github.com/zhulik/evote/internal/core"
)

// Baseline builds the canonical snapshot used for fallbacks and administrative resets.
type Baseline func(address string) core.Election

// Sample is the demo board election every fresh dashboard starts with.
func Sample(address string) core.Election {
	if address == "" {
		address = core.SampleAddress
	}

	candidates := []core.Candidate{
		{
			Email:    "john.doe@company.com",
			Name:     "John Doe",
			Position: "CEO",
			Votes:    45, //nolint:mnd
			Bio:      "Experienced leader with 10+ years in industry",
		},
		{
			Email:    "jane.smith@company.com",
			Name:     "Jane Smith",
			Position: "CTO",
			Votes:    38, //nolint:mnd
			Bio:      "Technology innovator and strategic thinker",
		},
		{
			Email:    "robert.johnson@company.com",
			Name:     "Robert Johnson",
			Position: "CFO",
			Votes:    22, //nolint:mnd
			Bio:      "Financial expert with proven track record",
		},
		{
			Email:    "sarah.williams@company.com",
			Name:     "Sarah Williams",
			Position: "COO",
			Votes:    10, //nolint:mnd
			Bio:      "Operations specialist focused on efficiency",
		},
		{
			Email:    "michael.brown@company.com",
			Name:     "Michael Brown",
			Position: "CMO",
			Votes:    5, //nolint:mnd
			Bio:      "Marketing guru with creative vision",
		},
	}

	return FromTemplate(core.Election{
		Address:     address,
		Name:        "Annual Board Election",
		Description: "Election for Board of Directors 2023",
		Status:      core.StatusActive,
		StartDate:   "2023-10-01",
		EndDate:     "2023-10-15",
		VoterCount:  150, //nolint:mnd
		Candidates:  candidates,
		Voters: []core.Voter{
			{Email: "voter1@company.com", HasVoted: true},
			{Email: "voter2@company.com", HasVoted: true},
			{Email: "voter3@company.com", HasVoted: false},
		},
	}, address)
}

// FromTemplate stamps a template snapshot for address: positional ids, derived totals, fallback source.
func FromTemplate(template core.Election, address string) core.Election {
	e := template.Clone()

	if address != "" {
		e.Address = address
	}

	for i := range e.Candidates {
		e.Candidates[i].ID = i
	}

	e.TotalVotes = e.SumVotes()
	e.VoterCount = max(e.VoterCount, len(e.Voters))
	e.Source = core.SourceFallback

	return e
}
