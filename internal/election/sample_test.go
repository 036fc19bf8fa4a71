package election_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
)

var _ = Describe("Sample", func() {
	It("builds the demo board election", func() {
		sample := election.Sample("0xabc")

		Expect(sample.Address).To(Equal("0xabc"))
		Expect(sample.Status).To(Equal(core.StatusActive))
		Expect(sample.Source).To(Equal(core.SourceFallback))
		Expect(sample.Candidates).To(HaveLen(5))
		Expect(sample.TotalVotes).To(Equal(120))
		Expect(sample.VoterCount).To(Equal(150))
		Expect(sample.VoteRecords()).To(ConsistOf(
			core.NewVoteRecordKey("0xabc", "voter1@company.com"),
			core.NewVoteRecordKey("0xabc", "voter2@company.com"),
		))
	})

	It("defaults to the well-known sample address", func() {
		Expect(election.Sample("").Address).To(Equal(core.SampleAddress))
	})

	It("returns independent copies", func() {
		first := election.Sample("0xabc")
		first.Candidates[0].Votes = 1000

		Expect(election.Sample("0xabc").Candidates[0].Votes).To(Equal(45))
	})
})

var _ = Describe("FromTemplate", func() {
	It("derives ids, totals and voter count", func() {
		stamped := election.FromTemplate(core.Election{
			Name:       "Template",
			Status:     core.StatusPending,
			VoterCount: 1,
			Candidates: []core.Candidate{
				{ID: 9, Email: "a@x.io", Votes: 2},
				{ID: 3, Email: "b@x.io", Votes: 5},
			},
			Voters: []core.Voter{{Email: "v1@x.io"}, {Email: "v2@x.io"}, {Email: "v3@x.io"}},
		}, "0x1")

		Expect(stamped.Address).To(Equal("0x1"))
		Expect(stamped.Candidates[0].ID).To(Equal(0))
		Expect(stamped.Candidates[1].ID).To(Equal(1))
		Expect(stamped.TotalVotes).To(Equal(7))
		Expect(stamped.VoterCount).To(Equal(3))
		Expect(election.Validate(stamped)).To(Succeed())
	})
})
