package election_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
)

var _ = Describe("Store", func() {
	var store *election.Store
	var initial core.Election

	BeforeEach(func() {
		initial = election.Sample("0xabc")
		initial.Source = core.SourceAuthoritative
		store = election.NewStore(initial, election.Sample("0xabc"))
	})

	Describe("Get", func() {
		It("returns a copy that does not alias the store", func() {
			snapshot := store.Get()
			snapshot.Candidates[0].Votes = 999
			snapshot.Voters[2].HasVoted = true

			Expect(store.Get()).To(Equal(initial))
		})
	})

	Describe("Replace", func() {
		Context("when the transition is legal", func() {
			It("swaps the snapshot", func() {
				next := store.Get()
				next.Candidates[1].Votes++
				next.TotalVotes++
				next.Voters[2].HasVoted = true

				replaced, err := store.Replace(next)

				Expect(err).ToNot(HaveOccurred())
				Expect(replaced).To(Equal(next))
				Expect(store.Get().TotalVotes).To(Equal(121))
			})
		})

		Context("when the transition is illegal", func() {
			It("keeps the old snapshot", func() {
				next := store.Get()
				next.Voters[0].HasVoted = false

				_, err := store.Replace(next)

				Expect(err).To(MatchError(core.ErrInvalidState))
				Expect(store.Get()).To(Equal(initial))
			})
		})

		Context("when the current snapshot is a fallback", func() {
			BeforeEach(func() {
				store = election.NewStore(election.Sample("0xabc"), election.Sample("0xabc"))
			})

			It("accepts any valid authoritative snapshot", func() {
				next := core.Election{
					Address:    "0xabc",
					Name:       "Real",
					Status:     core.StatusActive,
					Candidates: []core.Candidate{{ID: 0, Email: "only@x.io", Name: "Only", Votes: 1}},
					TotalVotes: 1,
					Source:     core.SourceAuthoritative,
				}

				_, err := store.Replace(next)

				Expect(err).ToNot(HaveOccurred())
				Expect(store.Get().Candidates).To(HaveLen(1))
			})

			It("still validates the snapshot itself", func() {
				next := store.Get()
				next.Source = core.SourceAuthoritative
				next.TotalVotes = 0

				_, err := store.Replace(next)

				Expect(err).To(MatchError(core.ErrInvalidState))
			})
		})
	})

	Describe("Adopt", func() {
		It("installs the snapshot without transition checks", func() {
			mirrored := election.Sample("0xabc")
			mirrored.Candidates = mirrored.Candidates[:1]
			mirrored.TotalVotes = mirrored.SumVotes()
			mirrored.Revision = 7

			store.Adopt(mirrored)

			Expect(store.Revision()).To(Equal(uint64(7)))
			Expect(store.Get().Candidates).To(HaveLen(1))
		})
	})

	Describe("Reset", func() {
		It("restores the baseline", func() {
			next := store.Get()
			next.Voters[2].HasVoted = true
			_, err := store.Replace(next)
			Expect(err).ToNot(HaveOccurred())

			reset := store.Reset()

			baseline := election.Sample("0xabc")
			baseline.Revision = next.Revision + 1

			Expect(reset).To(Equal(baseline))
			Expect(reset.HasVoted(core.NewVoteRecordKey("0xabc", "voter3@company.com"))).To(BeFalse())
		})
	})
})
