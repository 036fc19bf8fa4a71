package ledger_test

import (
	"fmt"
	"math/rand/v2"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/ledger"
	"github.com/zhulik/evote/testhelpers"
	"go.uber.org/atomic"
)

const address = "0xabc"

var _ = Describe("Ledger", func() {
	var mirror *testhelpers.FlakyMirror
	var registry *election.Registry
	var publisher *testhelpers.RecordingPublisher
	var subject *ledger.Ledger

	BeforeEach(func(ctx SpecContext) {
		mirror = testhelpers.NewFlakyMirror()
		registry = election.New(mirror, nil, testhelpers.NewLogger())
		publisher = &testhelpers.RecordingPublisher{}
		subject = ledger.New(registry, testhelpers.RegistryLoader{Registry: registry}, publisher, testhelpers.NewLogger())

		lo.Must(registry.Commit(ctx, election.Sample(address)))
	})

	Describe("CastVote", func() {
		Context("when the ballot is valid", func() {
			It("counts the vote and marks the voter", func(ctx SpecContext) {
				updated, err := subject.CastVote(ctx, address, "voter3@company.com", 2)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated.Candidates[2].Votes).To(Equal(23))
				Expect(updated.TotalVotes).To(Equal(121))
				Expect(updated.HasVoted(core.NewVoteRecordKey(address, "voter3@company.com"))).To(BeTrue())
				Expect(publisher.Kinds()).To(Equal([]core.EventKind{core.EventVoteCast}))
			})

			It("persists the vote record to the mirror", func(ctx SpecContext) {
				lo.Must(subject.CastVote(ctx, address, "voter3@company.com", 0))

				mirrored := lo.Must(mirror.Load(ctx, address))
				Expect(mirrored.HasVoted(core.NewVoteRecordKey(address, "VOTER3@company.com"))).To(BeTrue())
				Expect(mirrored.TotalVotes).To(Equal(121))
			})
		})

		Context("when two instances share the mirror", func() {
			It("rejects the second ballot of a voter", func(ctx SpecContext) {
				replica := election.New(mirror, nil, testhelpers.NewLogger())
				replicaLedger := ledger.New(replica, testhelpers.RegistryLoader{Registry: replica}, publisher, testhelpers.NewLogger())
				lo.Must(replica.Load(ctx, address))

				lo.Must(subject.CastVote(ctx, address, "voter3@company.com", 0))

				_, err := replicaLedger.CastVote(ctx, address, "voter3@company.com", 1)

				Expect(err).To(MatchError(core.ErrDuplicateVote))

				mirrored := lo.Must(mirror.Load(ctx, address))
				Expect(mirrored.Candidates[0].Votes).To(Equal(46))
				Expect(mirrored.Candidates[1].Votes).To(Equal(38))
				Expect(mirrored.TotalVotes).To(Equal(121))
			})

			It("counts ballots of different voters on both instances", func(ctx SpecContext) {
				replica := election.New(mirror, nil, testhelpers.NewLogger())
				replicaLedger := ledger.New(replica, testhelpers.RegistryLoader{Registry: replica}, publisher, testhelpers.NewLogger())
				lo.Must(replica.Load(ctx, address))

				lo.Must(subject.CastVote(ctx, address, "voter3@company.com", 0))
				updated, err := replicaLedger.CastVote(ctx, address, "walk.in@company.com", 1)

				Expect(err).ToNot(HaveOccurred())
				Expect(updated.TotalVotes).To(Equal(122))
				Expect(lo.Must(mirror.Load(ctx, address)).TotalVotes).To(Equal(122))
			})
		})

		Context("when the voter is not on the roster", func() {
			It("appends the voter", func(ctx SpecContext) {
				updated, err := subject.CastVote(ctx, address, "walk.in@company.com", 1)

				Expect(err).ToNot(HaveOccurred())
				voter, _, ok := updated.Voter("walk.in@company.com")
				Expect(ok).To(BeTrue())
				Expect(voter.HasVoted).To(BeTrue())
				Expect(updated.VoterCount).To(Equal(150))
			})
		})

		Context("when the voter already voted", func() {
			It("rejects the ballot without changing counts", func(ctx SpecContext) {
				lo.Must(subject.CastVote(ctx, address, "voter3@company.com", 0))

				_, err := subject.CastVote(ctx, address, " Voter3@Company.com ", 1)

				Expect(err).To(MatchError(core.ErrDuplicateVote))

				store, _ := registry.Lookup(address)
				Expect(store.Get().TotalVotes).To(Equal(121))
				Expect(store.Get().Candidates[1].Votes).To(Equal(38))
			})
		})

		Context("when the email is blank", func() {
			It("returns ErrVoterNotIdentified", func(ctx SpecContext) {
				_, err := subject.CastVote(ctx, address, "  ", 0)

				Expect(err).To(MatchError(core.ErrVoterNotIdentified))
			})
		})

		Context("when the candidate does not exist", func() {
			It("returns ErrInvalidCandidate", func(ctx SpecContext) {
				_, err := subject.CastVote(ctx, address, "voter3@company.com", 5)
				Expect(err).To(MatchError(core.ErrInvalidCandidate))

				_, err = subject.CastVote(ctx, address, "voter3@company.com", -1)
				Expect(err).To(MatchError(core.ErrInvalidCandidate))
			})
		})

		Context("when the election is not active", func() {
			It("returns ErrElectionClosed", func(ctx SpecContext) {
				closed := lo.Must(registry.Load(ctx, address)).Get()
				closed.Status = core.StatusCompleted
				lo.Must(registry.Commit(ctx, closed))

				_, err := subject.CastVote(ctx, address, "voter3@company.com", 0)

				Expect(err).To(MatchError(core.ErrElectionClosed))
			})
		})

		Context("when the election is unknown", func() {
			It("returns ErrElectionNotFound", func(ctx SpecContext) {
				_, err := subject.CastVote(ctx, "0xmissing", "voter3@company.com", 0)

				Expect(err).To(MatchError(core.ErrElectionNotFound))
			})
		})

		Context("when the mirror is down", func() {
			It("leaves memory untouched", func(ctx SpecContext) {
				mirror.Down.Store(true)

				_, err := subject.CastVote(ctx, address, "voter3@company.com", 0)

				Expect(err).To(MatchError(core.ErrMirrorUnavailable))

				store, _ := registry.Lookup(address)
				Expect(store.Get().TotalVotes).To(Equal(120))
				Expect(publisher.Events()).To(BeEmpty())
			})
		})

		Context("when two voters vote concurrently", func() {
			It("applies both ballots", func(ctx SpecContext) {
				var wg sync.WaitGroup

				for _, email := range []string{"voter3@company.com", "voter4@company.com"} {
					wg.Add(1)

					go func() {
						defer GinkgoRecover()
						defer wg.Done()

						_, err := subject.CastVote(ctx, address, email, 4)
						Expect(err).ToNot(HaveOccurred())
					}()
				}

				wg.Wait()

				store, _ := registry.Lookup(address)
				Expect(store.Get().TotalVotes).To(Equal(122))
				Expect(store.Get().Candidates[4].Votes).To(Equal(7))
			})
		})

		Context("when many ballots race, some of them duplicates", func() {
			It("counts every voter exactly once", func(ctx SpecContext) {
				var wg sync.WaitGroup

				accepted := atomic.NewInt64(0)
				voters := 20

				for i := range voters * 3 {
					wg.Add(1)

					go func() {
						defer GinkgoRecover()
						defer wg.Done()

						_, err := subject.CastVote(ctx, address, fmt.Sprintf("racer%d@company.com", i%voters), i%5)
						if err == nil {
							accepted.Inc()

							return
						}

						Expect(err).To(MatchError(core.ErrDuplicateVote))
					}()
				}

				wg.Wait()

				Expect(accepted.Load()).To(Equal(int64(voters)))

				store, _ := registry.Lookup(address)
				Expect(store.Get().TotalVotes).To(Equal(120 + voters))
			})
		})

		Context("with random ballot sequences", func() {
			It("keeps the total equal to the sum of candidate votes", func(ctx SpecContext) {
				rng := rand.New(rand.NewPCG(42, 1024)) //nolint:gosec

				for range 200 {
					email := fmt.Sprintf("voter%d@company.com", rng.IntN(60))
					candidate := rng.IntN(7) - 1

					updated, err := subject.CastVote(ctx, address, email, candidate)
					if err != nil {
						Expect(err).To(Or(MatchError(core.ErrDuplicateVote), MatchError(core.ErrInvalidCandidate)))

						continue
					}

					Expect(updated.TotalVotes).To(Equal(updated.SumVotes()))
					Expect(election.Validate(updated)).To(Succeed())
				}

				store, _ := registry.Lookup(address)
				snapshot := store.Get()
				Expect(snapshot.TotalVotes).To(Equal(snapshot.SumVotes()))
				Expect(snapshot.TotalVotes - 120).To(Equal(len(snapshot.VoteRecords()) - 2))
			})
		})
	})

	Describe("HasVoted", func() {
		It("reports the vote record", func(ctx SpecContext) {
			Expect(subject.HasVoted(ctx, core.NewVoteRecordKey(address, "voter1@company.com"))).To(BeTrue())
			Expect(subject.HasVoted(ctx, core.NewVoteRecordKey(address, "voter3@company.com"))).To(BeFalse())

			lo.Must(subject.CastVote(ctx, address, "voter3@company.com", 0))

			Expect(subject.HasVoted(ctx, core.NewVoteRecordKey(address, "voter3@company.com"))).To(BeTrue())
		})
	})
})

var _ = Describe("Apply", func() {
	It("does not modify its input", func() {
		before := election.Sample(address)
		snapshot := before.Clone()

		lo.Must(ledger.Apply(snapshot, "voter3@company.com", 0))

		Expect(snapshot).To(Equal(before))
	})
})
