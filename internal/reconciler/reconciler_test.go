package reconciler_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/reconciler"
	"github.com/zhulik/evote/testhelpers"
)

const address = "0xabc"

func onChain() core.Election {
	return core.Election{
		Name:        "Board 2024",
		Description: "On chain",
		Status:      core.StatusActive,
		Candidates: []core.Candidate{
			{Email: "alice@company.com", Name: "Alice", Position: "CEO", Votes: 3},
			{Email: "bob@company.com", Name: "Bob", Position: "CTO", Votes: 4},
		},
	}
}

var _ = Describe("Reconciler", func() {
	var mirror *testhelpers.FlakyMirror
	var registry *election.Registry
	var contract *testhelpers.FakeContract
	var publisher *testhelpers.RecordingPublisher
	var sampleFallback bool

	newReconciler := func() *reconciler.Reconciler {
		return reconciler.New(registry, contract, publisher, testhelpers.NewLogger(), 100*time.Millisecond, sampleFallback)
	}

	BeforeEach(func() {
		mirror = testhelpers.NewFlakyMirror()
		registry = election.New(mirror, nil, testhelpers.NewLogger())
		contract = testhelpers.NewFakeContract()
		publisher = &testhelpers.RecordingPublisher{}
		sampleFallback = true
	})

	Describe("Resolve", func() {
		Context("when the contract has candidates", func() {
			BeforeEach(func() {
				contract.Seed(address, onChain())
			})

			It("adopts the contract snapshot as authoritative", func(ctx SpecContext) {
				resolution, err := newReconciler().Resolve(ctx, address)

				Expect(err).ToNot(HaveOccurred())
				Expect(resolution.Source).To(Equal(core.SourceAuthoritative))
				Expect(resolution.Election.Source).To(Equal(core.SourceAuthoritative))
				Expect(resolution.Election.Candidates).To(HaveLen(2))
				Expect(resolution.Election.Candidates[1].ID).To(Equal(1))
				Expect(resolution.Election.Candidates[1].Bio).To(Equal(core.DefaultCandidateBio))
				Expect(resolution.Election.TotalVotes).To(Equal(7))
				Expect(publisher.Kinds()).To(Equal([]core.EventKind{core.EventElectionResolved}))
			})

			It("overwrites the mirror", func(ctx SpecContext) {
				lo.Must(newReconciler().Resolve(ctx, address))

				mirrored := lo.Must(mirror.Load(ctx, address))
				Expect(mirrored.Name).To(Equal("Board 2024"))
				Expect(mirrored.Source).To(Equal(core.SourceAuthoritative))
			})

			It("keeps the local roster and the most advanced status", func(ctx SpecContext) {
				subject := newReconciler()
				lo.Must(subject.Resolve(ctx, address))

				local := lo.Must(registry.Load(ctx, address)).Get()
				local.Voters = append(local.Voters, core.Voter{Email: "v@company.com", HasVoted: true})
				local.Status = core.StatusCompleted
				local.StartDate = "2024-01-01"
				local.Candidates[0].Bio = "Local bio"
				lo.Must(registry.Commit(ctx, local))

				contract.SetVotes(address, 0, 10)

				resolution, err := subject.Resolve(ctx, address)

				Expect(err).ToNot(HaveOccurred())
				Expect(resolution.Election.Status).To(Equal(core.StatusCompleted))
				Expect(resolution.Election.StartDate).To(Equal("2024-01-01"))
				Expect(resolution.Election.Candidates[0].Bio).To(Equal("Local bio"))
				Expect(resolution.Election.TotalVotes).To(Equal(14))
				Expect(resolution.Election.HasVoted(core.NewVoteRecordKey(address, "v@company.com"))).To(BeTrue())
			})
		})

		Context("when a fallback snapshot is later contradicted by the contract", func() {
			It("re-baselines onto the contract", func(ctx SpecContext) {
				subject := newReconciler()

				fallback, err := subject.Resolve(ctx, address)
				Expect(err).ToNot(HaveOccurred())
				Expect(fallback.Source).To(Equal(core.SourceFallback))
				Expect(fallback.Election.Candidates).To(HaveLen(5))

				contract.Seed(address, onChain())

				authoritative, err := subject.Resolve(ctx, address)

				Expect(err).ToNot(HaveOccurred())
				Expect(authoritative.Source).To(Equal(core.SourceAuthoritative))
				Expect(authoritative.Election.Candidates).To(HaveLen(2))
				Expect(authoritative.Election.TotalVotes).To(Equal(7))
			})
		})

		Context("when the contract has no candidates", func() {
			It("returns the mirrored snapshot tagged as fallback", func(ctx SpecContext) {
				mirrored := election.Sample(address)
				mirrored.Name = "Mirrored"
				lo.Must0(mirror.Save(ctx, mirrored))

				resolution, err := newReconciler().Resolve(ctx, address)

				Expect(err).ToNot(HaveOccurred())
				Expect(resolution.Source).To(Equal(core.SourceFallback))
				Expect(resolution.Election.Name).To(Equal("Mirrored"))
				Expect(publisher.Events()).To(BeEmpty())
			})
		})

		Context("when the contract times out", func() {
			BeforeEach(func() {
				contract.Seed(address, onChain())
				contract.Delay = time.Second
			})

			It("returns the sample snapshot tagged as fallback", func(ctx SpecContext) {
				resolution, err := newReconciler().Resolve(ctx, address)

				Expect(err).ToNot(HaveOccurred())
				Expect(resolution.Source).To(Equal(core.SourceFallback))
				Expect(resolution.Election).To(HaveField("TotalVotes", 120))
			})

			It("is deterministic", func(ctx SpecContext) {
				subject := newReconciler()

				first := lo.Must(subject.Resolve(ctx, address))
				second := lo.Must(subject.Resolve(ctx, address))

				Expect(second).To(Equal(first))
			})
		})

		Context("when the contract fails", func() {
			It("falls back", func(ctx SpecContext) {
				contract.Err = testhelpers.ErrContractDown

				resolution, err := newReconciler().Resolve(ctx, address)

				Expect(err).ToNot(HaveOccurred())
				Expect(resolution.Source).To(Equal(core.SourceFallback))
			})
		})

		Context("when sample fallback is disabled and nothing is mirrored", func() {
			It("returns ErrElectionNotFound", func(ctx SpecContext) {
				sampleFallback = false

				_, err := newReconciler().Resolve(ctx, address)

				Expect(err).To(MatchError(core.ErrElectionNotFound))
				Expect(registry.Addresses()).To(BeEmpty())
			})
		})

		Context("when the caller cancels", func() {
			It("applies nothing", func(ctx SpecContext) {
				contract.Seed(address, onChain())
				contract.Delay = 50 * time.Millisecond

				cancelled, cancel := context.WithCancel(ctx)
				cancel()

				_, err := newReconciler().Resolve(cancelled, address)

				Expect(err).To(MatchError(context.Canceled))
				Expect(registry.Addresses()).To(BeEmpty())
				Expect(lo.Must(mirror.Addresses(ctx))).To(BeEmpty())
			})
		})

		Context("when the contract drops a candidate of an authoritative snapshot", func() {
			It("surfaces ErrInvalidState", func(ctx SpecContext) {
				contract.Seed(address, onChain())
				subject := newReconciler()
				lo.Must(subject.Resolve(ctx, address))

				shrunk := onChain()
				shrunk.Candidates = shrunk.Candidates[:1]
				contract.Seed(address, shrunk)

				_, err := subject.Resolve(ctx, address)

				Expect(err).To(MatchError(core.ErrInvalidState))
				Expect(lo.Must(registry.Load(ctx, address)).Get().Candidates).To(HaveLen(2))
			})
		})
	})

	Describe("Store", func() {
		It("resolves only on first access", func(ctx SpecContext) {
			contract.Seed(address, onChain())
			subject := newReconciler()

			first := lo.Must(subject.Store(ctx, address))
			second := lo.Must(subject.Store(ctx, address))

			Expect(second).To(BeIdenticalTo(first))
			Expect(contract.Reads.Load()).To(Equal(int64(1)))
		})
	})
})

var _ = Describe("Merge", func() {
	It("defaults bios when there is no local snapshot", func() {
		fetched := election.FromTemplate(onChain(), address)

		merged := reconciler.Merge(fetched, nil)

		Expect(merged.Source).To(Equal(core.SourceAuthoritative))
		Expect(merged.Candidates[0].Bio).To(Equal(core.DefaultCandidateBio))
	})
})
