package refresher_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/reconciler"
	"github.com/zhulik/evote/internal/refresher"
	"github.com/zhulik/evote/pkg/elect"
	"github.com/zhulik/evote/testhelpers"
)

const (
	address  = "0xfeed"
	interval = 20 * time.Millisecond
)

// occupiedKV is a lease bucket where someone else always holds the lease.
type occupiedKV struct{}

func (occupiedKV) TTL() time.Duration { return time.Second }

func (occupiedKV) Create(context.Context, string, []byte) (uint64, error) {
	return 0, elect.ErrKeyExists
}

func (occupiedKV) Update(context.Context, string, []byte, uint64) (uint64, error) {
	return 0, elect.ErrKeyExists
}

var _ = Describe("Refresher", func() {
	var mirror *testhelpers.FlakyMirror
	var registry *election.Registry
	var contract *testhelpers.FakeContract
	var resolver *reconciler.Reconciler

	BeforeEach(func(ctx SpecContext) {
		mirror = testhelpers.NewFlakyMirror()
		registry = election.New(mirror, nil, testhelpers.NewLogger())
		contract = testhelpers.NewFakeContract()
		resolver = reconciler.New(registry, contract, &testhelpers.RecordingPublisher{}, testhelpers.NewLogger(), time.Second, false)

		contract.Seed(address, core.Election{
			Name:   "Board",
			Status: core.StatusActive,
			Candidates: []core.Candidate{
				{Email: "alice@company.com", Name: "Alice", Votes: 1},
			},
		})

		lo.Must(resolver.Resolve(ctx, address))
	})

	votes := func() int {
		store, _ := registry.Lookup(address)

		return store.Get().TotalVotes
	}

	Describe("RefreshAll", func() {
		It("picks up votes cast on the contract", func(ctx SpecContext) {
			contract.SetVotes(address, 0, 5)

			subject := refresher.New(registry, mirror, resolver, nil, interval, testhelpers.NewLogger())

			Expect(subject.RefreshAll(ctx)).To(Equal(1))
			Expect(votes()).To(Equal(5))
		})

		It("includes elections only known to the mirror", func(ctx SpecContext) {
			Expect(mirror.Save(ctx, election.Sample(""))).To(Succeed())

			subject := refresher.New(registry, mirror, resolver, nil, interval, testhelpers.NewLogger())

			Expect(subject.RefreshAll(ctx)).To(Equal(2))
			_, ok := registry.Lookup(core.SampleAddress)
			Expect(ok).To(BeTrue())
		})

		It("skips elections that fail to resolve", func(ctx SpecContext) {
			contract.Seed(address, core.Election{
				Name:   "Board",
				Status: core.StatusActive,
				Candidates: []core.Candidate{
					{Email: "mallory@company.com", Name: "Mallory", Votes: 7},
				},
			})

			subject := refresher.New(registry, mirror, resolver, nil, interval, testhelpers.NewLogger())

			Expect(subject.RefreshAll(ctx)).To(BeZero())
			Expect(votes()).To(Equal(1))
		})
	})

	Describe("Run", func() {
		It("returns immediately when disabled", func(ctx SpecContext) {
			subject := refresher.New(registry, mirror, resolver, nil, 0, testhelpers.NewLogger())

			Expect(subject.Run(ctx)).To(Succeed())
		})

		It("refreshes periodically until cancelled", func(ctx SpecContext) {
			runCtx, cancel := context.WithCancel(ctx)
			subject := refresher.New(registry, mirror, resolver, nil, interval, testhelpers.NewLogger())

			done := make(chan error, 1)
			go func() { done <- subject.Run(runCtx) }()

			contract.SetVotes(address, 0, 9)
			Eventually(votes).Should(Equal(9))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("does nothing while another instance leads", func(ctx SpecContext) {
			runCtx, cancel := context.WithCancel(ctx)
			subject := refresher.New(registry, mirror, resolver, occupiedKV{}, interval, testhelpers.NewLogger())

			done := make(chan error, 1)
			go func() { done <- subject.Run(runCtx) }()

			contract.SetVotes(address, 0, 9)
			Consistently(votes, 10*interval).Should(Equal(1))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})
})
