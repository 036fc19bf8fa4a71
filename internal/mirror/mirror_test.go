package mirror_test

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	libNats "github.com/nats-io/nats.go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/mirror/memory"
	"github.com/zhulik/evote/internal/mirror/nats"
	"github.com/zhulik/evote/internal/mirror/sqlite"
	pubsubNats "github.com/zhulik/evote/internal/pubsub/nats"
	"github.com/zhulik/evote/testhelpers"
)

const otherAddress = "0x0000000000000000000000000000000000000002"

type factory func(ctx context.Context) core.Mirror

func openMemory(context.Context) core.Mirror {
	return memory.New()
}

func openSQLite(context.Context) core.Mirror {
	m, err := sqlite.Open(filepath.Join(GinkgoT().TempDir(), "evote.db"), testhelpers.NewLogger())
	Expect(err).ToNot(HaveOccurred())
	DeferCleanup(m.Shutdown)

	return m
}

func openNATS(ctx context.Context) core.Mirror {
	client, err := pubsubNats.Connect(libNats.DefaultURL, testhelpers.NewLogger())
	if err != nil {
		Skip("NATS is not available: " + err.Error())
	}

	DeferCleanup(client.Shutdown)

	bucket := "test-" + uuid.NewString()
	DeferCleanup(func(ctx SpecContext) { client.JetStream.DeleteKeyValue(ctx, bucket) }) //nolint:errcheck

	m, err := nats.Open(ctx, client, bucket, testhelpers.NewLogger())
	Expect(err).ToNot(HaveOccurred())

	return m
}

func stamped(e core.Election) core.Election {
	e.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	e.Revision = 3

	return e
}

func behavesLikeMirror(open factory) {
	var m core.Mirror
	var sample core.Election

	BeforeEach(func(ctx SpecContext) {
		m = open(ctx)
		sample = stamped(election.Sample(""))
	})

	Describe("Load", func() {
		It("returns ErrElectionNotFound for unknown elections", func(ctx SpecContext) {
			_, err := m.Load(ctx, otherAddress)
			Expect(err).To(MatchError(core.ErrElectionNotFound))
		})

		It("returns what was saved, roster and order included", func(ctx SpecContext) {
			Expect(m.Save(ctx, sample)).To(Succeed())

			loaded, err := m.Load(ctx, sample.Address)
			Expect(err).ToNot(HaveOccurred())

			Expect(loaded.Name).To(Equal(sample.Name))
			Expect(loaded.Status).To(Equal(sample.Status))
			Expect(loaded.Source).To(Equal(sample.Source))
			Expect(loaded.TotalVotes).To(Equal(sample.TotalVotes))
			Expect(loaded.VoterCount).To(Equal(sample.VoterCount))
			Expect(loaded.Candidates).To(Equal(sample.Candidates))
			Expect(loaded.VoteRecords()).To(Equal(sample.VoteRecords()))
			Expect(loaded.UpdatedAt).To(BeTemporally("==", sample.UpdatedAt))
			Expect(loaded.Revision).To(Equal(sample.Revision))
			Expect(election.Validate(loaded)).To(Succeed())
		})
	})

	Describe("Save", func() {
		It("replaces the previous snapshot", func(ctx SpecContext) {
			Expect(m.Save(ctx, sample)).To(Succeed())

			next := sample.Clone()
			next.Candidates[1].Votes++
			next.TotalVotes++
			next.Voters[2].HasVoted = true
			next.Voters = append(next.Voters, core.Voter{Email: "walk-in@company.com", HasVoted: true})
			next.UpdatedAt = sample.UpdatedAt.Add(time.Second)
			next.Revision = sample.Revision + 1

			Expect(m.Save(ctx, next)).To(Succeed())

			loaded, err := m.Load(ctx, sample.Address)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.TotalVotes).To(Equal(121))
			Expect(loaded.Candidates[1].Votes).To(Equal(39))
			Expect(loaded.Voters).To(HaveLen(4))
			Expect(loaded.HasVoted(core.NewVoteRecordKey(sample.Address, "walk-in@company.com"))).To(BeTrue())
		})

		It("refuses revisions that are not newer than the stored one", func(ctx SpecContext) {
			Expect(m.Save(ctx, sample)).To(Succeed())

			same := sample.Clone()
			same.Name = "Same revision"
			same.UpdatedAt = sample.UpdatedAt.Add(time.Minute)

			Expect(m.Save(ctx, same)).To(MatchError(core.ErrStaleSnapshot))

			older := sample.Clone()
			older.Revision = sample.Revision - 1

			Expect(m.Save(ctx, older)).To(MatchError(core.ErrStaleSnapshot))

			loaded, err := m.Load(ctx, sample.Address)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.Name).To(Equal(sample.Name))
		})

		It("keeps elections apart", func(ctx SpecContext) {
			other := stamped(election.Sample(otherAddress))
			other.Name = "Other"

			Expect(m.Save(ctx, sample)).To(Succeed())
			Expect(m.Save(ctx, other)).To(Succeed())

			loaded, err := m.Load(ctx, sample.Address)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.Name).To(Equal(sample.Name))
		})
	})

	Describe("Delete", func() {
		It("forgets the election", func(ctx SpecContext) {
			Expect(m.Save(ctx, sample)).To(Succeed())
			Expect(m.Delete(ctx, sample.Address)).To(Succeed())

			_, err := m.Load(ctx, sample.Address)
			Expect(err).To(MatchError(core.ErrElectionNotFound))
		})
	})

	Describe("Addresses", func() {
		It("lists mirrored elections in order", func(ctx SpecContext) {
			Expect(m.Addresses(ctx)).To(BeEmpty())

			Expect(m.Save(ctx, sample)).To(Succeed())
			Expect(m.Save(ctx, stamped(election.Sample(otherAddress)))).To(Succeed())

			Expect(m.Addresses(ctx)).To(Equal([]string{otherAddress, sample.Address}))
		})
	})

	It("is healthy", func() {
		Expect(m.HealthCheck()).To(Succeed())
	})
}

var _ = Describe("Mirror", func() {
	Describe("memory", func() { behavesLikeMirror(openMemory) })
	Describe("sqlite", func() { behavesLikeMirror(openSQLite) })
	Describe("nats", Serial, func() { behavesLikeMirror(openNATS) })
})
