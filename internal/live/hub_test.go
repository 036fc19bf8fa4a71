package live_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/live"
	"github.com/zhulik/evote/testhelpers"
)

const otherAddress = "0x0000000000000000000000000000000000000001"

var _ = Describe("Hub", func() {
	var hub *live.Hub
	var sample core.Election

	BeforeEach(func() {
		hub = live.New(testhelpers.NewLogger())
		sample = election.Sample("")
	})

	Describe("Publish", func() {
		It("delivers updates with tallies to subscribers of the election", func(ctx SpecContext) {
			updates, unsubscribe := hub.Subscribe(sample.Address)
			defer unsubscribe()

			Expect(hub.Publish(ctx, core.NewEvent(core.EventVoteCast, sample))).To(Succeed())

			var update live.Update
			Eventually(updates).Should(Receive(&update))
			Expect(update.Kind).To(Equal(core.EventVoteCast))
			Expect(update.Tallies.TotalVotes).To(Equal(120))
			Expect(update.Tallies.Leader.Name).To(Equal("John Doe"))
		})

		It("skips subscribers of other elections", func(ctx SpecContext) {
			updates, unsubscribe := hub.Subscribe(otherAddress)
			defer unsubscribe()

			Expect(hub.Publish(ctx, core.NewEvent(core.EventVoteCast, sample))).To(Succeed())
			Consistently(updates).ShouldNot(Receive())
		})

		It("delivers everything to wildcard subscribers", func(ctx SpecContext) {
			updates, unsubscribe := hub.Subscribe("")
			defer unsubscribe()

			Expect(hub.Publish(ctx, core.NewEvent(core.EventElectionReset, sample))).To(Succeed())
			Eventually(updates).Should(Receive())
		})

		It("never blocks on a slow subscriber", func(ctx SpecContext) {
			_, unsubscribe := hub.Subscribe(sample.Address)
			defer unsubscribe()

			for range 100 {
				Expect(hub.Publish(ctx, core.NewEvent(core.EventVoteCast, sample))).To(Succeed())
			}
		})
	})

	Describe("Subscribe", func() {
		It("unsubscribes once", func() {
			updates, unsubscribe := hub.Subscribe(sample.Address)
			Expect(hub.Len()).To(Equal(1))

			unsubscribe()
			unsubscribe()

			Expect(hub.Len()).To(BeZero())
			Eventually(updates).Should(BeClosed())
		})
	})

	Describe("Shutdown", func() {
		It("closes subscriptions that unsubscribe afterwards", func() {
			updates, unsubscribe := hub.Subscribe(sample.Address)

			Expect(hub.Shutdown()).To(Succeed())
			Eventually(updates).Should(BeClosed())

			Expect(unsubscribe).ToNot(Panic())
			Expect(hub.Len()).To(BeZero())
		})
	})

	Describe("Connection", func() {
		It("streams the snapshot and then updates over a websocket", func(ctx SpecContext) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				upgrader := websocket.Upgrader{}

				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}

				initial := live.Snapshot(sample)
				live.NewConnection(sample.Address, conn, hub, testhelpers.NewLogger()).Handle(&initial) //nolint:errcheck
			}))
			defer server.Close()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
			Expect(err).ToNot(HaveOccurred())
			defer conn.Close()

			var update live.Update
			Expect(conn.ReadJSON(&update)).To(Succeed())
			Expect(update.Kind).To(Equal(live.SnapshotKind))
			Expect(update.Election.Address).To(Equal(sample.Address))

			Eventually(hub.Len).Should(Equal(1))

			next := sample.Clone()
			next.Candidates[4].Votes++
			next.TotalVotes++
			Expect(hub.Publish(ctx, core.NewEvent(core.EventVoteCast, next))).To(Succeed())

			Expect(conn.ReadJSON(&update)).To(Succeed())
			Expect(update.Kind).To(Equal(core.EventVoteCast))
			Expect(update.Tallies.TotalVotes).To(Equal(121))
		})
	})
})
