package di_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/do"
	"github.com/zhulik/evote/internal/api"
	"github.com/zhulik/evote/internal/config"
	"github.com/zhulik/evote/internal/contract"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/di"
	"github.com/zhulik/evote/internal/lifecycle"
	"github.com/zhulik/evote/internal/refresher"
)

var _ = Describe("New", func() {
	var injector *do.Injector

	BeforeEach(func() {
		injector = di.New(config.Config{Level: "warn", Mirror: core.MirrorBackendMemory, Demo: true})
	})

	AfterEach(func() {
		Expect(injector.Shutdown()).To(Succeed())
	})

	It("wires the API server", func() {
		server, err := do.Invoke[*api.Server](injector)
		Expect(err).ToNot(HaveOccurred())
		Expect(server).ToNot(BeNil())
	})

	It("serves the sample election without collaborators", func(ctx context.Context) {
		controller := do.MustInvoke[*lifecycle.Controller](injector)

		tallies, err := controller.Tallies(ctx, core.SampleAddress)
		Expect(err).ToNot(HaveOccurred())
		Expect(tallies.Source).To(Equal(core.SourceFallback))
	})

	It("disables the contract when no node is configured", func() {
		client := do.MustInvoke[core.ContractClient](injector)
		Expect(client).To(BeAssignableToTypeOf(contract.Disabled{}))
	})

	It("builds a refresher that stays idle", func(ctx context.Context) {
		periodic := do.MustInvoke[*refresher.Refresher](injector)
		Expect(periodic.Run(ctx)).To(Succeed())
	})

	It("reports every service healthy", func() {
		do.MustInvoke[*api.Server](injector)

		for name, err := range injector.HealthCheck() {
			Expect(err).ToNot(HaveOccurred(), name)
		}
	})
})
