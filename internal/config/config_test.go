package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/zhulik/evote/internal/config"
	"github.com/zhulik/evote/internal/core"
)

var _ = Describe("Config", func() {
	Describe("Parse", func() {
		It("applies defaults", func() {
			cfg, err := config.Parse(filepath.Join(GinkgoT().TempDir(), "missing.env"))
			Expect(err).ToNot(HaveOccurred())

			Expect(cfg.HTTPPort()).To(Equal(8080))
			Expect(cfg.MirrorBackend()).To(Equal(core.MirrorBackendMemory))
			Expect(cfg.CollaboratorTimeout()).To(Equal(15 * time.Second))
			Expect(cfg.RefreshInterval()).To(BeZero())
			Expect(cfg.SampleFallback()).To(BeFalse())
			Expect(cfg.EventsEnabled()).To(BeFalse())
		})

		It("reads the environment", func() {
			GinkgoT().Setenv("HTTP_PORT", "9090")
			GinkgoT().Setenv("MIRROR_BACKEND", "sqlite")
			GinkgoT().Setenv("SAMPLE_FALLBACK", "true")
			GinkgoT().Setenv("REFRESH_INTERVAL", "30s")

			cfg, err := config.Parse(filepath.Join(GinkgoT().TempDir(), "missing.env"))
			Expect(err).ToNot(HaveOccurred())

			Expect(cfg.HTTPPort()).To(Equal(9090))
			Expect(cfg.MirrorBackend()).To(Equal(core.MirrorBackendSQLite))
			Expect(cfg.SampleFallback()).To(BeTrue())
			Expect(cfg.RefreshInterval()).To(Equal(30 * time.Second))
		})

		It("loads dotenv files", func() {
			path := filepath.Join(GinkgoT().TempDir(), "test.env")
			Expect(os.WriteFile(path, []byte("ETH_RPC_URL=http://node:8545\n"), 0o600)).To(Succeed())
			DeferCleanup(os.Unsetenv, "ETH_RPC_URL")

			cfg, err := config.Parse(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.EthRPCURL()).To(Equal("http://node:8545"))
		})

		It("rejects malformed values", func() {
			GinkgoT().Setenv("COLLABORATOR_TIMEOUT", "soon")

			_, err := config.Parse(filepath.Join(GinkgoT().TempDir(), "missing.env"))
			Expect(err).To(HaveOccurred())
		})
	})

	It("falls back to defaults for zero values", func() {
		cfg := config.Config{}

		Expect(cfg.HTTPPort()).To(Equal(core.DefaultHTTPPort))
		Expect(cfg.MirrorBucket()).To(Equal(core.DefaultMirrorBucket))
		Expect(cfg.CollaboratorTimeout()).To(Equal(core.DefaultCollaboratorTimeout))
	})
})
