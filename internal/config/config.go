package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/zhulik/evote/internal/core"
)

type Config struct {
	Port  int    `env:"HTTP_PORT" envDefault:"8080"`
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	NATSURL string `env:"NATS_URL"`

	Mirror     string `env:"MIRROR_BACKEND" envDefault:"memory"`
	Bucket     string `env:"MIRROR_BUCKET"  envDefault:"elections"`
	SQLiteFile string `env:"SQLITE_PATH"    envDefault:"evote.db"`

	RPCURL         string `env:"ETH_RPC_URL"`
	FactoryAddress string `env:"ETH_FACTORY_ADDRESS"`
	PrivateKey     string `env:"ETH_PRIVATE_KEY"`

	BackendBaseURL string `env:"BACKEND_URL"`

	Timeout time.Duration `env:"COLLABORATOR_TIMEOUT" envDefault:"15s"`
	Refresh time.Duration `env:"REFRESH_INTERVAL"     envDefault:"0s"`

	Demo        bool   `env:"SAMPLE_FALLBACK" envDefault:"false"`
	FixturePath string `env:"SAMPLE_FILE"`

	Events bool `env:"EVENTS_ENABLED" envDefault:"false"`
}

// Parse reads .env files when present, then the environment.
func Parse(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}

	for _, file := range dotenvFiles {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func (c Config) HTTPPort() int {
	if c.Port == 0 {
		return core.DefaultHTTPPort
	}

	return c.Port
}

func (c Config) LogLevel() string {
	return c.Level
}

func (c Config) NatsURL() string {
	if c.NATSURL == "" {
		return nats.DefaultURL
	}

	return c.NATSURL
}

func (c Config) MirrorBackend() string {
	if c.Mirror == "" {
		return core.MirrorBackendMemory
	}

	return c.Mirror
}

func (c Config) MirrorBucket() string {
	if c.Bucket == "" {
		return core.DefaultMirrorBucket
	}

	return c.Bucket
}

func (c Config) SQLitePath() string {
	return c.SQLiteFile
}

func (c Config) EthRPCURL() string {
	return c.RPCURL
}

func (c Config) EthFactoryAddress() string {
	return c.FactoryAddress
}

func (c Config) EthPrivateKey() string {
	return c.PrivateKey
}

func (c Config) BackendURL() string {
	return c.BackendBaseURL
}

func (c Config) CollaboratorTimeout() time.Duration {
	if c.Timeout <= 0 {
		return core.DefaultCollaboratorTimeout
	}

	return c.Timeout
}

func (c Config) RefreshInterval() time.Duration {
	return c.Refresh
}

func (c Config) SampleFallback() bool {
	return c.Demo
}

func (c Config) SampleFile() string {
	return c.FixturePath
}

func (c Config) EventsEnabled() bool {
	return c.Events
}
