package cli

import (
	"fmt"

	"github.com/samber/do"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/evote/internal/config"
	"github.com/zhulik/evote/internal/di"
)

// loadConfig reads the environment and applies the command line flags on top of it.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Parse(cmd.String(flagNameEnvFile))
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.IsSet(flagNameLogLevel) {
		cfg.Level = cmd.String(flagNameLogLevel)
	}

	if cmd.IsSet(flagNamePort) {
		cfg.Port = int(cmd.Int(flagNamePort))
	}

	if cmd.IsSet(flagNameDemo) {
		cfg.Demo = cmd.Bool(flagNameDemo)
	}

	return cfg, nil
}

func initDI(cmd *cli.Command) (*do.Injector, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	return di.New(cfg), nil
}
