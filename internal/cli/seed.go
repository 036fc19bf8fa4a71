package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/evote/internal/di"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/fixture"
)

var errFixtureRequired = errors.New("fixture file is required")

var seedCMD = &cli.Command{
	Name:      "seed",
	Usage:     "Load the elections of a YAML fixture into the mirror.",
	ArgsUsage: "FILE",
	Category:  "Utility",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return errFixtureRequired
		}

		f, err := fixture.ParseFile(path)
		if err != nil {
			return err //nolint:wrapcheck
		}

		injector, err := initDI(cmd)
		if err != nil {
			return err
		}
		defer injector.Shutdown() //nolint:errcheck

		logger := di.Logger(injector).WithField("component", "cli.seed")

		registry, err := do.Invoke[*election.Registry](injector)
		if err != nil {
			return err //nolint:wrapcheck
		}

		seeded, err := f.Seed(ctx, registry)
		for _, e := range seeded {
			logger.WithFields(logrus.Fields{
				"address":    e.Address,
				"candidates": len(e.Candidates),
				"voters":     len(e.Voters),
			}).Info("Election seeded")
		}

		if err != nil {
			return fmt.Errorf("seeded %d of %d elections: %w", len(seeded), len(f.Elections), err)
		}

		return nil
	},
}
