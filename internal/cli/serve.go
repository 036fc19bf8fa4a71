package cli

import (
	"context"
	"syscall"

	"github.com/samber/do"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/evote/internal/api"
	"github.com/zhulik/evote/internal/di"
	"github.com/zhulik/evote/internal/refresher"
)

var serveCMD = &cli.Command{
	Name:     "serve",
	Aliases:  []string{"s"},
	Usage:    "Run the election API.",
	Category: "Service",
	Flags:    []cli.Flag{portFlag, demoFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		injector, err := initDI(cmd)
		if err != nil {
			return err
		}

		logger := di.Logger(injector).WithField("component", "cli.serve")

		logger.Info("Starting...")

		server, err := do.Invoke[*api.Server](injector)
		if err != nil {
			return err //nolint:wrapcheck
		}

		periodic, err := do.Invoke[*refresher.Refresher](injector)
		if err != nil {
			return err //nolint:wrapcheck
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			if err := server.Run(ctx); err != nil {
				logger.WithError(err).Fatal("Failed to run server")
			}
		}()

		go func() {
			if err := periodic.Run(ctx); err != nil {
				logger.WithError(err).Error("Periodic refresh stopped")
			}
		}()

		logger.Info("Running...")

		return injector.ShutdownOnSignals(syscall.SIGINT, syscall.SIGTERM) //nolint:wrapcheck
	},
}
