package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/evote/internal/pubsub/nats"
	"github.com/zhulik/evote/pkg/json"
)

var eventsCMD = &cli.Command{
	Name:      "events",
	Aliases:   []string{"ev"},
	Usage:     "Follow election events published to NATS, one JSON document per line.",
	ArgsUsage: "[ADDRESS]",
	Category:  "Utility",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		injector, err := initDI(cmd)
		if err != nil {
			return err
		}
		defer injector.Shutdown() //nolint:errcheck

		subscriber, err := do.Invoke[*nats.Subscriber](injector)
		if err != nil {
			return err //nolint:wrapcheck
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sub, err := subscriber.Subscribe(ctx, cmd.Args().First())
		if err != nil {
			return err //nolint:wrapcheck
		}
		defer sub.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-sub.C():
				if !ok {
					return nil
				}

				line, err := json.Marshal(event)
				if err != nil {
					return fmt.Errorf("failed to marshal event: %w", err)
				}

				fmt.Fprintln(os.Stdout, string(line)) //nolint:errcheck
			}
		}
	},
}
