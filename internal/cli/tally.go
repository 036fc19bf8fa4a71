package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/samber/do"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/lifecycle"
	"github.com/zhulik/evote/pkg/json"
)

var errAddressRequired = errors.New("election address is required")

var tallyCMD = &cli.Command{
	Name:      "tally",
	Aliases:   []string{"t"},
	Usage:     "Print the tallies of an election.",
	ArgsUsage: "ADDRESS",
	Category:  "Utility",
	Flags:     []cli.Flag{demoFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		address := cmd.Args().First()
		if address == "" {
			return errAddressRequired
		}

		injector, err := initDI(cmd)
		if err != nil {
			return err
		}
		defer injector.Shutdown() //nolint:errcheck

		controller, err := do.Invoke[*lifecycle.Controller](injector)
		if err != nil {
			return err //nolint:wrapcheck
		}

		snapshot, err := controller.Snapshot(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", address, err)
		}

		tallies, err := controller.Tallies(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to tally %s: %w", address, err)
		}

		output, err := json.MarshalIndent(struct {
			Address string       `json:"address"`
			Name    string       `json:"name"`
			Status  core.Status  `json:"status"`
			Source  core.Source  `json:"source"`
			Tallies core.Tallies `json:"tallies"`
		}{snapshot.Address, snapshot.Name, snapshot.Status, snapshot.Source, tallies}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tallies: %w", err)
		}

		_, err = fmt.Fprintln(os.Stdout, string(output))

		return err //nolint:wrapcheck
	},
}
