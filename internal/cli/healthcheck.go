package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
)

const healthcheckTimeout = 5 * time.Second

var errUnhealthy = errors.New("service is unhealthy")

var healthcheckCMD = &cli.Command{
	Name:     "healthcheck",
	Aliases:  []string{"hc"},
	Usage:    "Run healthcheck.",
	Category: "Utility",
	Flags:    []cli.Flag{portFlag, urlFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		url := cmd.String(flagNameURL)
		if url == "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			url = fmt.Sprintf("http://127.0.0.1:%d/health", cfg.HTTPPort())
		}

		ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
		defer cancel()

		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		response, err := http.DefaultClient.Do(request)
		if err != nil {
			return fmt.Errorf("%w: %w", errUnhealthy, err)
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", errUnhealthy, response.StatusCode)
		}

		return nil
	},
}
