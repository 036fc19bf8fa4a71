package cli

import (
	"github.com/urfave/cli/v3"
	"github.com/zhulik/evote/internal/core"
)

const (
	flagNameEnvFile  = "env-file"
	flagNameLogLevel = "log-level"
	flagNamePort     = "port"
	flagNameDemo     = "demo"
	flagNameURL      = "url"
)

var (
	envFileFlag = &cli.StringFlag{
		Name:    flagNameEnvFile,
		Aliases: []string{"e"},
		Usage:   "Load environment from `FILE` when it exists.",
		Value:   ".env",
	}

	logLevelFlag = &cli.StringFlag{
		Name:    flagNameLogLevel,
		Aliases: []string{"l"},
		Usage:   "Set log level to `LEVEL`.",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}

	portFlag = &cli.IntFlag{
		Name:    flagNamePort,
		Aliases: []string{"p"},
		Usage:   "Set server port to `PORT`.",
		Value:   core.DefaultHTTPPort,
		Sources: cli.EnvVars("HTTP_PORT"),
	}

	demoFlag = &cli.BoolFlag{
		Name:    flagNameDemo,
		Aliases: []string{"d"},
		Usage:   "Serve the sample election when neither the contract nor the mirror knows an address.",
		Sources: cli.EnvVars("SAMPLE_FALLBACK"),
	}

	urlFlag = &cli.StringFlag{
		Name:    flagNameURL,
		Aliases: []string{"u"},
		Usage:   "Probe the API at `URL`.",
	}

	commonFlags = []cli.Flag{
		envFileFlag,
		logLevelFlag,
	}
)
