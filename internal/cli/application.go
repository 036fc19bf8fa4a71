package cli

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "evote",
	Usage:   "Election ledger and dashboard API.",
	Version: VERSION,
	Flags:   commonFlags,
	Commands: []*cli.Command{
		serveCMD,
		tallyCMD,
		seedCMD,
		eventsCMD,
		healthcheckCMD,
	},
}

func Run() {
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
