// tr181-conform compares, validates, and live-probes TR-181 style
// device data models.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tr181-conform",
		Usage: "conformance testing for TR-181 device data models",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "device-kind",
				EnvVars: []string{"DEVICE_KIND"},
				Value:   "wsrpc",
				Usage:   "capability adapter (wsrpc, mock)",
			},
			&cli.StringFlag{
				Name:    "endpoint",
				EnvVars: []string{"DEVICE_ENDPOINT"},
				Usage:   "device endpoint, e.g. ws://192.168.1.1:7547/rpc",
			},
			&cli.StringFlag{
				Name:    "username",
				EnvVars: []string{"DEVICE_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "password",
				EnvVars: []string{"DEVICE_PASSWORD"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				EnvVars: []string{"DEVICE_TIMEOUT"},
				Usage:   "per-operation device timeout",
			},
			&cli.StringFlag{
				Name:    "store",
				EnvVars: []string{"STORE_PATH"},
				Usage:   "SQLite database holding saved subsets",
			},
			&cli.StringFlag{
				Name:    "report",
				EnvVars: []string{"REPORT_PATH"},
				Usage:   "write a CBOR report stream to this file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "compare",
				Usage:     "compare two data model files",
				ArgsUsage: "<first.yaml> <second.yaml>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    compareAction,
			},
			{
				Name:      "validate",
				Usage:     "validate the nodes of a data model file",
				ArgsUsage: "<subset.yaml>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    validateAction,
			},
			{
				Name:      "probe",
				Usage:     "live-test the events and functions a file declares",
				ArgsUsage: "<subset.yaml>",
				Action:    probeAction,
			},
			{
				Name:      "run",
				Usage:     "full conformance run of a device against a file",
				ArgsUsage: "<subset.yaml>",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    runAction,
			},
			{
				Name:  "subset",
				Usage: "manage saved data model subsets",
				Subcommands: []*cli.Command{
					{
						Name:      "save",
						Usage:     "save a subset file into the store",
						ArgsUsage: "<subset.yaml>",
						Action:    subsetSaveAction,
					},
					{
						Name:      "show",
						Usage:     "print a saved subset as YAML",
						ArgsUsage: "<name>",
						Action:    subsetShowAction,
					},
					{
						Name:   "list",
						Usage:  "list saved subsets",
						Action: subsetListAction,
					},
					{
						Name:   "baselines",
						Usage:  "list the embedded baseline subsets",
						Action: subsetBaselinesAction,
					},
					{
						Name:      "delete",
						Usage:     "delete a saved subset",
						ArgsUsage: "<name>",
						Action:    subsetDeleteAction,
					},
				},
			},
			{
				Name:   "console",
				Usage:  "interactive device console",
				Action: consoleAction,
			},
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "emit the full result as JSON",
	}
}
