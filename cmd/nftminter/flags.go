package main

import (
	"github.com/urfave/cli"
)

// Global flags.
var (
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "Path to YAML or TOML configuration file, defaults are used if not set",
	}
	DebugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

// Command flags.
var (
	SenderFlag = cli.StringFlag{
		Name:  "sender",
		Usage: "Address the messages are sent from, used as collection owner if config has none",
	}
	CollectionFlag = cli.StringFlag{
		Name:  "collection",
		Usage: "Collection address, looked up in the registry or derived from config if not set",
	}
	QueryIDFlag = cli.Uint64Flag{
		Name:  "query-id",
		Usage: "Query ID of the message",
	}
	ValueFlag = cli.StringFlag{
		Name:  "value",
		Usage: "Coins attached to the message, configured value is used if not set",
	}
	IndexFlag = cli.Uint64Flag{
		Name:  "index",
		Usage: "Item index",
	}
	NoRecordFlag = cli.BoolFlag{
		Name:  "no-record",
		Usage: "Do not record prepared deployment in the registry",
	}
	BatchesFlag = cli.IntFlag{
		Name:  "batches",
		Usage: "Number of batch mint messages sent by the scenario",
		Value: 1,
	}
)
