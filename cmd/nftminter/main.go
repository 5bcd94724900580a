// nftminter prepares messages of the NFT collection program and runs the
// reference minting scenario against the in-memory ledger.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "nftminter"
	app.Usage = "NFT collection deployment and minting tool"
	app.Version = Version
	app.Flags = []cli.Flag{ConfigFlag, DebugFlag}
	app.Commands = []cli.Command{
		addressCommand,
		deployCommand,
		mintCommand,
		batchMintCommand,
		royaltyCommand,
		predictCommand,
		decodeContentCommand,
		registryCommand,
		emulateCommand,
	}

	return app
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}

	if c.GlobalBool(DebugFlag.Name) {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}
