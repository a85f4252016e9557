// Command execore-prove runs the bootloader in proving mode: every
// non-deterministic input is replayed from a serialized oracle witness
// tape rather than queried live, and the only externally observable
// output is the block's exit codes (spec §4.11's Nop keeper), matching
// the determinism contract of spec §5.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/execore/bootloader/bootloader"
	"github.com/execore/bootloader/config"
	"github.com/execore/bootloader/execution"
	"github.com/execore/bootloader/oracle"
	"github.com/execore/bootloader/resultkeeper"
	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{Name: "config", Usage: "Path to a YAML/TOML/JSON config file"}
	blockFlag  = &cli.Uint64Flag{Name: "block", Usage: "Block number to run", Value: 1}
	tapeFlag   = &cli.StringFlag{Name: "tape", Usage: "Path to a serialized oracle witness tape", Required: true}
)

var app = &cli.App{
	Name:  "execore-prove",
	Usage: "run the bootloader core against a deterministic witness tape",
}

func init() {
	app.Flags = []cli.Flag{configFlag, blockFlag, tapeFlag}
	app.Action = run
}

func run(c *cli.Context) error {
	fs := pflag.NewFlagSet("execore-prove", pflag.ContinueOnError)
	config.Flags(fs)
	cfg, err := config.Load(c.String(configFlag.Name), fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.ApplyLogging(cfg); err != nil {
		return fmt.Errorf("applying log config: %w", err)
	}

	tapePath := c.String(tapeFlag.Name)
	raw, err := os.ReadFile(tapePath)
	if err != nil {
		return fmt.Errorf("reading tape %s: %w", tapePath, err)
	}
	tape, err := oracle.DecodeTape(raw)
	if err != nil {
		return fmt.Errorf("decoding tape: %w", err)
	}
	o := oracle.NewTapeOracle(tape)

	dispatcher := execution.NewDispatcher(execution.WASMStub{}, execution.WASMStub{})
	driver := bootloader.NewDriver(o, dispatcher, resultkeeper.Nop{}, cfg.Driver())

	if err := driver.RunBlock(context.Background(), c.Uint64(blockFlag.Name)); err != nil {
		return fmt.Errorf("running block: %w", err)
	}
	log.Info("proving run complete", "block", c.Uint64(blockFlag.Name), "tape", tapePath)
	return nil
}

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
