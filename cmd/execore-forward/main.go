// Command execore-forward runs the bootloader in forward mode: native
// execution against a real storage/preimage backend instead of a
// serialized oracle witness tape, streaming results to the status RPC
// and to stdout as a per-block summary table.
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
	"github.com/execore/bootloader/rpcstatus"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"
)

var (
	configFlag   = &cli.StringFlag{Name: "config", Usage: "Path to a YAML/TOML/JSON config file"}
	blockFlag    = &cli.Uint64Flag{Name: "block", Usage: "Block number to run", Value: 1}
	txCacheFlag  = &cli.IntFlag{Name: "tx-cache-size", Usage: "Forward-mode oracle storage cache entries", Value: 4096}
)

var app = &cli.App{
	Name:  "execore-forward",
	Usage: "run the bootloader core natively against live state",
}

func init() {
	app.Flags = []cli.Flag{configFlag, blockFlag, txCacheFlag}
	app.Action = run
}

func run(c *cli.Context) error {
	fs := pflag.NewFlagSet("execore-forward", pflag.ContinueOnError)
	config.Flags(fs)
	cfg, err := config.Load(c.String(configFlag.Name), fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.ApplyLogging(cfg); err != nil {
		return fmt.Errorf("applying log config: %w", err)
	}
	if err := config.WatchLogLevel(c.String(configFlag.Name)); err != nil {
		log.Warn("config hot-reload disabled", "err", err)
	}

	store := newStubForwardStore()
	txs := newStubTxSource()
	o, err := oracle.NewForwardOracle(store, txs, c.Int(txCacheFlag.Name))
	if err != nil {
		return fmt.Errorf("constructing forward oracle: %w", err)
	}

	dispatcher := execution.NewDispatcher(execution.WASMStub{}, execution.WASMStub{})
	collecting := resultkeeper.NewCollecting()
	streaming := resultkeeper.NewStreaming(256)
	metrics := resultkeeper.NewMetricsKeeper(resultkeeper.Tee{collecting, streaming}, prometheus.DefaultRegisterer)

	status := rpcstatus.NewServer(cfg.StatusListenAddr, streaming)
	go func() {
		if err := status.ListenAndServe(); err != nil {
			log.Error("status server exited", "err", err)
		}
	}()

	driver := bootloader.NewDriver(o, dispatcher, metrics, cfg.Driver())
	if err := driver.RunBlock(context.Background(), c.Uint64(blockFlag.Name)); err != nil {
		return fmt.Errorf("running block: %w", err)
	}

	printSummary(collecting)
	return nil
}

func printSummary(c *resultkeeper.Collecting) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"tx", "exit", "gas used"})
	for _, r := range c.Results {
		if r.Result.InvalidErr != nil {
			txHash := "(undecoded)"
			if r.Tx != nil {
				txHash = r.Tx.Hash().Hex()
			}
			table.Append([]string{txHash, "invalid: " + r.Result.InvalidErr.Error(), "-"})
			continue
		}
		table.Append([]string{r.Result.Output.TxHash.Hex(), r.Result.Output.Exit.String(), fmt.Sprint(r.Result.Output.GasUsed)})
	}
	table.Render()
	fmt.Printf("block %d: %d tx, %d pubdata bytes\n", c.Header.Number, c.Header.TxCount, c.Header.PubdataBytes)
}

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
