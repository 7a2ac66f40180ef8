// Command withdrawal-finalizer runs the params-fetcher and finalizer
// loops against a configured L1/L2/Postgres deployment, built on the
// usual cli.App flag/Action shape.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/mantlenetworkio/withdrawal-finalizer/client"
	"github.com/mantlenetworkio/withdrawal-finalizer/config"
	"github.com/mantlenetworkio/withdrawal-finalizer/finalizer"
	"github.com/mantlenetworkio/withdrawal-finalizer/metrics"
	"github.com/mantlenetworkio/withdrawal-finalizer/storage"
)

var ConfigFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "Path to the finalizer's TOML configuration file",
	Value:    "finalizer.toml",
	Category: "FINALIZER",
}

var runCommand = &cli.Command{
	Action: run,
	Name:   "run",
	Usage:  "Run the withdrawal finalizer",
	Flags:  []cli.Flag{ConfigFlag},
	Description: `
Starts the params-fetcher and finalizer loops. The process exits
non-zero as soon as either loop returns an error; external process
supervision is expected to restart it.
`,
}

func main() {
	app := &cli.App{
		Name:     "withdrawal-finalizer",
		Usage:    "L2-to-L1 withdrawal finalization service",
		Commands: []*cli.Command{runCommand},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String(ConfigFlag.Name))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("starting withdrawal finalizer", "config", cfg.String())

	ctx := context.Background()

	gw, err := storage.NewPostgresGateway(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to storage: %w", err)
	}
	defer gw.Close()

	l2, err := client.NewL2ParamsClient(ctx, cfg.L2RPC)
	if err != nil {
		return fmt.Errorf("connecting to L2: %w", err)
	}

	contracts := cfg.ResolveContracts()

	privateKey, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("parsing signer private key: %w", err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(privateKey, cfg.ChainID)
	if err != nil {
		return fmt.Errorf("building L1 transactor: %w", err)
	}

	l1Tx, err := client.NewL1TxClient(ctx, cfg.L1RPC, contracts.WithdrawalFinalizer, signer)
	if err != nil {
		return fmt.Errorf("connecting to L1 (tx client): %w", err)
	}
	l1Read, err := client.NewL1ReadClient(ctx, cfg.L1ReadRPC, contracts.Rollup, contracts.L1Bridge)
	if err != nil {
		return fmt.Errorf("connecting to L1 (read client): %w", err)
	}

	paramsFetcher := finalizer.NewParamsFetcher(gw, l2, cfg.ParamsFetcherPageSize, cfg.NoNewWithdrawalsBackoff.Duration)
	fin := finalizer.NewFinalizer(gw, l1Tx, l1Read, cfg.NativeAssetSentinels, finalizer.FinalizerConfig{
		QueryDBPaginationLimit:  cfg.QueryDBPaginationLimit,
		NoNewWithdrawalsBackoff: cfg.NoNewWithdrawalsBackoff.Duration,
		OutOfFundsBackoff:       cfg.OutOfFundsBackoff.Duration,
		OneWithdrawalGasLimit:   cfg.OneWithdrawalGasLimit,
		BatchGasLimit:           cfg.BatchFinalizationGasLimit,
		TxFeeLimitWei:           cfg.TxFeeLimitWei,
	})

	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr)
	}

	supervisor := finalizer.NewSupervisor(paramsFetcher, fin)
	return supervisor.Run(ctx)
}
