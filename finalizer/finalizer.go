package finalizer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/withdrawal-finalizer/accumulator"
	"github.com/mantlenetworkio/withdrawal-finalizer/client"
	"github.com/mantlenetworkio/withdrawal-finalizer/config"
	"github.com/mantlenetworkio/withdrawal-finalizer/metrics"
	"github.com/mantlenetworkio/withdrawal-finalizer/storage"
	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// Finalizer is the scheduler that drains ready withdrawals from
// storage, packs them into gas/fee-budgeted batches, pre-simulates,
// submits, and reconciles. It owns all per-loop state: the unsuccessful
// buffer, configured backoffs, and contract handles.
type Finalizer struct {
	storage   storage.Gateway
	l1Tx      client.L1TxClient
	l1Read    client.L1ReadClient
	sentinels config.NativeAssetSentinels

	queryPaginationLimit    uint64
	noNewWithdrawalsBackoff time.Duration
	outOfFundsBackoff       time.Duration
	oneWithdrawalGasLimit   uint64
	batchGasLimit           uint64
	txFeeLimitWei           *big.Int

	// unsuccessful accumulates withdrawals this iteration's simulation
	// pass flagged as failing, parked for reconciliation at iteration
	// end.
	unsuccessful []types.Withdrawal
}

// FinalizerConfig bundles the tunables a Finalizer needs beyond its
// dependencies; zero values fall back to this package's constants
// (backoffs, pagination) or to package config's defaults (gas limits,
// fee limit).
type FinalizerConfig struct {
	QueryDBPaginationLimit  uint64
	NoNewWithdrawalsBackoff time.Duration
	OutOfFundsBackoff       time.Duration
	OneWithdrawalGasLimit   uint64
	BatchGasLimit           uint64
	TxFeeLimitWei           *big.Int
}

// NewFinalizer constructs a Finalizer.
func NewFinalizer(gw storage.Gateway, l1Tx client.L1TxClient, l1Read client.L1ReadClient, sentinels config.NativeAssetSentinels, cfg FinalizerConfig) *Finalizer {
	if cfg.QueryDBPaginationLimit == 0 {
		cfg.QueryDBPaginationLimit = QueryDBPaginationLimit
	}
	if cfg.NoNewWithdrawalsBackoff == 0 {
		cfg.NoNewWithdrawalsBackoff = NoNewWithdrawalsBackoff
	}
	if cfg.OutOfFundsBackoff == 0 {
		cfg.OutOfFundsBackoff = OutOfFundsBackoff
	}
	if cfg.OneWithdrawalGasLimit == 0 {
		cfg.OneWithdrawalGasLimit = config.DefaultOneWithdrawalGasLimit
	}
	if cfg.BatchGasLimit == 0 {
		cfg.BatchGasLimit = config.DefaultBatchFinalizationGas
	}
	if cfg.TxFeeLimitWei == nil {
		cfg.TxFeeLimitWei = config.DefaultTxFeeLimitWei
	}
	return &Finalizer{
		storage:                 gw,
		l1Tx:                    l1Tx,
		l1Read:                  l1Read,
		sentinels:               sentinels,
		queryPaginationLimit:    cfg.QueryDBPaginationLimit,
		noNewWithdrawalsBackoff: cfg.NoNewWithdrawalsBackoff,
		outOfFundsBackoff:       cfg.OutOfFundsBackoff,
		oneWithdrawalGasLimit:   cfg.OneWithdrawalGasLimit,
		batchGasLimit:           cfg.BatchGasLimit,
		txFeeLimitWei:           cfg.TxFeeLimitWei,
	}
}

// Run drives the loop until ctx is cancelled or an unrecoverable error
// occurs.
func (f *Finalizer) Run(ctx context.Context) error {
	for {
		start := time.Now()
		err := f.iterate(ctx)
		metrics.RecordFinalizerIterationCost(start)

		if err == errEmptyQueue {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.noNewWithdrawalsBackoff):
				continue
			}
		}
		if err != nil {
			return err
		}
	}
}

func (f *Finalizer) iterate(ctx context.Context) error {
	withdrawals, err := f.storage.WithdrawalsToFinalize(ctx, f.queryPaginationLimit)
	if err != nil {
		return fmt.Errorf("querying withdrawals to finalize: %w", err)
	}
	if len(withdrawals) == 0 {
		return errEmptyQueue
	}

	gasPrice, err := f.l1Tx.GasPrice(ctx)
	if err != nil {
		return fmt.Errorf("fetching L1 gas price: %w", err)
	}
	acc := accumulator.New(gasPrice, f.txFeeLimitWei, f.batchGasLimit, f.oneWithdrawalGasLimit)

	for i, w := range withdrawals {
		acc.Add(w)
		last := i == len(withdrawals)-1
		if !acc.ReadyToFinalize() && !last {
			continue
		}

		failed, err := f.simulateAndPrune(ctx, acc)
		if err != nil {
			return err
		}
		f.unsuccessful = append(f.unsuccessful, failed...)
		if len(failed) > 0 {
			// Keep admitting more withdrawals into the same
			// accumulator rather than submitting a partial batch.
			continue
		}

		batch := acc.Take()
		if err := f.finalizeBatch(ctx, batch); err != nil {
			return err
		}

		gasPrice, err = f.l1Tx.GasPrice(ctx)
		if err != nil {
			return fmt.Errorf("refreshing L1 gas price: %w", err)
		}
		acc = accumulator.New(gasPrice, f.txFeeLimitWei, f.batchGasLimit, f.oneWithdrawalGasLimit)
	}

	return f.drainUnsuccessful(ctx)
}

// simulateAndPrune pre-simulates the accumulator's current batch and
// removes entries predicted to fail, returning them for the caller to
// park in the unsuccessful buffer.
func (f *Finalizer) simulateAndPrune(ctx context.Context, acc *accumulator.Accumulator) ([]types.Withdrawal, error) {
	current := acc.Withdrawals()
	log.Debug("simulating finalization batch", "withdrawals", current)

	requests := make([]types.FinalizeRequest, len(current))
	for i, w := range current {
		requests[i] = w.IntoFinalizeRequest(new(big.Int).SetUint64(f.oneWithdrawalGasLimit), f.sentinels.IsNativeAsset)
	}

	predictions, err := f.l1Tx.SimulateFinalize(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("simulating finalize batch: %w", err)
	}

	accPredictions := make([]accumulator.Prediction, len(predictions))
	for i, p := range predictions {
		accPredictions[i] = accumulator.Prediction{Success: p.Success, Gas: p.Gas}
	}
	return acc.RemoveUnsuccessful(accPredictions), nil
}

// finalizeBatch submits a pre-simulated batch and records the outcome.
func (f *Finalizer) finalizeBatch(ctx context.Context, batch []types.Withdrawal) error {
	requests := make([]types.FinalizeRequest, len(batch))
	for i, w := range batch {
		requests[i] = w.IntoFinalizeRequest(new(big.Int).SetUint64(f.oneWithdrawalGasLimit), f.sentinels.IsNativeAsset)
	}
	log.Debug("submitting finalization batch", "withdrawals", batch)

	pending, err := f.l1Tx.SubmitFinalize(ctx, requests)
	if err != nil {
		if client.IsOutOfFunds(err) {
			metrics.RecordLowGasFailure(len(batch))
			log.Warn("finalization batch rejected for insufficient funds", "size", len(batch))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.outOfFundsBackoff):
			}
			return nil
		}

		log.Error("finalization batch submission failed", "size", len(batch), "err", err)
		keys := keysOf(batch)
		if err := f.storage.IncUnsuccessfulFinalizationAttempts(ctx, keys); err != nil {
			return fmt.Errorf("recording unsuccessful attempts after submission error: %w", err)
		}
		return nil
	}

	txHash, err := pending.Wait(ctx)
	if err != nil {
		log.Error("awaiting finalization transaction", "tx", pending.TxHash(), "err", err)
		return nil
	}
	if txHash == nil {
		log.Warn("finalization transaction mined with no receipt", "tx", pending.TxHash())
		return nil
	}

	metrics.RecordFinalized(len(batch))
	keys := keysOf(batch)
	if err := f.storage.FinalizationDataSetFinalizedInTx(ctx, keys, *txHash); err != nil {
		return fmt.Errorf("recording finalized batch: %w", err)
	}
	return nil
}

// drainUnsuccessful runs the reconciliation sub-phase over the
// accumulated unsuccessful buffer and clears it.
func (f *Finalizer) drainUnsuccessful(ctx context.Context) error {
	if len(f.unsuccessful) == 0 {
		return nil
	}
	batch := f.unsuccessful
	f.unsuccessful = nil

	finalizedExternally, genuinelyFailed, err := reconcile(ctx, f.l1Read, f.sentinels, batch)
	if err != nil {
		return fmt.Errorf("reconciling unsuccessful withdrawals: %w", err)
	}

	if len(finalizedExternally) > 0 {
		metrics.RecordFinalizedExternally(len(finalizedExternally))
		if err := f.storage.FinalizationDataSetFinalizedInTx(ctx, keysOf(finalizedExternally), types.ZeroTxHash); err != nil {
			return fmt.Errorf("recording externally finalized withdrawals: %w", err)
		}
	}
	if len(genuinelyFailed) > 0 {
		metrics.RecordUnsuccessfulAttempts(len(genuinelyFailed))
		if err := f.storage.IncUnsuccessfulFinalizationAttempts(ctx, keysOf(genuinelyFailed)); err != nil {
			return fmt.Errorf("recording genuinely failed withdrawals: %w", err)
		}
	}
	return nil
}

func keysOf(withdrawals []types.Withdrawal) []types.Key {
	keys := make([]types.Key, len(withdrawals))
	for i, w := range withdrawals {
		keys[i] = w.Key
	}
	return keys
}
