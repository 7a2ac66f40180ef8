package finalizer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/mantlenetworkio/withdrawal-finalizer/client"
	"github.com/mantlenetworkio/withdrawal-finalizer/metrics"
	"github.com/mantlenetworkio/withdrawal-finalizer/storage"
	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// ParamsFetcher converts raw withdrawal records into ready-to-finalize
// ones by attaching finalization params fetched from L2. It holds no
// state beyond its constructor arguments.
type ParamsFetcher struct {
	storage storage.Gateway
	l2      client.L2ParamsClient

	pageSize                uint64
	noNewWithdrawalsBackoff time.Duration
}

// NewParamsFetcher constructs a ParamsFetcher with the given page size
// and empty-queue backoff, defaulting to the package-level constants
// when zero values are passed.
func NewParamsFetcher(gw storage.Gateway, l2 client.L2ParamsClient, pageSize uint64, backoff time.Duration) *ParamsFetcher {
	if pageSize == 0 {
		pageSize = ParamsFetcherPageSize
	}
	if backoff == 0 {
		backoff = NoNewWithdrawalsBackoff
	}
	return &ParamsFetcher{storage: gw, l2: l2, pageSize: pageSize, noNewWithdrawalsBackoff: backoff}
}

// Run polls storage until ctx is cancelled or an unrecoverable error
// occurs. Any sub-request failure aborts the iteration and is returned,
// which the Supervisor treats as fatal.
func (f *ParamsFetcher) Run(ctx context.Context) error {
	for {
		start := time.Now()
		err := f.iterate(ctx)
		metrics.RecordParamsFetcherIterationCost(start)

		if err != nil {
			if err == errEmptyQueue {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(f.noNewWithdrawalsBackoff):
					continue
				}
			}
			return err
		}
	}
}

func (f *ParamsFetcher) iterate(ctx context.Context) error {
	withdrawals, err := f.storage.WithdrawalsWithNoData(ctx, f.pageSize)
	if err != nil {
		return fmt.Errorf("querying withdrawals with no data: %w", err)
	}
	if len(withdrawals) == 0 {
		return errEmptyQueue
	}

	log.Info("fetching finalization params", "count", len(withdrawals))

	fetched := make([]types.Withdrawal, len(withdrawals))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range withdrawals {
		i, w := i, w
		g.Go(func() error {
			params, err := f.l2.FetchFinalizeParams(gctx, w.Key.TxHash, w.Key.EventIndex)
			if err != nil {
				return fmt.Errorf("fetching params for %s: %w", w.Key, err)
			}
			w.Params = params
			fetched[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// A withdrawal L2 hasn't produced params for yet is logged and left
	// out of this write rather than persisted with a nil params pointer
	// or treated as fatal; it simply stays in the no-params query and is
	// retried on the next poll.
	ready := fetched[:0]
	for _, w := range fetched {
		if w.Params == nil {
			log.Warn("L2 node returned no finalization params yet", "withdrawal", w.Key)
			continue
		}
		ready = append(ready, w)
	}
	if len(ready) == 0 {
		return nil
	}

	if err := f.storage.AddWithdrawalsData(ctx, ready); err != nil {
		return fmt.Errorf("persisting fetched params: %w", err)
	}
	metrics.ParamsFetchedCounter.Inc(int64(len(ready)))
	return nil
}
