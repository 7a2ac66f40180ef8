// Package metrics registers the finalizer's counters, gauges and timers
// through go-ethereum's metrics registry: package-level vars plus
// small update functions, rather than a bespoke metrics abstraction.
package metrics

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
)

var (
	// FailedToFinalizeLowGasCounter is incremented by |batch| every time
	// a submission is rejected as out-of-funds. Named with a dotted path
	// rather than the package's usual slash-separated metric path, to
	// match the event-taxonomy naming used elsewhere for finalization
	// events (see DESIGN.md).
	FailedToFinalizeLowGasCounter = metrics.NewRegisteredCounter("finalizer.finalization_events.failed_to_finalize_low_gas", nil)

	// UnsuccessfulAttemptsCounter counts the retry-counter bumps issued
	// when reconciliation finds a simulation failure genuine. Bumps after
	// a rejected (non-out-of-funds) submission are not counted here.
	UnsuccessfulAttemptsCounter = metrics.NewRegisteredCounter("finalizer.finalization_events.unsuccessful_attempts", nil)

	// FinalizedExternallyCounter counts withdrawals reconciled as
	// finalized by a third party (the zero-hash sentinel case).
	FinalizedExternallyCounter = metrics.NewRegisteredCounter("finalizer.finalization_events.finalized_externally", nil)

	// FinalizedCounter counts withdrawals finalized by this service's
	// own submitted transactions.
	FinalizedCounter = metrics.NewRegisteredCounter("finalizer.finalization_events.finalized", nil)

	// BatchSizeGauge tracks the size of the most recent batch mined with
	// a receipt.
	BatchSizeGauge = metrics.NewRegisteredGauge("finalizer/batch/size", nil)

	// ParamsFetchedCounter counts withdrawals enriched with finalization
	// params by the params-fetcher loop.
	ParamsFetchedCounter = metrics.NewRegisteredCounter("finalizer/params_fetcher/fetched", nil)

	// FinalizerLoopIterationTimer / ParamsFetcherLoopIterationTimer
	// track wall-clock time per loop iteration.
	FinalizerLoopIterationTimer     = metrics.NewRegisteredTimer("finalizer/loop/iteration", nil)
	ParamsFetcherLoopIterationTimer = metrics.NewRegisteredTimer("finalizer/params_fetcher/loop/iteration", nil)
)

// RecordLowGasFailure bumps FailedToFinalizeLowGasCounter by batchSize
// after a submission is rejected as out-of-funds.
func RecordLowGasFailure(batchSize int) {
	FailedToFinalizeLowGasCounter.Inc(int64(batchSize))
}

// RecordFinalized bumps FinalizedCounter and BatchSizeGauge after a
// batch is mined with a receipt.
func RecordFinalized(batchSize int) {
	FinalizedCounter.Inc(int64(batchSize))
	BatchSizeGauge.Update(int64(batchSize))
}

// RecordFinalizedExternally bumps FinalizedExternallyCounter after
// reconciliation finds withdrawals finalized by a third party.
func RecordFinalizedExternally(n int) {
	FinalizedExternallyCounter.Inc(int64(n))
}

// RecordUnsuccessfulAttempts bumps UnsuccessfulAttemptsCounter after
// reconciliation finds genuinely failed withdrawals.
func RecordUnsuccessfulAttempts(n int) {
	UnsuccessfulAttemptsCounter.Inc(int64(n))
}

// RecordFinalizerIterationCost updates FinalizerLoopIterationTimer with
// the elapsed time since start.
func RecordFinalizerIterationCost(start time.Time) {
	FinalizerLoopIterationTimer.Update(time.Since(start))
}

// RecordParamsFetcherIterationCost updates
// ParamsFetcherLoopIterationTimer with the elapsed time since start.
func RecordParamsFetcherIterationCost(start time.Time) {
	ParamsFetcherLoopIterationTimer.Update(time.Since(start))
}

// Serve exposes the process's registered metrics over HTTP in
// Prometheus exposition format at addr, using go-ethereum's
// metrics/prometheus exporter. It runs until the process exits; callers
// invoke it in its own goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		prometheus.Handler(metrics.DefaultRegistry).ServeHTTP(w, r)
	})
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "err", err)
	}
}
