package finalizer

import "time"

// Numeric constants for loop timing and batch sizing. config.Config
// defaults to these; operators may override per-deployment.
const (
	// NoNewWithdrawalsBackoff is how long both loops sleep after
	// observing an empty queue before polling storage again.
	NoNewWithdrawalsBackoff = 5 * time.Second

	// OutOfFundsBackoff is how long the finalizer loop sleeps after a
	// submission rejected for insufficient gas funds.
	OutOfFundsBackoff = 10 * time.Second

	// QueryDBPaginationLimit bounds how many ready withdrawals the
	// finalizer loop pulls from storage per iteration.
	QueryDBPaginationLimit = 50

	// ParamsFetcherPageSize bounds how many no-params withdrawals the
	// params fetcher loop pulls from storage per iteration.
	ParamsFetcherPageSize = 1000
)
