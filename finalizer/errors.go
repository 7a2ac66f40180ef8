package finalizer

import "errors"

// Storage and middleware errors are not given sentinels here — they
// propagate as whatever the storage.Gateway/client implementation
// returns, wrapped with fmt.Errorf("...: %w", err) at each call site,
// and are indistinguishable to the supervisor: any error ends the loop.
var (
	// errEmptyQueue signals "nothing to do this iteration" internally;
	// it is never returned to the supervisor, only used to short-circuit
	// into a backoff sleep.
	errEmptyQueue = errors.New("finalizer: no ready withdrawals")
)
