// Package storage defines the narrow persistence interface the
// finalizer core depends on. The core never depends on a SQL driver
// directly; schema and query design live entirely in the concrete
// Gateway implementation, here PostgresGateway.
package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// Gateway is the storage surface the finalizer core consumes. Every
// method is expected to be transactional from the core's perspective:
// a partial failure must not leave a withdrawal visible in more than
// one of "no data" / "ready" / "finalized" at once.
type Gateway interface {
	// WithdrawalsToFinalize returns up to limit withdrawals that have
	// finalization params attached, are not yet finalized, and are
	// within whatever retry budget storage enforces — that budget is a
	// storage policy, not a core concern.
	WithdrawalsToFinalize(ctx context.Context, limit uint64) ([]types.Withdrawal, error)

	// WithdrawalsWithNoData returns up to limit withdrawals lacking
	// finalization params.
	WithdrawalsWithNoData(ctx context.Context, limit uint64) ([]types.Withdrawal, error)

	// AddWithdrawalsData persists fetched finalization params, keyed by
	// each withdrawal's storage ID.
	AddWithdrawalsData(ctx context.Context, withdrawals []types.Withdrawal) error

	// IncUnsuccessfulFinalizationAttempts bumps the retry counter for
	// every given key.
	IncUnsuccessfulFinalizationAttempts(ctx context.Context, keys []types.Key) error

	// FinalizationDataSetFinalizedInTx marks every given key as
	// finalized in txHash. txHash may be the zero hash, meaning "known
	// finalized, transaction of record unknown".
	FinalizationDataSetFinalizedInTx(ctx context.Context, keys []types.Key, txHash common.Hash) error
}
