// Package types defines the withdrawal record shapes shared between the
// storage gateway, the chain clients and the finalizer core.
package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Key identifies a withdrawal uniquely: the L2 transaction that emitted it
// plus the index of the withdrawal event within that transaction.
type Key struct {
	TxHash     common.Hash
	EventIndex uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.TxHash.Hex(), k.EventIndex)
}

// ZeroTxHash is the sentinel transaction hash meaning "known finalized,
// exact L1 transaction unknown" (see FinalizationTx).
var ZeroTxHash = common.Hash{}

// FinalizationParams is the Merkle proof and message payload the L1
// finalizer contract needs to validate and execute a withdrawal. It is
// attached to a Withdrawal by the params-fetcher once the L2 node can
// produce it.
type FinalizationParams struct {
	L2TxNumberInBlock uint16
	Message           []byte
	MerkleProof       [][32]byte
}

// Withdrawal is the storage-owned record the finalizer core reads and
// enriches. Fields mirror the narrow set the core actually touches; the
// rest of the withdrawal's lifecycle (indexing, event decoding) belongs to
// the chain-watcher, out of scope here.
type Withdrawal struct {
	ID                   int64
	Key                  Key
	Sender               common.Address
	L1BatchNumber        uint64
	L2MessageIndex       uint64
	Params               *FinalizationParams // nil until the params-fetcher attaches it
	UnsuccessfulAttempts uint32
	FinalizationTx       *common.Hash // nil until finalized; non-nil (incl. ZeroTxHash) is terminal
}

// ReadyToFinalize reports whether the record carries the data the
// finalizer needs to attempt submission. Storage's "ready" query is
// expected to enforce this already; the finalizer loop does not call this
// method and relies on that query.
func (w *Withdrawal) ReadyToFinalize() bool {
	return w.Params != nil && w.FinalizationTx == nil
}

// FinalizeRequest is the per-entry shape the L1 finalizer contract's
// finalize_withdrawals method expects, built fresh for every simulate/
// submit call so the embedded gas limit is never implicitly stale.
type FinalizeRequest struct {
	L1BatchNumber     *big.Int
	L2MessageIndex    *big.Int
	L2TxNumberInBlock *big.Int
	Message           []byte
	MerkleProof       [][32]byte
	IsEth             bool
	GasLimit          *big.Int
}

// IntoFinalizeRequest builds the ABI-call request for w, embedding gasLimit
// as the contract's per-withdrawal gas allowance. The gas limit is always
// supplied explicitly by the caller rather than defaulted inside the
// binding, so accumulator and client stay decoupled.
func (w *Withdrawal) IntoFinalizeRequest(gasLimit *big.Int, isNative func(common.Address) bool) FinalizeRequest {
	return FinalizeRequest{
		L1BatchNumber:     new(big.Int).SetUint64(w.L1BatchNumber),
		L2MessageIndex:    new(big.Int).SetUint64(w.L2MessageIndex),
		L2TxNumberInBlock: new(big.Int).SetUint64(uint64(w.Params.L2TxNumberInBlock)),
		Message:           w.Params.Message,
		MerkleProof:       w.Params.MerkleProof,
		IsEth:             isNative(w.Sender),
		GasLimit:          gasLimit,
	}
}
