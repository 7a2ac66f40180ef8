// Package accumulator packs withdrawals into L1-finalization batches
// under a gas budget and a fee budget, and supports pruning entries that
// a pre-flight simulation predicted would fail.
//
// It keeps an ordered slice for iteration order and removes entries by
// position in one in-place pass, the same shape as any mempool-ordered
// transaction set, but
// over a caller-supplied withdrawal type and a fixed budget instead of
// an unbounded mempool.
package accumulator

import (
	"math/big"

	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// Accumulator packs withdrawals into a single batch under two budgets:
// the sum of per-entry gas allowances must not exceed gasLimit, and
// gasPrice*totalGas must not exceed feeLimit. Not safe for concurrent
// use: each finalizer loop iteration owns exactly one Accumulator at a
// time, and every field above is plain state with no hidden coupling to
// a global config.
type Accumulator struct {
	entries []types.Withdrawal

	gasPrice    *big.Int
	feeLimit    *big.Int
	gasLimit    uint64
	perEntryGas uint64

	totalGas uint64
}

// New creates an Accumulator for one finalizer-loop iteration.
//
//   - gasPrice is the L1 gas price observed when the batch was opened.
//   - feeLimit caps gasPrice*totalGas, the per-transaction fee ceiling.
//   - gasLimit caps the sum of per-entry gas allowances, the per-batch gas
//     ceiling.
//   - perEntryGas is the fixed gas allowance charged per withdrawal;
//     packing is linear because no individual estimation is attempted
//     here, only at simulation time.
func New(gasPrice, feeLimit *big.Int, gasLimit, perEntryGas uint64) *Accumulator {
	return &Accumulator{
		gasPrice:    new(big.Int).Set(gasPrice),
		feeLimit:    new(big.Int).Set(feeLimit),
		gasLimit:    gasLimit,
		perEntryGas: perEntryGas,
	}
}

// Add appends w to the batch, charging it perEntryGas against the
// running gas total.
func (a *Accumulator) Add(w types.Withdrawal) {
	a.entries = append(a.entries, w)
	a.totalGas += a.perEntryGas
}

// ReadyToFinalize reports whether admitting one more withdrawal would
// breach either budget. The finalizer loop also treats an exhausted
// input page as ready, independent of this method.
func (a *Accumulator) ReadyToFinalize() bool {
	nextGas := a.totalGas + a.perEntryGas
	if nextGas > a.gasLimit {
		return true
	}
	fee := new(big.Int).Mul(a.gasPrice, new(big.Int).SetUint64(nextGas))
	return fee.Cmp(a.feeLimit) > 0
}

// Withdrawals borrows the current batch for simulation; the returned
// slice must not be retained past the next mutating call.
func (a *Accumulator) Withdrawals() []types.Withdrawal {
	return a.entries
}

// Len reports the number of withdrawals currently held.
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// Take consumes and returns the current batch, resetting the
// accumulator's entries and running gas total. The caller is expected
// to replace gasPrice/budgets by constructing a fresh Accumulator for
// the next batch, since gas price may have moved materially by then.
func (a *Accumulator) Take() []types.Withdrawal {
	taken := a.entries
	a.entries = nil
	a.totalGas = 0
	return taken
}

// Prediction is a single simulated outcome, positionally aligned with
// the slice passed to Withdrawals() at simulation time.
type Prediction struct {
	Success bool
	Gas     uint64
}

// Failed reports whether p should be treated as a simulation failure:
// either the call itself failed, or it succeeded but would have spent
// more gas than the withdrawal is allotted.
func (p Prediction) Failed(perEntryGasLimit uint64) bool {
	return !p.Success || p.Gas > perEntryGasLimit
}

// RemoveUnsuccessful removes entries whose aligned prediction in
// predictions is a failure, shrinking the accumulator's gas total to
// match, and returns the removed entries in their original relative
// order so the caller can park them for reconciliation.
//
// len(predictions) must equal a.Len(); predictions[i] describes
// a.entries[i].
func (a *Accumulator) RemoveUnsuccessful(predictions []Prediction) []types.Withdrawal {
	survivors := a.entries[:0]
	var removed []types.Withdrawal

	for i, w := range a.entries {
		if predictions[i].Failed(a.perEntryGas) {
			removed = append(removed, w)
			a.totalGas -= a.perEntryGas
			continue
		}
		survivors = append(survivors, w)
	}
	a.entries = survivors
	return removed
}
