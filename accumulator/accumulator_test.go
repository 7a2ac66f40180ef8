package accumulator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func etherFraction(numerator, denominator int64) *big.Int {
	wei := new(big.Int).Mul(big.NewInt(numerator), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return wei.Div(wei, big.NewInt(denominator))
}

func withdrawal(id int64) types.Withdrawal {
	return types.Withdrawal{
		ID:  id,
		Key: types.Key{TxHash: common.BigToHash(big.NewInt(id)), EventIndex: 0},
	}
}

// S2 — batch fills on gas: 9 identical records, ONE_WITHDRAWAL_GAS_LIMIT
// 500_000, BATCH_GAS_LIMIT 4_000_000 — the 9th would overflow 4M.
func TestReadyToFinalize_GasBudget(t *testing.T) {
	acc := New(gwei(1), etherFraction(8, 10), 4_000_000, 500_000)

	for i := int64(1); i <= 8; i++ {
		acc.Add(withdrawal(i))
		if i != 8 {
			assert.False(t, acc.ReadyToFinalize(), "accumulator reported ready too early, at entry %d", i)
		}
	}
	assert.True(t, acc.ReadyToFinalize(), "expected accumulator to be ready after 8 entries (9th would overflow gas budget)")
	assert.Equal(t, 8, acc.Len())
}

// S3 — fee ceiling bites before the (much larger) gas budget:
// gas_price 100 gwei, ONE_WITHDRAWAL_GAS_LIMIT 500_000,
// TX_FEE_LIMIT 0.8 ether => max entries = floor(8e17/(100e9*500000)) = 16.
func TestReadyToFinalize_FeeBudget(t *testing.T) {
	acc := New(gwei(100), etherFraction(8, 10), 1_000_000_000, 500_000)

	for i := int64(1); i <= 16; i++ {
		acc.Add(withdrawal(i))
		if i != 16 {
			assert.False(t, acc.ReadyToFinalize(), "accumulator reported ready too early, at entry %d", i)
		}
	}
	assert.True(t, acc.ReadyToFinalize(), "expected accumulator to be ready at 16 entries due to the fee budget")
}

// Budget respect: at every state reached purely via Add where
// ReadyToFinalize() is false, both budgets must still have room for one
// more entry.
func TestBudgetRespectedWhileNotReady(t *testing.T) {
	acc := New(gwei(100), etherFraction(8, 10), 4_000_000, 500_000)

	for i := int64(1); i <= 30; i++ {
		if acc.ReadyToFinalize() {
			break
		}
		acc.Add(withdrawal(i))

		count := uint64(acc.Len())
		if !acc.ReadyToFinalize() {
			assert.LessOrEqual(t, count*500_000, uint64(4_000_000), "gas budget breached with %d entries", count)
			fee := new(big.Int).Mul(gwei(100), new(big.Int).SetUint64(count*500_000))
			assert.LessOrEqual(t, fee.Cmp(etherFraction(8, 10)), 0, "fee budget breached with %d entries", count)
		}
	}
}

// S4 — mixed predictions: entry 2 fails on success=false, entry 3 fails
// on gas>limit, entry 1 survives, relative order preserved.
func TestRemoveUnsuccessful_PositionalAlignment(t *testing.T) {
	acc := New(gwei(1), etherFraction(8, 10), 4_000_000, 500_000)
	w1, w2, w3 := withdrawal(1), withdrawal(2), withdrawal(3)
	acc.Add(w1)
	acc.Add(w2)
	acc.Add(w3)

	predictions := []Prediction{
		{Success: true, Gas: 400_000},
		{Success: false, Gas: 0},
		{Success: true, Gas: 600_000},
	}

	removed := acc.RemoveUnsuccessful(predictions)

	if assert.Len(t, removed, 2, "unexpected number of removed withdrawals") {
		assert.Equal(t, w2.ID, removed[0].ID, "removed order")
		assert.Equal(t, w3.ID, removed[1].ID, "removed order")
	}
	if assert.Equal(t, 1, acc.Len(), "unexpected number of surviving withdrawals") {
		assert.Equal(t, w1.ID, acc.Withdrawals()[0].ID, "expected surviving entry")
	}
}

func TestRemoveUnsuccessful_NoneFailed(t *testing.T) {
	acc := New(gwei(1), etherFraction(8, 10), 4_000_000, 500_000)
	acc.Add(withdrawal(1))
	acc.Add(withdrawal(2))

	removed := acc.RemoveUnsuccessful([]Prediction{
		{Success: true, Gas: 400_000},
		{Success: true, Gas: 400_000},
	})

	assert.Empty(t, removed, "expected no removals")
	assert.Equal(t, 2, acc.Len())
}

func TestTake_ResetsState(t *testing.T) {
	acc := New(gwei(1), etherFraction(8, 10), 4_000_000, 500_000)
	acc.Add(withdrawal(1))
	acc.Add(withdrawal(2))

	taken := acc.Take()
	assert.Len(t, taken, 2)
	assert.Equal(t, 0, acc.Len(), "Len() after Take()")
	assert.False(t, acc.ReadyToFinalize(), "freshly reset accumulator should not report ready")
}

// S1 — single clean withdrawal: ready only once no more input remains;
// the accumulator itself never asserts "no more input", that's the
// finalizer loop's job, but a lone entry must not spuriously trip either
// budget.
func TestSingleEntryNeverSpuriouslyReady(t *testing.T) {
	acc := New(gwei(1), etherFraction(8, 10), 4_000_000, 500_000)
	acc.Add(withdrawal(1))
	assert.False(t, acc.ReadyToFinalize(), "single small withdrawal should not trip either budget")
}
