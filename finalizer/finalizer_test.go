package finalizer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/withdrawal-finalizer/client"
	"github.com/mantlenetworkio/withdrawal-finalizer/config"
	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

var nativeSentinel = common.HexToAddress("0x000000000000000000000000000000000000800A")

func withdrawal(id int64, sender common.Address, l1Batch, l2MsgIdx uint64) types.Withdrawal {
	return types.Withdrawal{
		ID:            id,
		Key:           types.Key{TxHash: common.BigToHash(big.NewInt(id)), EventIndex: 0},
		Sender:        sender,
		L1BatchNumber: l1Batch,
		L2MessageIndex: l2MsgIdx,
		Params: &types.FinalizationParams{
			L2TxNumberInBlock: 7,
			Message:           []byte("withdraw"),
			MerkleProof:       [][32]byte{{1}},
		},
	}
}

func newTestFinalizer(gw *fakeGateway, l1Tx *fakeL1TxClient, l1Read *fakeL1ReadClient) *Finalizer {
	sentinels := config.NativeAssetSentinels{nativeSentinel}
	return NewFinalizer(gw, l1Tx, l1Read, sentinels, FinalizerConfig{
		OneWithdrawalGasLimit: 500_000,
		BatchGasLimit:         4_000_000,
		TxFeeLimitWei:         config.DefaultTxFeeLimitWei,
	})
}

// S1 — single ETH withdrawal, clean path: simulation succeeds, the
// batch is submitted and mined, storage records the real tx hash.
func TestIterate_S1_SingleWithdrawalCleanPath(t *testing.T) {
	gw := newFakeGateway()
	w := withdrawal(1, nativeSentinel, 100, 7)
	gw.toFinalize = []types.Withdrawal{w}

	minedHash := common.HexToHash("0xdead")
	l1Tx := &fakeL1TxClient{
		gasPrice:        big.NewInt(1_000_000_000),
		simulateResults: [][]client.Prediction{{{Success: true, Gas: 400_000}}},
		submitResults:   []client.PendingFinalization{&fakePendingFinalization{hash: minedHash, waitHash: &minedHash}},
	}
	f := newTestFinalizer(gw, l1Tx, &fakeL1ReadClient{})

	if err := f.iterate(context.Background()); err != nil {
		t.Fatalf("iterate: %v", err)
	}

	if len(gw.finalizedKeys) != 1 || gw.finalizedKeys[0] != w.Key {
		t.Fatalf("expected key %v finalized, got %v", w.Key, gw.finalizedKeys)
	}
	if got := gw.finalizedTx[w.Key]; got != minedHash {
		t.Fatalf("expected finalization tx %s, got %s", minedHash, got)
	}
	if len(gw.incAttemptsKeys) != 0 {
		t.Fatalf("expected no retry-counter bumps, got %v", gw.incAttemptsKeys)
	}
}

// S5 — out-of-funds: submission fails classified as out-of-funds.
// Expected: nothing finalized, no retry counters bumped, loop absorbs
// the error and continues (iterate returns nil). The low-gas metrics
// counter is not checked here.
func TestIterate_S5_OutOfFunds(t *testing.T) {
	gw := newFakeGateway()
	w := withdrawal(1, nativeSentinel, 100, 7)
	gw.toFinalize = []types.Withdrawal{w}

	l1Tx := &fakeL1TxClient{
		gasPrice:        big.NewInt(1_000_000_000),
		simulateResults: [][]client.Prediction{{{Success: true, Gas: 400_000}}},
		submitErr:       &fakeOutOfFundsErr{},
	}
	f := newTestFinalizer(gw, l1Tx, &fakeL1ReadClient{})
	f.outOfFundsBackoff = 0

	if err := f.iterate(context.Background()); err != nil {
		t.Fatalf("iterate: %v", err)
	}

	if len(gw.finalizedKeys) != 0 {
		t.Fatalf("expected nothing finalized, got %v", gw.finalizedKeys)
	}
	if len(gw.incAttemptsKeys) != 0 {
		t.Fatalf("expected no retry-counter bumps on out-of-funds, got %v", gw.incAttemptsKeys)
	}
}

// fakeOutOfFundsErr satisfies the gethrpc.Error interface client.IsOutOfFunds checks.
type fakeOutOfFundsErr struct{}

func (e *fakeOutOfFundsErr) Error() string { return "gas required exceeds allowance 12345" }
func (e *fakeOutOfFundsErr) ErrorCode() int { return -32000 }

// S6 — external finalization: a token withdrawal predicted to fail in
// simulation turns out already finalized on L1. Expected: storage
// records the zero-hash sentinel, retry counter not bumped.
func TestIterate_S6_ExternalFinalization(t *testing.T) {
	erc20Sender := common.HexToAddress("0x00000000000000000000000000000000001234")
	gw := newFakeGateway()
	w := withdrawal(1, erc20Sender, 200, 9)
	gw.toFinalize = []types.Withdrawal{w}

	l1Tx := &fakeL1TxClient{
		gasPrice:        big.NewInt(1_000_000_000),
		simulateResults: [][]client.Prediction{{{Success: false, Gas: 0}}},
	}
	l1Read := &fakeL1ReadClient{
		tokenFinalized: map[types.Key]bool{batchMsgKey(200, 9): true},
	}
	f := newTestFinalizer(gw, l1Tx, l1Read)

	if err := f.iterate(context.Background()); err != nil {
		t.Fatalf("iterate: %v", err)
	}

	if len(gw.finalizedKeys) != 1 || gw.finalizedKeys[0] != w.Key {
		t.Fatalf("expected key %v finalized externally, got %v", w.Key, gw.finalizedKeys)
	}
	if got := gw.finalizedTx[w.Key]; got != types.ZeroTxHash {
		t.Fatalf("expected zero-hash sentinel, got %s", got)
	}
	if len(gw.incAttemptsKeys) != 0 {
		t.Fatalf("expected no retry-counter bump for externally finalized withdrawal, got %v", gw.incAttemptsKeys)
	}
}

// Invariant 4 — reconciliation dichotomy: a genuinely-failed withdrawal
// (simulation failed, not finalized on L1) has its retry counter
// bumped and is never marked finalized.
func TestIterate_ReconciliationDichotomy_GenuineFailure(t *testing.T) {
	erc20Sender := common.HexToAddress("0x00000000000000000000000000000000001234")
	gw := newFakeGateway()
	w := withdrawal(1, erc20Sender, 300, 1)
	gw.toFinalize = []types.Withdrawal{w}

	l1Tx := &fakeL1TxClient{
		gasPrice:        big.NewInt(1_000_000_000),
		simulateResults: [][]client.Prediction{{{Success: false, Gas: 0}}},
	}
	l1Read := &fakeL1ReadClient{}
	f := newTestFinalizer(gw, l1Tx, l1Read)

	if err := f.iterate(context.Background()); err != nil {
		t.Fatalf("iterate: %v", err)
	}

	if len(gw.finalizedKeys) != 0 {
		t.Fatalf("expected nothing finalized for genuine failure, got %v", gw.finalizedKeys)
	}
	if len(gw.incAttemptsKeys) != 1 || gw.incAttemptsKeys[0] != w.Key {
		t.Fatalf("expected retry counter bumped for %v, got %v", w.Key, gw.incAttemptsKeys)
	}
}

func TestIterate_EmptyQueueReturnsSentinel(t *testing.T) {
	gw := newFakeGateway()
	f := newTestFinalizer(gw, &fakeL1TxClient{gasPrice: big.NewInt(1)}, &fakeL1ReadClient{})

	err := f.iterate(context.Background())
	if !errors.Is(err, errEmptyQueue) {
		t.Fatalf("expected errEmptyQueue, got %v", err)
	}
}
