package finalizer

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/withdrawal-finalizer/client"
	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// fakeGateway is a small hand-built in-memory storage.Gateway, a plain
// fake rather than a generated or framework-backed mock.
type fakeGateway struct {
	mu sync.Mutex

	toFinalize []types.Withdrawal
	noData     []types.Withdrawal

	addedData       []types.Withdrawal
	incAttemptsKeys []types.Key
	finalizedKeys   []types.Key
	finalizedTx     map[types.Key]common.Hash
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{finalizedTx: map[types.Key]common.Hash{}}
}

func (g *fakeGateway) WithdrawalsToFinalize(ctx context.Context, limit uint64) ([]types.Withdrawal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.toFinalize
	g.toFinalize = nil
	return out, nil
}

func (g *fakeGateway) WithdrawalsWithNoData(ctx context.Context, limit uint64) ([]types.Withdrawal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.noData
	g.noData = nil
	return out, nil
}

func (g *fakeGateway) AddWithdrawalsData(ctx context.Context, withdrawals []types.Withdrawal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addedData = append(g.addedData, withdrawals...)
	return nil
}

func (g *fakeGateway) IncUnsuccessfulFinalizationAttempts(ctx context.Context, keys []types.Key) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.incAttemptsKeys = append(g.incAttemptsKeys, keys...)
	return nil
}

func (g *fakeGateway) FinalizationDataSetFinalizedInTx(ctx context.Context, keys []types.Key, txHash common.Hash) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range keys {
		g.finalizedKeys = append(g.finalizedKeys, k)
		g.finalizedTx[k] = txHash
	}
	return nil
}

// fakeL2Client returns a fixed params bundle for every key present in
// its map, and nil for anything else.
type fakeL2Client struct {
	params map[types.Key]*types.FinalizationParams
}

func (c *fakeL2Client) FetchFinalizeParams(ctx context.Context, txHash common.Hash, eventIndex uint16) (*types.FinalizationParams, error) {
	return c.params[types.Key{TxHash: txHash, EventIndex: eventIndex}], nil
}

// fakeL1TxClient is a scriptable L1TxClient: GasPrice is fixed,
// SimulateFinalize pops the next queued prediction set, and
// SubmitFinalize either fails with a scripted error or succeeds,
// recording the batch it was asked to submit.
type fakeL1TxClient struct {
	mu sync.Mutex

	gasPrice *big.Int

	simulateResults [][]client.Prediction
	simulateCalls   int

	submitErr        error
	submitResults    []client.PendingFinalization
	submitCalls      int
	submittedBatches [][]types.FinalizeRequest
}

func (c *fakeL1TxClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.gasPrice, nil
}

func (c *fakeL1TxClient) SimulateFinalize(ctx context.Context, batch []types.FinalizeRequest) ([]client.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.simulateCalls >= len(c.simulateResults) {
		return nil, errors.New("fakeL1TxClient: no more scripted simulate results")
	}
	result := c.simulateResults[c.simulateCalls]
	c.simulateCalls++
	return result, nil
}

func (c *fakeL1TxClient) SubmitFinalize(ctx context.Context, batch []types.FinalizeRequest) (client.PendingFinalization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submittedBatches = append(c.submittedBatches, batch)
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	idx := c.submitCalls
	c.submitCalls++
	if idx < len(c.submitResults) {
		return c.submitResults[idx], nil
	}
	return nil, errors.New("fakeL1TxClient: no more scripted submit results")
}

// fakeL1ReadClient scripts the is-finalized predicates by key.
type fakeL1ReadClient struct {
	nativeFinalized map[types.Key]bool
	tokenFinalized  map[types.Key]bool
	// keyed maps above are indexed by a synthetic key built from the
	// l1BatchNumber/l2MessageIndex pair, since the read client only
	// sees those two numbers.
}

func batchMsgKey(l1BatchNumber, l2MessageIndex uint64) types.Key {
	return types.Key{TxHash: common.BigToHash(new(big.Int).SetUint64(l1BatchNumber)), EventIndex: uint16(l2MessageIndex)}
}

func (c *fakeL1ReadClient) IsNativeWithdrawalFinalized(ctx context.Context, l1BatchNumber, l2MessageIndex uint64) (bool, error) {
	return c.nativeFinalized[batchMsgKey(l1BatchNumber, l2MessageIndex)], nil
}

func (c *fakeL1ReadClient) IsTokenWithdrawalFinalized(ctx context.Context, l1BatchNumber, l2MessageIndex uint64) (bool, error) {
	return c.tokenFinalized[batchMsgKey(l1BatchNumber, l2MessageIndex)], nil
}

// fakePendingFinalization scripts a SubmitFinalize outcome: either a
// mined hash, a mined-with-no-receipt (nil hash, nil error), or a
// mining-wait error.
type fakePendingFinalization struct {
	hash     common.Hash
	waitHash *common.Hash
	waitErr  error
}

func (p *fakePendingFinalization) TxHash() common.Hash { return p.hash }

func (p *fakePendingFinalization) Wait(ctx context.Context) (*common.Hash, error) {
	return p.waitHash, p.waitErr
}
