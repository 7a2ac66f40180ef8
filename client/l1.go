// Package client implements the L1/L2 chain-client surface the
// finalizer core consumes. Two distinct L1 capability interfaces are
// exposed rather than one: a signer-capable client used only by the
// finalizer loop to read gas price, simulate and submit, and a
// read-only client shared freely for the is-finalized predicates.
package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// L1TxClient is the signer-capable surface used exclusively by the
// finalizer loop: reading the current gas price, pre-flight simulating
// a batch, and submitting it. Only the finalizer loop holds one of
// these; the signer middleware underneath it is single-writer.
type L1TxClient interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	SimulateFinalize(ctx context.Context, batch []types.FinalizeRequest) ([]Prediction, error)
	SubmitFinalize(ctx context.Context, batch []types.FinalizeRequest) (PendingFinalization, error)
}

// Prediction mirrors accumulator.Prediction; duplicated here to keep
// this package independent of the accumulator package (the core wires
// the two together).
type Prediction struct {
	Success bool
	Gas     uint64
}

// L1ReadClient is the read-only surface for the two is-finalized
// predicates. It may be shared freely across goroutines.
type L1ReadClient interface {
	IsNativeWithdrawalFinalized(ctx context.Context, l1BatchNumber, l2MessageIndex uint64) (bool, error)
	IsTokenWithdrawalFinalized(ctx context.Context, l1BatchNumber, l2MessageIndex uint64) (bool, error)
}

// PendingFinalization is returned by SubmitFinalize once the
// transaction has been accepted into the mempool. Wait resolves to the
// mined transaction hash, to nil if the transaction was mined but
// resolved to no receipt (treated as a no-op by the finalizer), or to
// an error if mining could not be observed. It is an interface, not a
// struct, so tests can script mining outcomes without a live
// ethclient.Client.
type PendingFinalization interface {
	TxHash() common.Hash
	Wait(ctx context.Context) (*common.Hash, error)
}

// pendingFinalization is the concrete PendingFinalization backed by a
// live ethclient.Client, returned by l1Client.SubmitFinalize.
type pendingFinalization struct {
	txHash common.Hash
	client *ethclient.Client
}

// TxHash returns the hash of the submitted transaction.
func (p *pendingFinalization) TxHash() common.Hash { return p.txHash }

// Wait polls for the transaction's receipt until ctx is cancelled,
// treating ethereum.NotFound as "keep waiting" rather than an error.
func (p *pendingFinalization) Wait(ctx context.Context) (*common.Hash, error) {
	for {
		receipt, err := p.client.TransactionReceipt(ctx, p.txHash)
		switch {
		case err == nil:
			if receipt == nil {
				return nil, nil
			}
			hash := receipt.TxHash
			return &hash, nil
		case err == ethereum.NotFound:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		default:
			return nil, fmt.Errorf("waiting for finalization tx %s: %w", p.txHash, err)
		}
	}
}

// l1Client is the concrete L1TxClient, wrapping a signer-capable
// ethclient.Client and the bound withdrawal-finalizer contract.
type l1Client struct {
	ethClient *ethclient.Client
	contract  *bind.BoundContract
	address   common.Address
	opts      *bind.TransactOpts
}

// NewL1TxClient dials rpcURL and binds the withdrawal finalizer
// contract at address, signing outgoing transactions with signer.
func NewL1TxClient(ctx context.Context, rpcURL string, address common.Address, signer *bind.TransactOpts) (L1TxClient, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing L1 RPC: %w", err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(withdrawalFinalizerABI))
	if err != nil {
		return nil, fmt.Errorf("parsing withdrawal finalizer ABI: %w", err)
	}
	contract := bind.NewBoundContract(address, parsedABI, ec, ec, ec)
	return &l1Client{ethClient: ec, contract: contract, address: address, opts: signer}, nil
}

func (c *l1Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching L1 gas price: %w", err)
	}
	return price, nil
}

func (c *l1Client) SimulateFinalize(ctx context.Context, batch []types.FinalizeRequest) ([]Prediction, error) {
	log.Debug("predicting results for withdrawals", "count", len(batch))

	var out []struct {
		Success bool
		Gas     *big.Int
	}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &[]interface{}{&out}, "finalizeWithdrawals", toABIRequests(batch)); err != nil {
		return nil, fmt.Errorf("simulating finalize_withdrawals: %w", err)
	}

	predictions := make([]Prediction, len(out))
	for i, r := range out {
		predictions[i] = Prediction{Success: r.Success, Gas: r.Gas.Uint64()}
	}
	return predictions, nil
}

func (c *l1Client) SubmitFinalize(ctx context.Context, batch []types.FinalizeRequest) (PendingFinalization, error) {
	log.Debug("finalizing batch", "count", len(batch))

	opts := *c.opts
	opts.Context = ctx
	tx, err := c.contract.Transact(&opts, "finalizeWithdrawals", toABIRequests(batch))
	if err != nil {
		return nil, err
	}
	return &pendingFinalization{txHash: tx.Hash(), client: c.ethClient}, nil
}

// toABIRequests converts FinalizeRequest into the anonymous tuple shape
// abi.Pack expects for the withdrawalFinalizerABI's request tuple.
func toABIRequests(batch []types.FinalizeRequest) []struct {
	L1BatchNumber     *big.Int
	L2MessageIndex    *big.Int
	L2TxNumberInBlock *big.Int
	Message           []byte
	MerkleProof       [][32]byte
	IsEth             bool
	GasLimit          *big.Int
} {
	out := make([]struct {
		L1BatchNumber     *big.Int
		L2MessageIndex    *big.Int
		L2TxNumberInBlock *big.Int
		Message           []byte
		MerkleProof       [][32]byte
		IsEth             bool
		GasLimit          *big.Int
	}, len(batch))
	for i, r := range batch {
		out[i] = struct {
			L1BatchNumber     *big.Int
			L2MessageIndex    *big.Int
			L2TxNumberInBlock *big.Int
			Message           []byte
			MerkleProof       [][32]byte
			IsEth             bool
			GasLimit          *big.Int
		}{r.L1BatchNumber, r.L2MessageIndex, r.L2TxNumberInBlock, r.Message, r.MerkleProof, r.IsEth, r.GasLimit}
	}
	return out
}

// l1ReadClient is the concrete L1ReadClient, wrapping the bound
// rollup and L1 bridge contracts.
type l1ReadClient struct {
	rollup   *bind.BoundContract
	l1Bridge *bind.BoundContract
}

// NewL1ReadClient dials rpcURL and binds the rollup and L1 bridge
// contracts at the given addresses.
func NewL1ReadClient(ctx context.Context, rpcURL string, rollupAddr, l1BridgeAddr common.Address) (L1ReadClient, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing L1 read RPC: %w", err)
	}
	rollupABI, err := abi.JSON(strings.NewReader(zkSyncRollupABI))
	if err != nil {
		return nil, fmt.Errorf("parsing rollup ABI: %w", err)
	}
	bridgeABI, err := abi.JSON(strings.NewReader(l1BridgeABI))
	if err != nil {
		return nil, fmt.Errorf("parsing L1 bridge ABI: %w", err)
	}
	return &l1ReadClient{
		rollup:   bind.NewBoundContract(rollupAddr, rollupABI, ec, nil, nil),
		l1Bridge: bind.NewBoundContract(l1BridgeAddr, bridgeABI, ec, nil, nil),
	}, nil
}

func (c *l1ReadClient) IsNativeWithdrawalFinalized(ctx context.Context, l1BatchNumber, l2MessageIndex uint64) (bool, error) {
	var out bool
	opts := &bind.CallOpts{Context: ctx}
	if err := c.rollup.Call(opts, &[]interface{}{&out}, "isEthWithdrawalFinalized",
		new(big.Int).SetUint64(l1BatchNumber), new(big.Int).SetUint64(l2MessageIndex)); err != nil {
		return false, fmt.Errorf("calling isEthWithdrawalFinalized: %w", err)
	}
	return out, nil
}

func (c *l1ReadClient) IsTokenWithdrawalFinalized(ctx context.Context, l1BatchNumber, l2MessageIndex uint64) (bool, error) {
	var out bool
	opts := &bind.CallOpts{Context: ctx}
	if err := c.l1Bridge.Call(opts, &[]interface{}{&out}, "isWithdrawalFinalized",
		new(big.Int).SetUint64(l1BatchNumber), new(big.Int).SetUint64(l2MessageIndex)); err != nil {
		return false, fmt.Errorf("calling isWithdrawalFinalized: %w", err)
	}
	return out, nil
}
