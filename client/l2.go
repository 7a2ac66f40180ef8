package client

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// L2ParamsClient is the params-fetcher loop's only dependency on L2.
// The finalization-parameter endpoint is node-specific, not part of the
// standard eth namespace, so this is built directly on rpc.Client
// rather than ethclient.Client.
type L2ParamsClient interface {
	// FetchFinalizeParams returns the finalization params for the
	// withdrawal identified by (txHash, eventIndex), or nil if L2 has
	// not yet produced them — treated as "absent, try again next poll"
	// rather than assumed to always be present.
	FetchFinalizeParams(ctx context.Context, txHash common.Hash, eventIndex uint16) (*types.FinalizationParams, error)
}

// l2ParamsMethod is the L2 node's custom RPC method returning
// finalization parameters for a withdrawal log.
const l2ParamsMethod = "zks_getL2ToL1LogProof"

type l2ParamsClient struct {
	rpc *rpc.Client
}

// NewL2ParamsClient dials the L2 node's JSON-RPC endpoint.
func NewL2ParamsClient(ctx context.Context, rpcURL string) (L2ParamsClient, error) {
	c, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing L2 RPC: %w", err)
	}
	return &l2ParamsClient{rpc: c}, nil
}

// l2ToL1LogProofResult mirrors the node's JSON response shape for
// zks_getL2ToL1LogProof.
type l2ToL1LogProofResult struct {
	ID      uint16     `json:"id"`
	Proof   []string   `json:"proof"`
	Root    string     `json:"root"`
	Message string     `json:"message,omitempty"`
}

func (c *l2ParamsClient) FetchFinalizeParams(ctx context.Context, txHash common.Hash, eventIndex uint16) (*types.FinalizationParams, error) {
	var result *l2ToL1LogProofResult
	if err := c.rpc.CallContext(ctx, &result, l2ParamsMethod, txHash, eventIndex); err != nil {
		return nil, fmt.Errorf("calling %s for %s:%d: %w", l2ParamsMethod, txHash, eventIndex, err)
	}
	if result == nil {
		return nil, nil
	}

	proof := make([][32]byte, len(result.Proof))
	for i, p := range result.Proof {
		proof[i] = common.HexToHash(p)
	}

	return &types.FinalizationParams{
		L2TxNumberInBlock: result.ID,
		Message:           common.FromHex(result.Message),
		MerkleProof:       proof,
	}, nil
}
