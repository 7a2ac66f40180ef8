package client

import (
	"errors"
	"strings"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// outOfFundsCode and outOfFundsPrefix are the JSON-RPC error code and
// message prefix that identify a submission rejected because the
// account cannot cover the required gas.
const (
	outOfFundsCode   = -32000
	outOfFundsPrefix = "gas required exceeds allowance "
)

// IsOutOfFunds classifies a submission error as the out-of-funds case:
// JSON-RPC code -32000 with a message beginning "gas required exceeds
// allowance ". Any other error, including a nil one, reports false.
func IsOutOfFunds(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr gethrpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.ErrorCode() == outOfFundsCode && strings.HasPrefix(rpcErr.Error(), outOfFundsPrefix)
}
