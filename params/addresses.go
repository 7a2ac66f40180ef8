// Package params holds the per-chain contract addresses the finalizer
// needs: the withdrawal finalizer contract, the rollup (zkSync-style)
// contract, and the L1 bridge contract.
package params

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Chain IDs the finalizer ships known defaults for.
var (
	MainnetChainID = big.NewInt(1)
	SepoliaChainID = big.NewInt(11155111)
	LocalChainID   = big.NewInt(17)
)

// ContractAddresses is the set of L1 contracts one finalizer deployment
// talks to for a given chain.
type ContractAddresses struct {
	ChainID           *big.Int       `json:"chainId"`
	WithdrawalFinalizer common.Address `json:"withdrawalFinalizer"`
	Rollup            common.Address `json:"rollup"`
	L1Bridge          common.Address `json:"l1Bridge"`
}

var (
	mainnetAddresses = ContractAddresses{
		ChainID:             MainnetChainID,
		WithdrawalFinalizer: common.HexToAddress("0x32400084C286CF3E17e7B677ea9583e60a000324"),
		Rollup:              common.HexToAddress("0x32400084C286CF3E17e7B677ea9583e60a000001"),
		L1Bridge:            common.HexToAddress("0x32400084C286CF3E17e7B677ea9583e60a000002"),
	}
	sepoliaAddresses = ContractAddresses{
		ChainID:             SepoliaChainID,
		WithdrawalFinalizer: common.HexToAddress("0x9A6DE0f62Aa270A8bCB1e2610078650D539B1Ef9"),
		Rollup:              common.HexToAddress("0x9A6DE0f62Aa270A8bCB1e2610078650D539B1E01"),
		L1Bridge:            common.HexToAddress("0x9A6DE0f62Aa270A8bCB1e2610078650D539B1E02"),
	}
	localAddresses = ContractAddresses{
		ChainID: LocalChainID,
	}
)

// ContractAddressesForChain returns the known defaults for chainID, or a
// ContractAddresses carrying only chainID, with zero addresses to be
// filled in by config, if chainID is not one of the shipped networks
// (a nil chainID yields the zero value).
func ContractAddressesForChain(chainID *big.Int) ContractAddresses {
	if chainID == nil {
		return ContractAddresses{}
	}
	switch chainID.Int64() {
	case MainnetChainID.Int64():
		return mainnetAddresses
	case SepoliaChainID.Int64():
		return sepoliaAddresses
	case LocalChainID.Int64():
		return localAddresses
	default:
		return ContractAddresses{ChainID: chainID}
	}
}
