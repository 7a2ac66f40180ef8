// Package config describes the finalizer's on-disk TOML configuration:
// a plain config struct with sensible defaults and a human-readable
// String() method.
package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"

	"github.com/mantlenetworkio/withdrawal-finalizer/params"
)

// Backoff, pagination and gas defaults. The first four carry the same
// values as the like-named constants in the finalizer package (with a
// Default prefix) so a reader can match one to the other directly.
const (
	DefaultNoNewWithdrawalsBackoff = 5 * time.Second
	DefaultOutOfFundsBackoff       = 10 * time.Second
	DefaultQueryDBPaginationLimit  = 50
	DefaultParamsFetcherPageSize   = 1000
	DefaultOneWithdrawalGasLimit   = 500_000
	DefaultBatchFinalizationGas    = 4_000_000
)

// DefaultTxFeeLimitWei is 0.8 ether, expressed in wei.
var DefaultTxFeeLimitWei = new(big.Int).Mul(big.NewInt(8), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))

// NativeAssetSentinels is the set of L2 sender addresses that identify a
// withdrawal as moving the rollup's native asset rather than an ERC20:
// a small membership list plus a predicate method.
type NativeAssetSentinels []common.Address

// IsNativeAsset reports whether sender identifies a native-asset
// withdrawal. When true the Rollup contract's is-finalized predicate
// applies; when false the L1Bridge's does.
func (s NativeAssetSentinels) IsNativeAsset(sender common.Address) bool {
	for _, candidate := range s {
		if candidate == sender {
			return true
		}
	}
	return false
}

// DefaultNativeAssetSentinels is the conventional L2 system address used
// by zkSync-style rollups to mark native-asset (ETH) withdrawals.
var DefaultNativeAssetSentinels = NativeAssetSentinels{
	common.HexToAddress("0x000000000000000000000000000000000000800A"),
}

// Config is the finalizer's full runtime configuration.
type Config struct {
	// Postgres is the DSN for the storage gateway's connection pool.
	Postgres string `toml:"postgres"`

	// L1RPC is the URL of the signer-capable L1 endpoint the finalizer
	// submits transactions through.
	L1RPC string `toml:"l1_rpc"`
	// L1ReadRPC is the URL of a read-only L1 endpoint used for the
	// is-finalized predicates; may equal L1RPC.
	L1ReadRPC string `toml:"l1_read_rpc"`
	// L2RPC is the URL of the L2 node the params-fetcher queries.
	L2RPC string `toml:"l2_rpc"`

	// PrivateKey is the hex-encoded secp256k1 key used to sign L1
	// finalization transactions. Never logged.
	PrivateKey string `toml:"private_key"`

	ChainID *big.Int `toml:"chain_id"`

	// Contracts overrides the chain-ID-derived defaults in
	// params.ContractAddressesForChain when any field is non-zero.
	Contracts params.ContractAddresses `toml:"contracts"`

	NativeAssetSentinels NativeAssetSentinels `toml:"native_asset_sentinels"`

	OneWithdrawalGasLimit     uint64   `toml:"one_withdrawal_gas_limit"`
	BatchFinalizationGasLimit uint64   `toml:"batch_finalization_gas_limit"`
	TxFeeLimitWei             *big.Int `toml:"tx_fee_limit_wei"`
	QueryDBPaginationLimit    uint64   `toml:"query_db_pagination_limit"`
	ParamsFetcherPageSize     uint64   `toml:"params_fetcher_page_size"`
	NoNewWithdrawalsBackoff   Duration `toml:"no_new_withdrawals_backoff"`
	OutOfFundsBackoff         Duration `toml:"out_of_funds_backoff"`

	MetricsAddr string `toml:"metrics_addr"`
}

// Duration is a time.Duration that round-trips through TOML as a Go
// duration string ("5s"), matching naoina/toml's text-marshaler support.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns a Config populated with the package's numeric
// constants and the conventional local devnet endpoints.
func Default() Config {
	return Config{
		L1RPC:                     "http://localhost:8545",
		L1ReadRPC:                 "http://localhost:8545",
		L2RPC:                     "http://localhost:3050",
		ChainID:                   params.LocalChainID,
		NativeAssetSentinels:      DefaultNativeAssetSentinels,
		OneWithdrawalGasLimit:     DefaultOneWithdrawalGasLimit,
		BatchFinalizationGasLimit: DefaultBatchFinalizationGas,
		TxFeeLimitWei:             new(big.Int).Set(DefaultTxFeeLimitWei),
		QueryDBPaginationLimit:    DefaultQueryDBPaginationLimit,
		ParamsFetcherPageSize:     DefaultParamsFetcherPageSize,
		NoNewWithdrawalsBackoff:   Duration{DefaultNoNewWithdrawalsBackoff},
		OutOfFundsBackoff:         Duration{DefaultOutOfFundsBackoff},
		MetricsAddr:               "127.0.0.1:6060",
	}
}

func (c Config) String() string {
	return fmt.Sprintf(
		"l1_rpc=%s l1_read_rpc=%s l2_rpc=%s chain_id=%s one_withdrawal_gas_limit=%d batch_gas_limit=%d tx_fee_limit_wei=%s query_db_pagination_limit=%d",
		c.L1RPC, c.L1ReadRPC, c.L2RPC, c.ChainID, c.OneWithdrawalGasLimit, c.BatchFinalizationGasLimit, c.TxFeeLimitWei, c.QueryDBPaginationLimit,
	)
}

// ResolveContracts returns the configured contract addresses, falling
// back to the chain-ID default set for any field left zero.
func (c Config) ResolveContracts() params.ContractAddresses {
	defaults := params.ContractAddressesForChain(c.ChainID)
	resolved := c.Contracts
	if resolved.ChainID == nil {
		resolved.ChainID = c.ChainID
	}
	var zero common.Address
	if resolved.WithdrawalFinalizer == zero {
		resolved.WithdrawalFinalizer = defaults.WithdrawalFinalizer
	}
	if resolved.Rollup == zero {
		resolved.Rollup = defaults.Rollup
	}
	if resolved.L1Bridge == zero {
		resolved.L1Bridge = defaults.L1Bridge
	}
	return resolved
}

// Load reads and parses a TOML config file at path, applying Default()
// for any field the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file: %w", err)
	}
	return cfg, nil
}
