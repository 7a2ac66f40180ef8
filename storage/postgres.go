package storage

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// PostgresGateway implements Gateway against a Postgres database via
// pgx's connection pool. It is the only package in this module that
// imports a SQL driver; the finalizer core depends solely on the
// Gateway interface, with schema and query design entirely its own
// concern.
type PostgresGateway struct {
	pool *pgxpool.Pool
}

// NewPostgresGateway opens a connection pool against dsn.
func NewPostgresGateway(ctx context.Context, dsn string) (*PostgresGateway, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresGateway{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (g *PostgresGateway) Close() {
	g.pool.Close()
}

const selectWithdrawalsToFinalizeQuery = `
SELECT id, tx_hash, event_index_in_tx, sender, l1_batch_number, l2_message_index,
       l2_tx_number_in_block, message, merkle_proof, unsuccessful_attempts
FROM withdrawals
WHERE finalization_params IS NOT NULL
  AND finalization_tx IS NULL
ORDER BY id
LIMIT $1
`

func (g *PostgresGateway) WithdrawalsToFinalize(ctx context.Context, limit uint64) ([]types.Withdrawal, error) {
	rows, err := g.pool.Query(ctx, selectWithdrawalsToFinalizeQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("querying withdrawals to finalize: %w", err)
	}
	defer rows.Close()
	return scanWithdrawals(rows, true)
}

const selectWithdrawalsWithNoDataQuery = `
SELECT id, tx_hash, event_index_in_tx, sender, l1_batch_number, l2_message_index
FROM withdrawals
WHERE finalization_params IS NULL
ORDER BY id
LIMIT $1
`

func (g *PostgresGateway) WithdrawalsWithNoData(ctx context.Context, limit uint64) ([]types.Withdrawal, error) {
	rows, err := g.pool.Query(ctx, selectWithdrawalsWithNoDataQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("querying withdrawals with no data: %w", err)
	}
	defer rows.Close()
	return scanWithdrawals(rows, false)
}

func scanWithdrawals(rows pgx.Rows, withParams bool) ([]types.Withdrawal, error) {
	var out []types.Withdrawal
	for rows.Next() {
		var (
			w                 types.Withdrawal
			txHash            []byte
			eventIndex        uint16
			sender            []byte
			l2TxNumberInBlock uint16
			message           []byte
			merkleProof       [][32]byte
			attempts          uint32
		)
		dest := []any{&w.ID, &txHash, &eventIndex, &sender, &w.L1BatchNumber, &w.L2MessageIndex}
		if withParams {
			dest = append(dest, &l2TxNumberInBlock, &message, &merkleProof, &attempts)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning withdrawal row: %w", err)
		}

		w.Key = types.Key{TxHash: common.BytesToHash(txHash), EventIndex: eventIndex}
		w.Sender = common.BytesToAddress(sender)
		if withParams {
			w.Params = &types.FinalizationParams{
				L2TxNumberInBlock: l2TxNumberInBlock,
				Message:           message,
				MerkleProof:       merkleProof,
			}
			w.UnsuccessfulAttempts = attempts
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating withdrawal rows: %w", err)
	}
	return out, nil
}

const updateWithdrawalDataQuery = `
UPDATE withdrawals
SET finalization_params = $2, l2_tx_number_in_block = $3, message = $4, merkle_proof = $5
WHERE id = $1
`

func (g *PostgresGateway) AddWithdrawalsData(ctx context.Context, withdrawals []types.Withdrawal) error {
	batch := &pgx.Batch{}
	for _, w := range withdrawals {
		batch.Queue(updateWithdrawalDataQuery, w.ID, true, w.Params.L2TxNumberInBlock, w.Params.Message, w.Params.MerkleProof)
	}
	return g.sendBatch(ctx, batch, len(withdrawals))
}

const incUnsuccessfulAttemptsQuery = `
UPDATE withdrawals
SET unsuccessful_attempts = unsuccessful_attempts + 1
WHERE tx_hash = $1 AND event_index_in_tx = $2 AND finalization_tx IS NULL
`

func (g *PostgresGateway) IncUnsuccessfulFinalizationAttempts(ctx context.Context, keys []types.Key) error {
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(incUnsuccessfulAttemptsQuery, k.TxHash.Bytes(), k.EventIndex)
	}
	return g.sendBatch(ctx, batch, len(keys))
}

const setFinalizedInTxQuery = `
UPDATE withdrawals
SET finalization_tx = $3
WHERE tx_hash = $1 AND event_index_in_tx = $2
`

func (g *PostgresGateway) FinalizationDataSetFinalizedInTx(ctx context.Context, keys []types.Key, txHash common.Hash) error {
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(setFinalizedInTxQuery, k.TxHash.Bytes(), k.EventIndex, txHash.Bytes())
	}
	return g.sendBatch(ctx, batch, len(keys))
}

// sendBatch executes batch as a single round trip and surfaces the
// first per-statement error, if any, wrapped with context.
func (g *PostgresGateway) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	if n == 0 {
		return nil
	}
	results := g.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("executing batched statement %d/%d: %w", i+1, n, err)
		}
	}
	return nil
}
