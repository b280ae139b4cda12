package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpIncentive/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS replay_state (
	name TEXT PRIMARY KEY,
	last_seq BIGINT NOT NULL,
	exit_fee_pct TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pools (
	name TEXT NOT NULL,
	pool_address TEXT NOT NULL,
	registered BOOLEAN NOT NULL,
	tokens TEXT[] NOT NULL,
	balances TEXT[] NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (name, pool_address)
);
CREATE TABLE IF NOT EXISTS liquidity_records (
	name TEXT NOT NULL,
	pool_address TEXT NOT NULL,
	provider TEXT NOT NULL,
	amounts TEXT[] NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (name, pool_address, provider)
);
CREATE TABLE IF NOT EXISTS deposit_clocks (
	name TEXT NOT NULL,
	provider TEXT NOT NULL,
	since_ts BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (name, provider)
);
CREATE TABLE IF NOT EXISTS hook_events (
	hook_address TEXT NOT NULL,
	seq BIGINT NOT NULL,
	log_index INT NOT NULL,
	event_name TEXT NOT NULL,
	block_ts BIGINT NOT NULL,
	topics TEXT[] NOT NULL,
	data TEXT NOT NULL,
	decoded JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (hook_address, seq, log_index)
);
`

// Store provides Postgres persistence for hook events and replay state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutEventBatch inserts hook events, ignoring ones already stored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.HookEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		decoded, err := json.Marshal(event.Decoded)
		if err != nil {
			return fmt.Errorf("marshal decoded event: %w", err)
		}
		batch.Queue(`
			INSERT INTO hook_events (
				hook_address, seq, log_index, event_name, block_ts, topics, data, decoded, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (hook_address, seq, log_index) DO NOTHING
		`,
			event.Address,
			int64(event.Seq),
			event.LogIndex,
			event.EventName,
			int64(event.Timestamp),
			event.Topics,
			event.Data,
			string(decoded),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadReplayState reads the replay state stored under name.
func (s *Store) LoadReplayState(ctx context.Context, name string) (model.ReplayState, bool, error) {
	if name == "" {
		return model.ReplayState{}, false, fmt.Errorf("state name required")
	}

	var (
		state   model.ReplayState
		lastSeq int64
	)
	row := s.pool.QueryRow(ctx, `SELECT last_seq, exit_fee_pct FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&lastSeq, &state.ExitFeePercentage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ReplayState{}, false, nil
		}
		return model.ReplayState{}, false, err
	}
	state.LastSeq = uint64(lastSeq)

	pools, err := s.loadPools(ctx, name)
	if err != nil {
		return model.ReplayState{}, false, err
	}
	state.Pools = pools

	snapshot, err := s.LoadLedger(ctx, name)
	if err != nil {
		return model.ReplayState{}, false, err
	}
	state.Ledger = snapshot

	return state, true, nil
}

// SaveReplayState replaces the replay state stored under name in a single transaction.
func (s *Store) SaveReplayState(ctx context.Context, name string, state model.ReplayState) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO replay_state (name, last_seq, exit_fee_pct, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, exit_fee_pct = EXCLUDED.exit_fee_pct, updated_at = now()
	`, name, int64(state.LastSeq), state.ExitFeePercentage)

	for _, pool := range state.Pools {
		batch.Queue(`
			INSERT INTO pools (name, pool_address, registered, tokens, balances, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (name, pool_address) DO UPDATE SET
				registered = EXCLUDED.registered,
				tokens = EXCLUDED.tokens,
				balances = EXCLUDED.balances,
				updated_at = now()
		`, name, pool.Address, pool.Registered, pool.Tokens, pool.Balances)
	}

	queueLedger(batch, name, state.Ledger)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LoadLedger reads the ledger snapshot stored under name, ordered by pool then provider.
func (s *Store) LoadLedger(ctx context.Context, name string) (model.LedgerSnapshot, error) {
	var snapshot model.LedgerSnapshot

	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, provider, amounts FROM liquidity_records
		WHERE name=$1 ORDER BY pool_address, provider
	`, name)
	if err != nil {
		return snapshot, err
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LiquidityRecord, error) {
		var rec model.LiquidityRecord
		err := row.Scan(&rec.Pool, &rec.Provider, &rec.Amounts)
		return rec, err
	})
	if err != nil {
		return snapshot, fmt.Errorf("load liquidity records: %w", err)
	}
	snapshot.Records = records

	rows, err = s.pool.Query(ctx, `SELECT provider, since_ts FROM deposit_clocks WHERE name=$1 ORDER BY provider`, name)
	if err != nil {
		return snapshot, err
	}
	clocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DepositClock, error) {
		var (
			clock model.DepositClock
			since int64
		)
		err := row.Scan(&clock.Provider, &since)
		clock.Since = uint64(since)
		return clock, err
	})
	if err != nil {
		return snapshot, fmt.Errorf("load deposit clocks: %w", err)
	}
	snapshot.Clocks = clocks

	return snapshot, nil
}

func (s *Store) loadPools(ctx context.Context, name string) ([]model.PoolRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, registered, tokens, balances FROM pools
		WHERE name=$1 ORDER BY pool_address
	`, name)
	if err != nil {
		return nil, err
	}
	pools, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PoolRecord, error) {
		var pool model.PoolRecord
		err := row.Scan(&pool.Address, &pool.Registered, &pool.Tokens, &pool.Balances)
		return pool, err
	})
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}
	return pools, nil
}

// queueLedger replaces the stored ledger rows with the snapshot. Closed positions and cleared
// clocks disappear because the previous rows are deleted first.
func queueLedger(batch *pgx.Batch, name string, snapshot model.LedgerSnapshot) {
	batch.Queue(`DELETE FROM liquidity_records WHERE name=$1`, name)
	batch.Queue(`DELETE FROM deposit_clocks WHERE name=$1`, name)

	for _, rec := range snapshot.Records {
		batch.Queue(`
			INSERT INTO liquidity_records (name, pool_address, provider, amounts, updated_at)
			VALUES ($1, $2, $3, $4, now())
		`, name, rec.Pool, rec.Provider, rec.Amounts)
	}
	for _, clock := range snapshot.Clocks {
		batch.Queue(`
			INSERT INTO deposit_clocks (name, provider, since_ts, updated_at)
			VALUES ($1, $2, $3, now())
		`, name, clock.Provider, int64(clock.Since))
	}
}
