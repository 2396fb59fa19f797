package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairRouter/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	run_name text NOT NULL,
	pool_address text NOT NULL,
	token0 text NOT NULL,
	token1 text NOT NULL,
	stable boolean NOT NULL,
	fee_bps integer NOT NULL,
	reserve0 numeric NOT NULL,
	reserve1 numeric NOT NULL,
	total_supply numeric NOT NULL,
	reserve0_cumulative numeric NOT NULL,
	reserve1_cumulative numeric NOT NULL,
	block_timestamp_last bigint NOT NULL,
	bribe text,
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL,
	PRIMARY KEY (run_name, pool_address)
);
CREATE TABLE IF NOT EXISTS events (
	run_name text NOT NULL,
	seq bigint NOT NULL,
	ts bigint NOT NULL,
	address text NOT NULL,
	event_name text NOT NULL,
	decoded jsonb NOT NULL,
	PRIMARY KEY (run_name, seq)
);
CREATE TABLE IF NOT EXISTS runs (
	name text PRIMARY KEY,
	last_seq bigint NOT NULL,
	last_ts bigint NOT NULL,
	updated_at timestamptz NOT NULL
);
`

// Store persists simulation runs to Postgres.
type Store struct {
	pool *pgxpool.Pool
	run  string
}

// NewStore connects to dsn. Rows are keyed by run.
func NewStore(ctx context.Context, dsn, run string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if run == "" {
		return nil, fmt.Errorf("run name is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, run: run}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				run_name, pool_address, token0, token1, stable, fee_bps, reserve0, reserve1, total_supply,
				reserve0_cumulative, reserve1_cumulative, block_timestamp_last, bribe, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (run_name, pool_address)
			DO UPDATE SET
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				total_supply = EXCLUDED.total_supply,
				reserve0_cumulative = EXCLUDED.reserve0_cumulative,
				reserve1_cumulative = EXCLUDED.reserve1_cumulative,
				block_timestamp_last = EXCLUDED.block_timestamp_last,
				bribe = EXCLUDED.bribe,
				updated_at = now()
		`,
			s.run,
			pool.Address,
			pool.Token0,
			pool.Token1,
			pool.Stable,
			int64(pool.FeeBps),
			pool.Reserve0,
			pool.Reserve1,
			pool.TotalSupply,
			pool.Reserve0Cumulative,
			pool.Reserve1Cumulative,
			int64(pool.BlockTimestampLast),
			nullable(pool.Bribe),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutEventBatch inserts events, ignoring sequence numbers already stored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		decoded, err := json.Marshal(event.Decoded)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", event.Seq, err)
		}
		batch.Queue(`
			INSERT INTO events (run_name, seq, ts, address, event_name, decoded)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (run_name, seq) DO NOTHING
		`,
			s.run,
			int64(event.Seq),
			int64(event.Timestamp),
			event.Address,
			event.EventName,
			decoded,
		)
	}
	last := events[len(events)-1]
	batch.Queue(`
		INSERT INTO runs (name, last_seq, last_ts, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = GREATEST(runs.last_seq, EXCLUDED.last_seq), last_ts = EXCLUDED.last_ts, updated_at = now()
	`, s.run, int64(last.Seq), int64(last.Timestamp))

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LastSeq returns the highest event sequence stored for the run.
func (s *Store) LastSeq(ctx context.Context) (uint64, bool, error) {
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM runs WHERE name=$1`, s.run)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
