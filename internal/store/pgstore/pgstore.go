// Package pgstore implements core.Store on PostgreSQL using pgx.
//
// Records of every type share one table. Typed fields are stored as a
// jsonb document; the identifier is duplicated into its own column so
// UNIQUE(record_type, identifier) enforces uniqueness even when two
// imports race past the service's duplicate check.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/idcards/internal/core"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS id_records (
	id          uuid PRIMARY KEY,
	import_id   uuid NOT NULL,
	record_type text NOT NULL,
	identifier  text NOT NULL,
	fields      jsonb NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT id_records_type_identifier_unique UNIQUE (record_type, identifier)
);

CREATE INDEX IF NOT EXISTS id_records_type_created_idx
	ON id_records (record_type, created_at DESC);

CREATE TABLE IF NOT EXISTS import_batches (
	id          uuid PRIMARY KEY,
	record_type text NOT NULL,
	file_name   text NOT NULL,
	inserted    integer NOT NULL,
	skipped     integer NOT NULL,
	errors      integer NOT NULL,
	duration_ms bigint NOT NULL,
	created_at  timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS import_batches_type_created_idx
	ON import_batches (record_type, created_at DESC);
`

var recordColumns = []string{"id", "import_id", "record_type", "identifier", "fields", "created_at"}

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store is a core.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New wraps an open pool. Call Migrate before first use on a fresh database.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

var _ core.Store = (*Store)(nil)

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ExistingIdentifiers implements core.Store.
func (s *Store) ExistingIdentifiers(ctx context.Context, rt core.RecordType, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT identifier FROM id_records WHERE record_type = $1 AND identifier = ANY($2)`,
		string(rt), ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query identifiers: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan identifiers: %w", err)
	}
	return found, nil
}

// InsertBatch implements core.Store. The batch is copied inside one
// transaction, so a unique violation rolls back the whole batch.
func (s *Store) InsertBatch(ctx context.Context, rt core.RecordType, importID uuid.UUID, recs []core.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	rows := make([][]any, len(recs))
	for i, r := range recs {
		doc, err := json.Marshal(r.Strings())
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", rt, r.Identifier, err)
		}
		rows[i] = []any{uuid.New(), importID, string(rt), r.Identifier, doc, now}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"id_records"}, recordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, describeInsertError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int(n), nil
}

// describeInsertError names the conflicting key for unique violations.
func describeInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("duplicate key (%s): %w", pgErr.Detail, err)
	}
	return fmt.Errorf("copy records: %w", err)
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, rt core.RecordType, limit, offset int) ([]core.StoredRecord, int64, error) {
	total, err := s.Count(ctx, rt)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, import_id, record_type, identifier, fields, created_at
		FROM id_records
		WHERE record_type = $1
		ORDER BY created_at DESC, identifier DESC
		LIMIT $2 OFFSET $3`,
		string(rt), limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s records: %w", rt, err)
	}

	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s records: %w", rt, err)
	}
	return out, total, nil
}

func scanRecord(row pgx.CollectableRow) (core.StoredRecord, error) {
	var (
		r   core.StoredRecord
		rt  string
		doc []byte
	)
	if err := row.Scan(&r.ID, &r.ImportID, &rt, &r.Identifier, &doc, &r.CreatedAt); err != nil {
		return r, err
	}
	r.RecordType = core.RecordType(rt)
	if err := json.Unmarshal(doc, &r.Fields); err != nil {
		return r, fmt.Errorf("decode fields of %s: %w", r.Identifier, err)
	}
	return r, nil
}

// Count implements core.Store.
func (s *Store) Count(ctx context.Context, rt core.RecordType) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM id_records WHERE record_type = $1`, string(rt),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s records: %w", rt, err)
	}
	return n, nil
}

// RecordImport implements core.Store.
func (s *Store) RecordImport(ctx context.Context, b core.ImportBatch) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_batches (id, record_type, file_name, inserted, skipped, errors, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			inserted = EXCLUDED.inserted,
			skipped = EXCLUDED.skipped,
			errors = EXCLUDED.errors,
			duration_ms = EXCLUDED.duration_ms`,
		b.ID, string(b.RecordType), b.FileName, b.Inserted, b.Skipped, b.Errors, b.DurationMs, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record import %s: %w", b.ID, err)
	}
	return nil
}

// ListImports implements core.Store.
func (s *Store) ListImports(ctx context.Context, rt core.RecordType, limit int) ([]core.ImportBatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, record_type, file_name, inserted, skipped, errors, duration_ms, created_at
		FROM import_batches
		WHERE $1 = '' OR record_type = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		string(rt), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s imports: %w", rt, err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ImportBatch, error) {
		var (
			b        core.ImportBatch
			typeName string
		)
		err := row.Scan(&b.ID, &typeName, &b.FileName, &b.Inserted, &b.Skipped, &b.Errors, &b.DurationMs, &b.CreatedAt)
		b.RecordType = core.RecordType(typeName)
		return b, err
	})
}

// Ping implements core.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
