// Package postgres stores lead documents as JSONB rows in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "lead_documents"

// Config controls the Postgres connection pool used for lead documents.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// DocumentStore appends lead documents to a single table; the collection
// is a column.
type DocumentStore struct {
	pool  pool
	table string
	idGen lead.IDGenerator
}

// NewDocumentStore connects a pool using cfg.
func NewDocumentStore(ctx context.Context, cfg Config, idGen lead.IDGenerator) (*DocumentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewDocumentStoreWithPool(p, cfg.Table, idGen)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewDocumentStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewDocumentStoreWithPool(p pool, table string, idGen lead.IDGenerator) (*DocumentStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DocumentStore{pool: p, table: table, idGen: idGen}, nil
}

// Migrate creates the document table and its email lookup index.
func (s *DocumentStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          text PRIMARY KEY,
	collection  text NOT NULL,
	kind        text NOT NULL,
	source      text NOT NULL,
	email       text NOT NULL,
	document    jsonb NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_email_idx ON %[1]s (collection, lower(email));`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return classify("migrate", err)
	}
	return nil
}

// Append inserts doc and returns the row id and server-assigned timestamp.
func (s *DocumentStore) Append(ctx context.Context, doc lead.Document) (lead.Receipt, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return lead.Receipt{}, fmt.Errorf("generate document id: %w", err)
	}
	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return lead.Receipt{}, &lead.WriteError{Code: "encode", Err: fmt.Errorf("marshal document: %w", err)}
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, collection, kind, source, email, document)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`, s.table)

	var receipt lead.Receipt
	row := s.pool.QueryRow(ctx, query, id, doc.Collection, string(doc.Kind), doc.Source, doc.Email, body)
	if err := row.Scan(&receipt.ID, &receipt.CreatedAt); err != nil {
		return lead.Receipt{}, classify("insert document", err)
	}
	receipt.CreatedAt = receipt.CreatedAt.UTC()
	return receipt, nil
}

// EmailExists reports whether collection already has a row for email.
func (s *DocumentStore) EmailExists(ctx context.Context, collection, email string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE collection = $1 AND lower(email) = lower($2))`,
		s.table,
	)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, collection, email).Scan(&exists); err != nil {
		return false, classify("lookup email", err)
	}
	return exists, nil
}

// Ready pings the pool.
func (s *DocumentStore) Ready(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping postgres: %v", lead.ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *DocumentStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// classify maps a driver error onto the lead error contract. Server errors
// that are not about connectivity or capacity become a *lead.WriteError
// carrying the SQLSTATE; everything else means the database is unreachable.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && !unavailableState(pgErr.Code) {
		return &lead.WriteError{Code: pgErr.Code, Err: fmt.Errorf("%s: %w", op, err)}
	}
	return fmt.Errorf("%w: %s: %v", lead.ErrStorageUnavailable, op, err)
}

// unavailableState reports SQLSTATEs for connection exceptions (08),
// insufficient resources (53) and operator intervention (57P0x).
func unavailableState(code string) bool {
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") || strings.HasPrefix(code, "57P0")
}
