// Package history keeps a Postgres record of every order that was queued
// for printing.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/orderprint/internal/order"
)

// Schema creates the printed_orders table.
const Schema = `
CREATE TABLE IF NOT EXISTS printed_orders (
    token       TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    message_id  TEXT NOT NULL,
    extractor   TEXT NOT NULL,
    customer    TEXT NOT NULL,
    order_type  TEXT NOT NULL,
    phone       TEXT NOT NULL DEFAULT '',
    total_items TEXT NOT NULL,
    estimate    TEXT NOT NULL DEFAULT '',
    note        TEXT NOT NULL DEFAULT '',
    items       JSONB NOT NULL,
    degraded    BOOLEAN NOT NULL,
    job_bytes   INTEGER NOT NULL,
    queued_at   TIMESTAMPTZ NOT NULL
)`

const insertOrder = `
INSERT INTO printed_orders (
    token, source, message_id, extractor, customer, order_type, phone,
    total_items, estimate, note, items, degraded, job_bytes, queued_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
ON CONFLICT (token) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes printed orders to Postgres.
type Store struct {
	db   execer
	pool *pgxpool.Pool
}

// NewPool parses dsn, configures pgxpool, verifies connectivity, and
// returns the pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `SET TIME ZONE 'UTC'`)
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: pool, pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the printed_orders table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	return nil
}

// Record inserts one printed order. Re-recording a token is a no-op.
func (s *Store) Record(ctx context.Context, p order.Printed) error {
	items, err := json.Marshal(p.Order.Items)
	if err != nil {
		return fmt.Errorf("history: encode items: %w", err)
	}
	queuedAt := p.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(ctx, insertOrder,
		p.Token,
		p.Source,
		p.MessageID,
		p.Extractor,
		p.Order.Customer,
		p.Order.Type,
		p.Order.Phone,
		p.Order.TotalItems,
		p.Order.Estimate,
		p.Order.Note,
		items,
		p.Order.Degraded(),
		len(p.Data),
		queuedAt,
	)
	if err != nil {
		return fmt.Errorf("history: insert %s: %w", p.Token, err)
	}
	return nil
}

// Close releases the pool, if the store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
