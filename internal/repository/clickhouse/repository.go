// Package clickhouse persists retarget audit results in ClickHouse.
package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records repository operation outcomes.
	Metrics interface {
		Observe(operation string, network model.Network, err error, started time.Time)
	}

	// Conn is the part of clickhouse.Conn the repository uses.
	Conn interface {
		PrepareBatch(ctx context.Context, query string) (Batch, error)
		Query(ctx context.Context, query string, args ...any) (Rows, error)
		Close() error
	}

	// Batch is a prepared insert.
	Batch interface {
		Append(v ...any) error
		Send() error
	}

	// Rows is a query result cursor.
	Rows interface {
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}
)

// Repository reads and writes the retarget_audit table.
type Repository struct {
	conn    Conn
	metrics Metrics
}

// NewRepository opens a connection described by dsn.
func NewRepository(dsn string, metrics Metrics) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}

	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	return &Repository{conn: driverConn{conn: conn}, metrics: metrics}, nil
}

// Close closes the underlying connection.
func (r *Repository) Close() error {
	return r.conn.Close()
}

type driverConn struct {
	conn clickhouse.Conn
}

func (c driverConn) PrepareBatch(ctx context.Context, query string) (Batch, error) {
	return c.conn.PrepareBatch(ctx, query)
}

func (c driverConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

func (c driverConn) Close() error {
	return c.conn.Close()
}

func firstNetwork(results []model.AuditResult) model.Network {
	if len(results) == 0 {
		return ""
	}
	return results[0].Network
}
