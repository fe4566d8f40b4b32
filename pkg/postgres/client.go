// Package postgres holds the lib/pq connection pool used by the history
// backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

const connectTimeout = 5 * time.Second

type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the pool and fails unless the server answers a ping within
// connectTimeout (or ctx's deadline, whichever is first).
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging postgres at %s:%d: %w", apperrors.ErrUnavailable, cfg.Host, cfg.Port, err)
	}
	return &Client{
		db:     db,
		logger: slog.Default().With("component", "postgres", "database", cfg.Database),
	}, nil
}

func (c *Client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.db.Close()
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. A panic in fn rolls back before propagating.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.logger.Error("rollback failed", "error", rbErr, "cause", err)
		}
		if code := Code(err); code != "" {
			c.logger.Warn("transaction aborted", "sqlstate", code, "error", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Code returns the SQLSTATE of a server-side error, or "" for anything
// that did not come from the server.
func Code(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
