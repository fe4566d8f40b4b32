package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS history_lines (
    id          BIGSERIAL PRIMARY KEY,
    line        TEXT NOT NULL,
    observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps history in PostgreSQL.
//
// It uses a `history_lines` table, created by EnsureSchema:
//
//	CREATE TABLE history_lines (
//	    id          BIGSERIAL PRIMARY KEY,
//	    line        TEXT NOT NULL,
//	    observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "history-postgres"),
	}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating history_lines table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT line FROM history_lines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading history lines: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning history line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	if err := validateLines(lines); err != nil {
		return err
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		return insertLines(ctx, tx, lines, time.Now().UTC())
	})
}

// Rewrite replaces all rows in one transaction.
func (s *PostgresStore) Rewrite(ctx context.Context, lines []string) error {
	if err := validateLines(lines); err != nil {
		return err
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM history_lines`); err != nil {
			return fmt.Errorf("clearing history lines: %w", err)
		}
		return insertLines(ctx, tx, lines, time.Now().UTC())
	})
	if err != nil {
		return err
	}
	s.logger.Info("history rewritten", "lines", len(lines))
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, lines []string, at time.Time) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO history_lines (line, observed_at) VALUES ($1, $2)`)
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()
	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx, line, at); err != nil {
			return fmt.Errorf("inserting history line: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the postgres client is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}
