// Package history persists observed phrases so the corpus survives restarts.
// Stores hold one phrase per line; on start the lines are replayed into the
// brain and, optionally, compacted down to the lines that still add
// something.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain"
	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

type Store interface {
	// Load returns every stored line in the order it was written.
	Load(ctx context.Context) ([]string, error)
	Append(ctx context.Context, lines ...string) error
	// Rewrite atomically replaces the stored lines.
	Rewrite(ctx context.Context, lines []string) error
	Close() error
}

// Restore replays the store into b. With compact set, lines that produced no
// newly indexed phrase are dropped from the store.
func Restore(ctx context.Context, store Store, b *brain.Brain, compact bool) (brain.BootstrapReport, error) {
	lines, err := store.Load(ctx)
	if err != nil {
		return brain.BootstrapReport{}, fmt.Errorf("loading history: %w", err)
	}
	report := b.Bootstrap(lines)
	if !compact || len(report.Kept) == len(lines) {
		return report, nil
	}
	if err := store.Rewrite(ctx, report.Kept); err != nil {
		return report, fmt.Errorf("compacting history: %w", err)
	}
	slog.Info("history compacted",
		"component", "history",
		"before", len(lines),
		"after", len(report.Kept),
	)
	return report, nil
}

func validateLines(lines []string) error {
	for _, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return fmt.Errorf("%w: history line contains a line break: %q", apperrors.ErrInvalidInput, line)
		}
	}
	return nil
}
