package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/history"
)

func newCompactCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Drop history lines that add no new phrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, _, closeHistory, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeHistory()

			b, err := brain.New(cfg.Brain)
			if err != nil {
				return err
			}
			report, err := history.Restore(ctx, store, b, !dryRun)
			if err != nil {
				return err
			}
			stats := b.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lines:        %d\n", report.Lines)
			fmt.Fprintf(out, "kept:         %d\n", len(report.Kept))
			fmt.Fprintf(out, "dropped:      %d\n", report.Lines-len(report.Kept))
			fmt.Fprintf(out, "phrases:      %d\n", stats.Phrases)
			fmt.Fprintf(out, "common words: %d\n", stats.CommonWords)
			if dryRun {
				fmt.Fprintln(out, "dry run: history left unchanged")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without rewriting history")
	return cmd
}
