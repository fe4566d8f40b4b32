package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/brain"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/history"
)

func newBabbleCmd() *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "babble",
		Short: "Print sentences generated from the stored history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Brain.Seed = seed
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
			if _, err := history.Restore(ctx, store, b, false); err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				sentence, err := b.Babble()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sentence)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of sentences")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}
