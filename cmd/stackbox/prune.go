package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/core"
	"github.com/jmylchreest/stackbox/internal/store"
)

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old widgets from the history",
	Long: `Remove closed widgets from the history. Widgets still on screen are
always kept.

stackboxd prunes on its own when [history] schedule is set in its config.

Examples:
  # Remove widgets older than 7 days
  stackbox prune --older-than 7d

  # Keep only the 100 most recent widgets
  stackbox prune --keep 100

  # Preview what would be removed
  stackbox prune --older-than 48h --dry-run`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove widgets older than this duration (e.g., 48h, 7d, 1w)")
	pruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep the N most recent widgets regardless of age")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show how many widgets would be removed without removing them")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep == 0 {
		return fmt.Errorf("specify --older-than or --keep")
	}
	olderThan, err := core.ParseDuration(pruneOpts.olderThan)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	if pruneOpts.dryRun {
		// The read-only store has no persistence, so pruning it only counts.
		s, _, err := openHistory()
		if err != nil {
			return err
		}
		n, err := s.Prune(olderThan, pruneOpts.keep)
		if err != nil {
			return err
		}
		fmt.Printf("Would remove %d widget(s)\n", n)
		return nil
	}

	path, err := historyPath()
	if err != nil {
		return err
	}
	persistence, err := store.NewJSONLPersistence(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	s := store.NewStore(persistence)
	defer func() { _ = s.Close() }()
	if err := s.Hydrate(); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	n, err := s.Prune(olderThan, pruneOpts.keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	if n == 0 {
		fmt.Println("No widgets to remove")
		return nil
	}
	fmt.Printf("Removed %d widget(s)\n", n)
	return nil
}
