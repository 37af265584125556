package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/browse"
	"github.com/amishk599/jobfeed/internal/filter"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored listings interactively (TUI)",
	Long:  "Loads the stored listings, shows the source picker, then the split-pane view with the keyword filter applied.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	// Log output while the TUI runs corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := openStore(context.Background(), cfg, nil, silent)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	listings, err := browse.RunLoader("Loading stored listings", st.GetAll)
	if err != nil {
		return fmt.Errorf("loading listings: %w", err)
	}
	if len(listings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No listings stored yet. Run `jobfeed serve` or `jobfeed check` first.")
		return nil
	}

	kw := filter.NewKeywordFilter(cfg.Filters.HeadlineKeywords, cfg.Filters.Locations)
	counts := browse.CountBySource(listings)
	for {
		source, ok, err := browse.RunSourcePicker(counts)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if !ok {
			return nil
		}

		wantQuit, err := browse.Run(browse.FromSource(listings, source), kw)
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop back to the picker
	}
}
