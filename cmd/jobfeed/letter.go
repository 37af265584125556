package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

var letterCmd = &cobra.Command{
	Use:   "letter <listing-id> <email>",
	Short: "Generate a cover letter for a stored listing and email it",
	Args:  cobra.ExactArgs(2),
	RunE:  runLetter,
}

func init() {
	rootCmd.AddCommand(letterCmd)
}

func runLetter(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid listing id %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	res, err := setupLetters(cfg, st, logger).Create(ctx, id, args[1])
	if err != nil {
		return fmt.Errorf("create letter: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "letter for listing %d sent to %s (saved to %s)\n", res.ListingID, res.Recipient, res.Path)
	return nil
}
