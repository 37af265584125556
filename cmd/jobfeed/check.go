package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/aggregator"
	"github.com/amishk599/jobfeed/internal/filter"
	"github.com/amishk599/jobfeed/internal/notifier"
	"github.com/amishk599/jobfeed/internal/poller"
	"github.com/amishk599/jobfeed/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll once, print listings, exit",
	Long:  "One-shot poll into an in-memory store: queries every enabled source, prints the listings found, exits. Nothing is persisted or pushed.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	logger.Info("check mode: nothing will be stored")

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	sources, registry, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore(registry, logger)
	pipeline := poller.NewPipeline(cfg.Search.Query, aggregator.New(sources, logger), mem, notifier.NewLogNotifier(logger), logger)
	fresh, err := pipeline.Poll(ctx)
	if err != nil {
		logger.Error("poll failed", "error", err)
		os.Exit(1)
	}

	kw := filter.NewKeywordFilter(cfg.Filters.HeadlineKeywords, cfg.Filters.Locations)
	matched := 0
	out := cmd.OutOrStdout()
	for _, l := range fresh {
		mark := " "
		if kw.Match(l) {
			mark = "*"
			matched++
		}
		fmt.Fprintf(out, "%s %-20s %-50s %s\n", mark, l.Source, truncate(l.Headline, 50), l.URL)
	}
	fmt.Fprintf(out, "\n%d listings, %d matching the keyword filter (*)\n", len(fresh), matched)

	logger.Info("check complete")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
