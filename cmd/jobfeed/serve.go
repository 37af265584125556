package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobfeed/internal/aggregator"
	"github.com/amishk599/jobfeed/internal/auth"
	"github.com/amishk599/jobfeed/internal/broadcast"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/notifier"
	"github.com/amishk599/jobfeed/internal/poller"
	"github.com/amishk599/jobfeed/internal/scheduler"
	"github.com/amishk599/jobfeed/internal/server"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poller and the client server",
	Long:  "Start the poll scheduler and the HTTP/websocket server; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"query", cfg.Search.Query,
		"sources", len(cfg.EnabledSources()),
		"store", cfg.Store.Driver,
		"addr", cfg.Server.Addr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	sources, registry, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	hub := broadcast.NewHub(logger)
	extra, closeNotifiers, err := setupNotifiers(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up notifiers", "error", err)
		os.Exit(1)
	}
	defer closeNotifiers()
	sinks := append([]model.Notifier{hub}, extra...)

	pipeline := poller.NewPipeline(
		cfg.Search.Query,
		aggregator.New(sources, logger),
		st,
		notifier.NewMultiNotifier(logger, sinks...),
		logger,
	)
	sched := scheduler.NewScheduler(pipeline, cfg.PollingInterval, logger)

	var verifier server.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		logger.Info("token authentication enabled")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Options{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, st, hub, setupLetters(cfg, st, logger), verifier, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("serve error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
