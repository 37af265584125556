// Package server exposes listings to clients over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/amishk599/jobfeed/internal/broadcast"
	"github.com/amishk599/jobfeed/internal/letter"
	"github.com/amishk599/jobfeed/internal/model"
)

// DefaultOrigin is the dashboard origin allowed when none is configured.
const DefaultOrigin = "http://localhost:3000"

// LetterCreator runs the cover letter pipeline. *letter.Service satisfies it.
type LetterCreator interface {
	Create(ctx context.Context, listingID int64, email string) (letter.Result, error)
}

// TokenVerifier checks a bearer token and returns its subject.
// *auth.Issuer satisfies it.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Options configures the HTTP listener.
type Options struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// LetterTimeout bounds one create_letter request.
	LetterTimeout time.Duration
}

// Server serves the REST API, the websocket endpoint and the health check.
type Server struct {
	opts     Options
	store    model.ListingStore
	hub      *broadcast.Hub
	letters  LetterCreator
	verifier TokenVerifier
	logger   *slog.Logger

	router     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New wires a Server. letters may be nil (letter requests then fail with
// 503); verifier may be nil (no authentication).
func New(opts Options, store model.ListingStore, hub *broadcast.Hub, letters LetterCreator, verifier TokenVerifier, logger *slog.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{DefaultOrigin}
	}
	if opts.LetterTimeout <= 0 {
		opts.LetterTimeout = 2 * time.Minute
	}

	s := &Server{
		opts:     opts,
		store:    store,
		hub:      hub,
		letters:  letters,
		verifier: verifier,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger(logger), s.cors())
	s.setUpRoutes()

	// The websocket write pump sets its own deadline before every write, so
	// WriteTimeout only bounds REST responses in practice.
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *Server) setUpRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api", s.authenticate())
	api.GET("/listings", s.listListings)
	api.GET("/listings/:id", s.getListing)
	api.POST("/listings/:id/letter", s.createLetter)

	s.router.GET("/ws", s.authenticate(), s.serveWS)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until Shutdown. It returns nil after
// a graceful shutdown.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and disconnects all websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
