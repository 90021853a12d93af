package site

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ounjeeh/staples/internal/platform/httpx"
	"github.com/ounjeeh/staples/internal/platform/timeouts"
	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/inquiry"
	"github.com/ounjeeh/staples/internal/services/site/static"
)

// MediaPrefix is where bucket files are served.
const MediaPrefix = "/media/"

// Config defines the inputs for the site process.
type Config struct {
	HTTPAddr  string
	Source    *catalog.Source
	Inquiries *inquiry.Service
	// Relay is drained on shutdown so accepted inquiries are delivered.
	Relay   *inquiry.Relay
	Tracker *ImageTracker
	// Admin serves the hidden admin API. Nil disables it.
	Admin http.Handler
	// Media maps bucket names to file handlers served under MediaPrefix.
	Media  map[string]http.Handler
	Health func(context.Context) error
	Logger *zap.Logger
}

// Server hosts the public site and the hidden admin API.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	tracker    *ImageTracker
	relay      *inquiry.Relay
	logger     *zap.Logger
}

// NewHandler builds the site's HTTP handler.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog source is required")
	}
	if cfg.Inquiries == nil {
		return nil, errors.New("inquiry service is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("image tracker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{
		source:    cfg.Source,
		inquiries: cfg.Inquiries,
		tracker:   cfg.Tracker,
		health:    cfg.Health,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /products", h.handleProducts)
	mux.HandleFunc("GET /team", h.handleTeam)
	mux.HandleFunc("GET /inquiry", h.handleInquiryForm)
	mux.HandleFunc("POST /inquiry", h.handleInquirySubmit)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static.FS)))
	for name, files := range cfg.Media {
		prefix := MediaPrefix + name + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, files))
	}
	if cfg.Admin != nil {
		mux.Handle("/admin/", cfg.Admin)
	}

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(logger),
		httpx.RequestLogger(logger),
	), nil
}

// NewServer builds the site server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("build handler: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpAddr: cfg.HTTPAddr,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		tracker: cfg.Tracker,
		relay:   cfg.Relay,
		logger:  logger,
	}, nil
}

// ListenAndServe runs the HTTP server until ctx ends, then drains in-flight
// requests and pending webhook deliveries.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("site server is nil")
	}
	listener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.logger.Info("site listening", zap.String("addr", listener.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := s.relay.Wait(shutdownCtx); err != nil {
			s.logger.Warn("inquiry deliveries still pending at shutdown", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

// Close releases the image loaders held by the server.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.tracker != nil {
		s.tracker.Close()
	}
}
