package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/logger"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServerConfig configures the API listener. TLS wins over H2C when both are set;
// with neither the server speaks HTTP/1.1 only.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	EnableTLS       bool
	TLSCertFile     string
	TLSKeyFile      string
	EnableH2C       bool
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	orDuration := func(d *time.Duration, def time.Duration) {
		if *d <= 0 {
			*d = def
		}
	}
	orDuration(&c.ReadTimeout, 30*time.Second)
	orDuration(&c.WriteTimeout, 30*time.Second)
	orDuration(&c.IdleTimeout, 2*time.Minute)
	orDuration(&c.ShutdownTimeout, 10*time.Second)
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = 1 << 20
	}
	return c
}

func (c ServerConfig) mode() string {
	switch {
	case c.EnableTLS:
		return "h2+tls"
	case c.EnableH2C:
		return "h2c"
	default:
		return "http/1.1"
	}
}

// Server runs the asset API on a single listener
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	listener   net.Listener
	router     *gin.Engine
	logger     logger.Logger
}

// NewServer builds the router from deps; nothing listens until Start
func NewServer(config ServerConfig, deps RouterDeps) *Server {
	return &Server{
		config: config.withDefaults(),
		router: SetupRouter(deps),
		logger: logger.New("http-server", ""),
	}
}

func h2Settings() *http2.Server {
	return &http2.Server{
		MaxConcurrentStreams: 250,
		MaxReadFrameSize:     1 << 20,
	}
}

// Start binds the listener and serves in the background. A ListenAddr with
// port 0 is resolved, and GetAddr reports the bound address afterwards.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	srv := &http.Server{
		Addr:           listener.Addr().String(),
		Handler:        s.router,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	mode := s.config.mode()
	serve := func() error { return srv.Serve(listener) }
	switch mode {
	case "h2+tls":
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"h2", "http/1.1"},
		}
		if err := http2.ConfigureServer(srv, h2Settings()); err != nil {
			listener.Close()
			return fmt.Errorf("failed to configure HTTP/2: %w", err)
		}
		serve = func() error { return srv.ServeTLS(listener, s.config.TLSCertFile, s.config.TLSKeyFile) }
	case "h2c":
		srv.Handler = h2c.NewHandler(s.router, h2Settings())
	}

	s.listener = listener
	s.httpServer = srv
	s.config.ListenAddr = srv.Addr

	s.logger.Infow("Serving asset API", "address", srv.Addr, "mode", mode)
	go func() {
		if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("API server stopped unexpectedly", "mode", mode, "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests within the shutdown timeout
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Infow("API server stopped", "address", s.config.ListenAddr)
	return nil
}

func (s *Server) GetAddr() string {
	return s.config.ListenAddr
}

func (s *Server) IsRunning() bool {
	return s.httpServer != nil && s.listener != nil
}

// Router exposes the configured engine for in-process tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
