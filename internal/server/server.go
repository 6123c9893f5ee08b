package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/bridge"
	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/relay"
	"github.com/muurk/lightify/internal/store"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Listen      string // host:port
	CertPath    string // serve TLS when both CertPath and KeyPath are set
	KeyPath     string
	DefaultFade uint16 // used by state changes that carry no transition
}

// Bridge is the part of *bridge.Bridge the server exposes.
type Bridge interface {
	relay.Sender
	Refresh(ctx context.Context) error
	RequestLightStatus(ctx context.Context, address uint64) error
	Groups() []store.Group
	Lights() []store.Light
	Group(id uint16) (store.Group, bool)
	Light(address uint64) (store.Light, bool)
	OnUpdate(fn func(store.Update)) func()
	Stats() bridge.Stats
	Done() <-chan struct{}
}

// Server exposes one bridge over HTTP and WebSocket.
type Server struct {
	config    *Config
	bridge    Bridge
	hub       *Hub
	tlsConfig *tls.Config
	log       *zap.Logger
	http      *http.Server
}

// New creates a new Server instance
func New(config *Config, b Bridge) (*Server, error) {
	s := &Server{
		config: config,
		bridge: b,
		log:    logging.Named("server"),
	}
	s.hub = NewHub(b, s.log)

	if config.CertPath != "" || config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		TLSConfig:         s.tlsConfig,
	}
	return s, nil
}

// Handler returns the HTTP routes, wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("PUT /api/groups/{id}/state", s.handleSetGroupState)
	mux.HandleFunc("GET /api/lights", s.handleListLights)
	mux.HandleFunc("GET /api/lights/{address}", s.handleGetLight)
	mux.HandleFunc("PUT /api/lights/{address}/state", s.handleSetLightState)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return logRequests(mux)
}

// Start listens on the configured address and serves until ctx ends or the
// bridge disconnects.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx ends or the bridge disconnects.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	unsubscribe := s.bridge.OnUpdate(s.hub.Broadcast)
	defer unsubscribe()

	s.log.Info("Server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	var cause error
	select {
	case <-ctx.Done():
		s.log.Info("Shutdown requested, stopping server...")
	case <-s.bridge.Done():
		cause = relay.ErrBridgeDisconnected
		s.log.Warn("Bridge disconnected, stopping server...")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return cause
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return s.http.Close()
	}
	s.log.Info("All connections closed gracefully")
	return nil
}

// GetActiveConnections returns the number of connected WebSocket clients
func (s *Server) GetActiveConnections() int {
	return s.hub.ClientCount()
}
