// Package webproxy implements a forward HTTP proxy that relays GET
// requests to origin servers and caches their responses in memory.
package webproxy

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/webcache/webproxy/cache"
)

type Config struct {
	// Port to listen on, all interfaces.
	Port int
	// Storage for cache entries.
	Cache cache.CacheProvider
	// Logger to use. A disabled logger is used if nil.
	Logger *zerolog.Logger
	// Freshness lifetime for responses without explicit expiry.
	DefaultMaxAge time.Duration
	// Bound on establishing origin connections.
	DialTimeout time.Duration
	// Bound on receiving the complete origin response.
	ResponseTimeout time.Duration
}

// Server accepts client connections and runs one proxy session per
// connection. The cache is the only state shared between sessions.
type Server struct {
	port          int
	cache         cache.CacheProvider
	fetcher       Fetcher
	defaultMaxAge time.Duration
	log           zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewServer(config Config) *Server {
	var logger zerolog.Logger
	if config.Logger != nil {
		logger = *config.Logger
	} else {
		logger = zerolog.Nop()
	}
	return &Server{
		port:  config.Port,
		cache: config.Cache,
		fetcher: Fetcher{
			DialTimeout:     config.DialTimeout,
			ResponseTimeout: config.ResponseTimeout,
		},
		defaultMaxAge: config.DefaultMaxAge,
		log:           logger,
	}
}

// ListenAndServe binds the configured port and serves until Shutdown.
// A bind failure is returned immediately so the caller can exit with a
// diagnostic.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until the listener is closed, starting
// one independent session goroutine per connection.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	s.log.Info().Msgf("Proxy listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isClosed() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		sess := &session{
			conn:          conn,
			cache:         s.cache,
			fetcher:       &s.fetcher,
			defaultMaxAge: s.defaultMaxAge,
			log:           s.log.With().Str("client", conn.RemoteAddr().String()).Logger(),
		}
		go sess.serve()
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown closes the listener and stops accepting connections.
// Sessions already running finish on their own.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
