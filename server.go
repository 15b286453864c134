package smtpd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/veridian-labs/smtpd/dns"
	"github.com/veridian-labs/smtpd/internal/wire"
	"github.com/veridian-labs/smtpd/utils"
)

// Server owns the TCP listener, the set of live connections, and the TLS
// material new or upgraded connections use. One Server runs either a
// plain SMTP/submission dialect or LMTP, per ServerConfig.LMTP.
type Server struct {
	config        ServerConfig
	secureContext *SecureContext
	resolver      dns.Resolver

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	closing  bool
	closed   bool
	closeCh  chan struct{}
}

// NewServer creates a Server, filling in any zero-value ServerConfig
// fields with DefaultServerConfig's defaults.
func NewServer(config ServerConfig) *Server {
	def := DefaultServerConfig()
	if config.Hostname == "" {
		config.Hostname = def.Hostname
	}
	if config.AuthRequiredMessage == "" {
		config.AuthRequiredMessage = def.AuthRequiredMessage
	}
	if config.SocketTimeout == 0 {
		config.SocketTimeout = def.SocketTimeout
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = def.CloseTimeout
	}
	if config.MaxUnauthenticatedCommands == 0 {
		config.MaxUnauthenticatedCommands = def.MaxUnauthenticatedCommands
	}
	if config.HeloResponseFormat == "" {
		config.HeloResponseFormat = def.HeloResponseFormat
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}

	s := &Server{
		config:  config,
		conns:   make(map[*Conn]struct{}),
		closeCh: make(chan struct{}),
	}
	if config.EnableReverseDNS {
		s.resolver = dns.NewResolver(dns.ResolverConfig{})
	}
	return s
}

// UpdateSecureContext hot-swaps the TLS certificate used for future
// implicit-TLS accepts and STARTTLS upgrades.
func (s *Server) UpdateSecureContext(sc *SecureContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secureContext = sc
}

func (s *Server) currentSecureContext() *SecureContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secureContext
}

// ListenAndServe listens on addr and serves plain (or STARTTLS-upgradable)
// connections until Shutdown/Close, or the listener errors.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("smtpd: listen: %w", err)
	}
	return s.serve(ln, false)
}

// ListenAndServeTLS listens on addr and wraps every accepted connection in
// an implicit TLS handshake using the Server's current SecureContext,
// which must already be set via UpdateSecureContext.
func (s *Server) ListenAndServeTLS(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("smtpd: listen: %w", err)
	}
	return s.serve(ln, true)
}

// Serve runs the accept loop on an already-bound listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.serve(ln, false)
}

func (s *Server) serve(ln net.Listener, implicitTLS bool) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logf(slog.LevelInfo, "smtp server listening on %s", ln.Addr())
	s.logf(slog.LevelDebug, "intrinsic extensions: %s", describeExtensions(IntrinsicExtensions))
	s.logf(slog.LevelDebug, "configured opt-in extensions: %s", describeExtensions(s.activeOptInExtensions()))
	if cb := s.config.Callbacks.OnListening; cb != nil {
		cb(ln.Addr().String())
	}

	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return ErrServerClosed
			}
			if cb := s.config.Callbacks.OnError; cb != nil {
				cb(err)
			}
			return err
		}

		s.mu.Lock()
		overLimit := s.config.MaxConnections > 0 && len(s.conns) >= s.config.MaxConnections
		s.mu.Unlock()

		if overLimit {
			fmt.Fprintf(nc, "%d %s\r\n", CodeServiceUnavailable, "Too many connected clients")
			nc.Close()
			continue
		}

		secure := implicitTLS
		if implicitTLS {
			if sc := s.currentSecureContext(); sc != nil {
				nc = tls.Server(nc, sc.tlsConfig())
			} else {
				secure = false
			}
		}

		if cb := s.config.Callbacks.OnConnectEvent; cb != nil {
			cb(nc.RemoteAddr().String())
		}

		c := s.newConn(nc, secure)
		s.track(c)
		go c.serve()
	}
}

func (s *Server) newConn(nc net.Conn, secure bool) *Conn {
	c := &Conn{
		server:     s,
		id:         utils.GenerateID(),
		netConn:    nc,
		remoteAddr: nc.RemoteAddr(),
		localAddr:  nc.LocalAddr(),
		parser:     wire.New(maxCommandLineLength),
		xHeaders:   make(map[string]string),
		secure:     secure,
	}
	return c
}

func (s *Server) track(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	empty := len(s.conns) == 0 && s.closing
	s.mu.Unlock()
	if empty {
		s.finishClose()
	}
}

func (s *Server) finishClose() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.closeCh)
	if cb := s.config.Callbacks.OnClose; cb != nil {
		cb()
	}
}

// Shutdown stops accepting new connections, tells every live connection to
// reply 421 and close on its next line, and force-closes whatever remains
// once CloseTimeout elapses or ctx is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	ln := s.listener
	conns := s.liveConns()
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.closing.Store(true)
	}

	timeout := s.config.CloseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.closeCh:
		return nil
	case <-timer.C:
		s.mu.Lock()
		remaining := s.liveConns()
		s.mu.Unlock()
		for _, c := range remaining {
			c.reply(CodeServiceUnavailable, "", "Server shutting down")
			c.Close()
		}
		s.finishClose()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close immediately stops accepting connections and force-closes every
// live connection without waiting for CloseTimeout.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	conns := s.liveConns()
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	s.finishClose()
	return nil
}

func (s *Server) liveConns() []*Conn {
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	return conns
}

// activeOptInExtensions filters OptInExtensions down to the ones this
// Server's config actually advertises, for startup diagnostics.
func (s *Server) activeOptInExtensions() []ExtensionInfo {
	var active []ExtensionInfo
	for _, e := range OptInExtensions {
		switch e.Name {
		case ExtSTARTTLS:
			if s.secureContext != nil && !s.config.HideSTARTTLS {
				active = append(active, e)
			}
		case ExtAuth:
			if len(s.config.AuthMechanisms) > 0 {
				active = append(active, e)
			}
		case ExtSize:
			if !s.config.HideSIZE {
				active = append(active, e)
			}
		case ExtDSN:
			if !s.config.HideDSN {
				active = append(active, e)
			}
		}
	}
	return active
}

func (s *Server) logf(level slog.Level, format string, args ...any) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}
