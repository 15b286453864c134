package smtpd

import (
	"crypto/tls"
	"log/slog"
	"sync"
	"time"
)

// ServerConfig holds the immutable-after-construction configuration for a
// Server. TLS key material is the one mutable exception, held in a
// separate *SecureContext that can be hot-swapped at runtime.
type ServerConfig struct {
	Hostname string
	Banner   string
	LMTP     bool

	AuthMechanisms      []string
	AuthOptional        bool
	AllowInsecureAuth   bool
	AuthRequiredMessage string

	HideSTARTTLS            bool
	HideSIZE                bool
	HidePIPELINING          bool
	HideDSN                 bool
	HideENHANCEDSTATUSCODES bool
	HideREQUIRETLS          bool
	Hide8BITMIME            bool
	HideSMTPUTF8            bool

	// DisabledCommands holds command names (uppercased) that are treated
	// as unrecognized regardless of whether a handler exists for them.
	DisabledCommands map[string]bool

	MaxMessageSize int64
	MaxConnections int

	SocketTimeout time.Duration
	CloseTimeout  time.Duration

	// MaxUnauthenticatedCommands caps non-AUTH commands accepted before
	// authentication completes. 0 disables the limit.
	MaxUnauthenticatedCommands int

	XClientTrusted  bool
	XForwardTrusted bool

	// HeloResponseFormat is a two-verb fmt string: server name, then
	// reverse-resolved client hostname.
	HeloResponseFormat string

	EnableReverseDNS bool

	Logger    *slog.Logger
	Callbacks Callbacks
}

// DefaultServerConfig returns a ServerConfig with conservative defaults,
// matching the teacher's DefaultServerConfig idiom.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Hostname:                   "localhost",
		AuthRequiredMessage:        "Authentication required",
		MaxConnections:             0,
		SocketTimeout:              5 * time.Minute,
		CloseTimeout:               30 * time.Second,
		MaxUnauthenticatedCommands: 10,
		HeloResponseFormat:         "%s Nice to meet you, %s",
		EnableReverseDNS:           true,
		Logger:                     slog.Default(),
	}
}

// SubmissionConfig returns a ServerConfig tuned for mail submission (port
// 587): authentication is mandatory and only usable once STARTTLS has run.
func SubmissionConfig() ServerConfig {
	config := DefaultServerConfig()
	config.AuthMechanisms = []string{"PLAIN", "LOGIN"}
	config.AuthOptional = false
	config.AllowInsecureAuth = false
	return config
}

// SecureContext holds the server's current TLS certificate and supports
// hot rotation via Server.UpdateSecureContext: new implicit-TLS accepts
// and new STARTTLS upgrades read the latest value.
type SecureContext struct {
	mu   sync.RWMutex
	cert tls.Certificate
}

// NewSecureContext wraps a certificate for use by a Server.
func NewSecureContext(cert tls.Certificate) *SecureContext {
	return &SecureContext{cert: cert}
}

func (s *SecureContext) tlsConfig() *tls.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &tls.Config{Certificates: []tls.Certificate{s.cert}}
}

// Update replaces the certificate used for future handshakes.
func (s *SecureContext) Update(cert tls.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cert = cert
}

// AuthVerifier is handed to Callbacks.OnAuth so a single callback
// implementation can validate credentials the same way regardless of
// which SASL mechanism produced them: PLAIN/LOGIN close over the
// transmitted password, CRAM-MD5 closes over the mechanism's digest
// check, and XOAUTH2 closes over the bearer token. The callback never
// sees a password directly; it looks one up by identity and passes it to
// verify.
type AuthVerifier func(password string) bool

// RecipientResult is one entry of a per-recipient LMTP delivery outcome
// returned by Callbacks.OnData. Code/Message are used verbatim for a
// failing entry; a zero Code defaults to 450.
type RecipientResult struct {
	Recipient Path
	Code      SMTPCode
	Message   string
}

// Callbacks defines the embedding application's hooks into the protocol
// state machine. All are optional; returning an error (ideally a
// *CallbackError) rejects the corresponding command.
type Callbacks struct {
	OnListening func(addr string)
	OnClose     func()
	OnError     func(err error)

	// OnConnectEvent is the supervisor-level "connect" notification: fired
	// once per accepted connection, purely informational (no error
	// return). Distinct from OnConnect below, which runs per-connection
	// and can reject the connection.
	OnConnectEvent func(addr string)

	OnConnect    func(sess *Session) error
	OnSecure     func(sess *Session)
	OnDisconnect func(sess *Session)

	OnAuth func(sess *Session, mechanism, identity string, verify AuthVerifier) error

	OnMailFrom func(sess *Session, from Path, params PathParams) error
	OnRcptTo   func(sess *Session, to Path, params PathParams) error

	// OnData is invoked once the body stream has been fully received. The
	// embedding must read body to completion (it already is, by the time
	// this is called) before inspecting ByteLength/SizeExceeded. In LMTP
	// mode a non-nil result slice is used to emit one reply per recipient
	// in envelope order.
	OnData func(sess *Session, body *BodyStream) ([]RecipientResult, error)

	OnReset func(sess *Session)
}
