package smtpd

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veridian-labs/smtpd/internal/wire"
	"github.com/veridian-labs/smtpd/internal/xtext"
	"github.com/veridian-labs/smtpd/utils"
)

// Command identifies a parsed SMTP/LMTP verb, always uppercased.
type Command string

const (
	CmdHelo     Command = "HELO"
	CmdEhlo     Command = "EHLO"
	CmdLhlo     Command = "LHLO"
	CmdMail     Command = "MAIL"
	CmdRcpt     Command = "RCPT"
	CmdData     Command = "DATA"
	CmdRset     Command = "RSET"
	CmdNoop     Command = "NOOP"
	CmdQuit     Command = "QUIT"
	CmdVrfy     Command = "VRFY"
	CmdHelp     Command = "HELP"
	CmdAuth     Command = "AUTH"
	CmdStartTLS Command = "STARTTLS"
	CmdXClient  Command = "XCLIENT"
	CmdXForward Command = "XFORWARD"
	CmdWiz      Command = "WIZ"
	CmdShell    Command = "SHELL"
	CmdKill     Command = "KILL"
)

// maxCommandLineLength bounds the buffered command-mode tail; it is not
// part of ServerConfig because the spec's data model does not expose it
// as a tunable, unlike the teacher's MaxLineLength.
const maxCommandLineLength = 2048

const xHeaderUnavailable = "unavailable"

var httpRequestLine = regexp.MustCompile(`(?i)^(GET|POST|HEAD|PUT|DELETE|OPTIONS|CONNECT|TRACE|PATCH)\s+\S+\s+HTTP/\d\.\d`)

// Session is the read-only view of a connection handed to embedding
// callbacks.
type Session struct {
	ID               string
	Secure           bool
	ServerName       string
	RemoteAddr       net.Addr
	LocalAddr        net.Addr
	ClientHostname   string
	TransmissionType string
	TLSInfo          *tls.ConnectionState
	User             any
	Transaction      int
	Envelope         *Envelope
}

// BodyStream is the fully-received, dot-unstuffed DATA body handed to
// Callbacks.OnData. ByteLength and SizeExceeded reflect the wire parser's
// byte-count contract (§4.1): the count of unescaped bytes emitted.
type BodyStream struct {
	reader       *bytes.Reader
	raw          []byte
	byteLength   int64
	sizeExceeded bool
}

func newBodyReader(body []byte) *bytes.Reader {
	return bytes.NewReader(body)
}

func (b *BodyStream) Read(p []byte) (int, error) { return b.reader.Read(p) }
func (b *BodyStream) ByteLength() int64          { return b.byteLength }
func (b *BodyStream) SizeExceeded() bool         { return b.sizeExceeded }

// ParseHeaders splits the body at its header/body separator per
// ParseMessage, independent of the Read cursor.
func (b *BodyStream) ParseHeaders() (Headers, []byte) { return ParseMessage(b.raw) }

// Conn is one TCP or LMTP connection's protocol state machine. Except for
// closing/closed (set from Server.Shutdown on a different goroutine), all
// fields are owned by the single goroutine running serve(): reads are
// blocking and handler invocations (including embedding callbacks) run to
// completion before the next line is processed, which is what gives the
// spec's "processing" flag its natural single-flight behavior for free.
type Conn struct {
	server  *Server
	id      string
	netConn net.Conn

	remoteAddr     net.Addr
	localAddr      net.Addr
	clientHostname string

	ready     bool
	secure    bool
	upgrading bool

	closing        atomic.Bool
	closed         atomic.Bool
	closeRequested atomic.Bool

	parser *wire.Parser

	// nextHandler is the single-slot continuation for multi-step AUTH
	// exchanges (§4.4 rule 4).
	nextHandler func(line string)

	unauthCmds   int
	unknownCmds  int
	transactions int

	openingCommand    Command
	currentCommand    Command
	hostNameAppearsAs string
	xHeaders          map[string]string

	tlsState *tls.ConnectionState

	authenticated bool
	authMechanism string
	authIdentity  string
	user          any

	mailFromSet bool
	envelope    Envelope

	writeMu sync.Mutex
}

// transmissionType renders the five-position identifier
// "(E)(L?)SMTP(S?)(A?)" described in the GLOSSARY.
func (c *Conn) transmissionType() string {
	var b strings.Builder
	if c.openingCommand == CmdEhlo {
		b.WriteByte('E')
	}
	if c.server.config.LMTP {
		b.WriteByte('L')
	}
	b.WriteString("SMTP")
	if c.secure {
		b.WriteByte('S')
	}
	if c.authenticated {
		b.WriteByte('A')
	}
	return b.String()
}

func (c *Conn) session() *Session {
	return &Session{
		ID:               c.id,
		Secure:           c.secure,
		ServerName:       c.server.config.Hostname,
		RemoteAddr:       c.remoteAddr,
		LocalAddr:        c.localAddr,
		ClientHostname:   c.clientHostname,
		TransmissionType: c.transmissionType(),
		TLSInfo:          c.tlsState,
		User:             c.user,
		Transaction:      c.transactions,
		Envelope:         &c.envelope,
	}
}

func (c *Conn) resetEnvelope() {
	c.envelope.reset()
	c.mailFromSet = false
}

func (c *Conn) envelopeStarted() bool {
	return !c.envelope.From.IsNull() || c.mailFromSet || len(c.envelope.To) > 0
}

// errorResponse extracts an embedding's *CallbackError override, falling
// back to the phase's default code/enhanced-code/message otherwise.
func errorResponse(err error, defaultCode SMTPCode, defaultEC EnhancedCode, defaultMsg string) (SMTPCode, EnhancedCode, string) {
	var ce *CallbackError
	if errors.As(err, &ce) {
		code := ce.Code
		if code == 0 {
			code = defaultCode
		}
		ec := ce.EnhancedCode
		msg := ce.Message
		if msg == "" {
			msg = defaultMsg
		}
		return code, ec, msg
	}
	return defaultCode, defaultEC, defaultMsg
}

// invokeCallback runs fn, recovering a panic into a synthetic
// *CallbackError (451 4.0.0) and closing the connection, matching the
// teacher's middleware.Recovery idiom folded into the connection
// goroutine rather than a generic handler chain.
func (c *Conn) invokeCallback(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.server.logf(slog.LevelError, "panic in callback on %s: %v", c.id, r)
			err = &CallbackError{Code: CodeLocalError, EnhancedCode: ESCTempFailure, Message: "Internal server error"}
			c.Close()
		}
	}()
	return fn()
}

func (c *Conn) invokeVoidCallback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.server.logf(slog.LevelError, "panic in callback on %s: %v", c.id, r)
		}
	}()
	fn()
}

func (c *Conn) invokeDataCallback(fn func() ([]RecipientResult, error)) (results []RecipientResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.server.logf(slog.LevelError, "panic in onData callback on %s: %v", c.id, r)
			err = &CallbackError{Code: CodeLocalError, EnhancedCode: ESCTempFailure, Message: "Internal server error"}
			c.Close()
		}
	}()
	return fn()
}

// write sends a raw, already CRLF-terminated reply buffer.
func (c *Conn) write(s string) {
	if c.closed.Load() {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return
	}
	if _, err := c.netConn.Write([]byte(s)); err != nil {
		c.server.logf(slog.LevelDebug, "write error on %s: %v", c.id, err)
	}
}

// reply sends a single-line SMTP reply, attaching an enhanced status code
// per the three-tier rule in ResolveEnhancedCode unless suppressed.
func (c *Conn) reply(code SMTPCode, enhanced EnhancedCode, message string) {
	c.replyLines(code, enhanced, []string{message})
}

// replyLines sends a (possibly multi-line) SMTP reply using the
// conventional "NNN-" / "NNN " continuation markers. A 421 code schedules
// an asynchronous close once the reply drains.
func (c *Conn) replyLines(code SMTPCode, enhanced EnhancedCode, lines []string) {
	ec := ResolveEnhancedCode(code, enhanced)
	if hideEnhancedStatusCode(c.server.config.HideENHANCEDSTATUSCODES, code, c.currentCommand) {
		ec = ""
	}
	var b strings.Builder
	for i, line := range lines {
		sep := "-"
		if i == len(lines)-1 {
			sep = " "
		}
		if ec != "" {
			fmt.Fprintf(&b, "%d%s%s %s\r\n", code, sep, ec, line)
		} else {
			fmt.Fprintf(&b, "%d%s%s\r\n", code, sep, line)
		}
	}
	c.write(b.String())
	if code == CodeServiceUnavailable {
		c.closeRequested.Store(true)
	}
}

// Close closes the underlying socket and the wire parser; safe to call
// more than once or concurrently with the connection's own goroutine.
func (c *Conn) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.parser.Close()
	c.netConn.Close()
}

// resolveClientHostname sets clientHostname to the reverse-resolved PTR
// name, falling back to the bracketed IP literal, with a 1.5s budget.
func (c *Conn) resolveClientHostname() {
	c.clientHostname = fmt.Sprintf("[%s]", hostFromAddr(c.remoteAddr))
	if !c.server.config.EnableReverseDNS || c.server.resolver == nil {
		return
	}
	ip, err := utils.GetIPFromAddr(c.remoteAddr)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	result, err := c.server.resolver.LookupAddr(ctx, ip)
	if err != nil || len(result.Records) == 0 {
		return
	}
	c.clientHostname = strings.TrimSuffix(result.Records[0], ".")
}

func hostFromAddr(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// init runs the connection's startup sequence: the 100ms early-talker
// delay, reverse-DNS resolution, onConnect/onSecure, and the greeting.
func (c *Conn) init() {
	time.Sleep(100 * time.Millisecond)
	c.resolveClientHostname()

	if cb := c.server.config.Callbacks.OnConnect; cb != nil {
		if err := c.invokeCallback(func() error { return cb(c.session()) }); err != nil {
			code, ec, msg := errorResponse(err, CodeTransactionFailed, ESCPermFailure, "Connection rejected")
			c.reply(code, ec, msg)
			c.Close()
			return
		}
	}
	if c.secure {
		if cb := c.server.config.Callbacks.OnSecure; cb != nil {
			c.invokeVoidCallback(func() { cb(c.session()) })
		}
	}

	c.ready = true
	greeting := fmt.Sprintf("%s %s", c.server.config.Hostname, c.transmissionType())
	if c.server.config.Banner != "" {
		greeting += " " + c.server.config.Banner
	}
	c.reply(CodeServiceReady, "", greeting)
}

// serve is the connection's single goroutine: blocking reads, fed through
// the wire parser, with every produced line run through processLine
// before the next read — this is the entirety of the "serialized command
// processing" requirement, since there is no second goroutine to race
// against.
func (c *Conn) serve() {
	defer c.cleanup()

	c.init()
	if c.closed.Load() {
		return
	}

	buf := make([]byte, 4096)
	for {
		if c.closeRequested.Load() {
			c.Close()
			return
		}
		if st := c.server.config.SocketTimeout; st > 0 {
			c.netConn.SetReadDeadline(time.Now().Add(st))
		}
		n, err := c.netConn.Read(buf)
		if n > 0 {
			c.feed(append([]byte(nil), buf[:n]...))
		}
		if c.closed.Load() || c.closeRequested.Load() {
			c.Close()
			return
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.reply(CodeServiceUnavailable, "", "Timeout - closing connection")
			}
			for _, line := range c.parser.Flush() {
				c.processLine(line)
			}
			return
		}
	}
}

// feed hands a chunk to the wire parser and runs every resulting command
// line through processLine. If a DATA command switches the parser to data
// mode partway through this chunk, any lines the parser had already split
// off the same chunk are actually body content it could not have known
// about yet; they are replayed through FeedDataMode with their original
// line terminator restored.
func (c *Conn) feed(chunk []byte) {
	if c.closed.Load() {
		return
	}
	if c.parser.DataMode() {
		c.parser.FeedDataMode(chunk)
		return
	}

	lines, err := c.parser.FeedCommandMode(chunk)
	for i, line := range lines {
		if c.closed.Load() {
			return
		}
		c.processLine(line)
		if c.parser.DataMode() {
			for _, rest := range lines[i+1:] {
				if c.closed.Load() || !c.parser.DataMode() {
					break
				}
				c.parser.FeedDataMode([]byte(rest + "\r\n"))
			}
			return
		}
	}
	if err != nil {
		c.reply(CodeSyntaxError, "", "Line too long")
	}
}

func (c *Conn) cleanup() {
	c.Close()
	if cb := c.server.config.Callbacks.OnDisconnect; cb != nil {
		c.invokeVoidCallback(func() { cb(c.session()) })
	}
	c.server.untrack(c)
}

func splitCommand(line string) (verb, args string) {
	before, after, found := strings.Cut(line, " ")
	if !found {
		return before, ""
	}
	return before, strings.TrimSpace(after)
}

// processLine applies the eleven ordered rules of §4.4 to a single
// already-unstuffed command line.
func (c *Conn) processLine(line string) {
	// 1.
	if !c.ready {
		c.reply(CodeServiceUnavailable, "", "You talk too soon")
		return
	}
	// 2.
	if httpRequestLine.MatchString(line) {
		c.server.logf(slog.LevelWarn, "possible cross-site request attempt from %s: %q", c.remoteAddr, line)
		c.reply(CodeServiceUnavailable, "", "HTTP requests not allowed")
		return
	}
	// 3.
	if c.upgrading {
		return
	}
	// 4.
	if h := c.nextHandler; h != nil {
		c.nextHandler = nil
		h(line)
		return
	}
	// 5.
	verb, args := splitCommand(line)
	cmd := Command(strings.ToUpper(verb))
	if c.closing.Load() {
		c.reply(CodeServiceUnavailable, "", "Server shutting down")
		return
	}
	// 6.
	if c.server.config.LMTP {
		if cmd == CmdHelo || cmd == CmdEhlo {
			c.reply(CodeCommandUnrecognized, "", "HELO/EHLO not allowed in LMTP mode, use LHLO")
			return
		}
		if cmd == CmdLhlo {
			cmd = CmdEhlo
		}
	}
	if cmd == CmdHelo || cmd == CmdEhlo {
		c.openingCommand = cmd
	}
	// 7.
	handler := c.handlerFor(cmd)
	if handler == nil || c.server.config.DisabledCommands[string(cmd)] {
		c.unknownCmds++
		if c.unknownCmds >= 10 {
			c.reply(CodeServiceUnavailable, "", "too many unrecognized commands")
			return
		}
		c.reply(CodeCommandUnrecognized, "", "command not recognized")
		return
	}
	// 8.
	authConfigured := len(c.server.config.AuthMechanisms) > 0
	if !c.authenticated && authConfigured && !c.server.config.AuthOptional && cmd != CmdAuth {
		max := c.server.config.MaxUnauthenticatedCommands
		if max > 0 {
			c.unauthCmds++
			if c.unauthCmds >= max {
				c.reply(CodeServiceUnavailable, "", "too many unauthenticated commands")
				return
			}
		}
	}
	// 9.
	if c.hostNameAppearsAs == "" && (cmd == CmdMail || cmd == CmdRcpt || cmd == CmdData || cmd == CmdAuth) {
		greet := "HELO/EHLO"
		if c.server.config.LMTP {
			greet = "LHLO"
		}
		c.reply(CodeBadSequence, "", fmt.Sprintf("Error: send %s first", greet))
		return
	}
	// 10.
	if authConfigured && !c.server.config.AuthOptional && !c.authenticated &&
		(cmd == CmdMail || cmd == CmdRcpt || cmd == CmdData) {
		c.reply(CodeAuthRequired, ESCSecurityError, c.server.config.AuthRequiredMessage)
		return
	}
	// 11.
	c.currentCommand = cmd
	handler(c, args)
}

func (c *Conn) handlerFor(cmd Command) func(*Conn, string) {
	switch cmd {
	case CmdHelo:
		return (*Conn).handleHelo
	case CmdEhlo:
		return (*Conn).handleEhlo
	case CmdStartTLS:
		return (*Conn).handleStartTLS
	case CmdAuth:
		return (*Conn).handleAuth
	case CmdMail:
		return (*Conn).handleMail
	case CmdRcpt:
		return (*Conn).handleRcpt
	case CmdData:
		return (*Conn).handleData
	case CmdRset:
		return (*Conn).handleRset
	case CmdNoop:
		return (*Conn).handleNoop
	case CmdQuit:
		return (*Conn).handleQuit
	case CmdVrfy:
		return (*Conn).handleVrfy
	case CmdHelp:
		return (*Conn).handleHelp
	case CmdXClient:
		if c.server.config.XClientTrusted && !c.envelopeStarted() {
			return (*Conn).handleXClient
		}
		return nil
	case CmdXForward:
		if c.server.config.XForwardTrusted {
			return (*Conn).handleXForward
		}
		return nil
	case CmdWiz, CmdShell, CmdKill:
		return (*Conn).handleSendmailStub
	}
	return nil
}

func (c *Conn) handleHelo(args string) {
	if args == "" || strings.ContainsAny(args, " \t") {
		c.reply(CodeSyntaxError, "", "Syntax: HELO hostname")
		return
	}
	c.hostNameAppearsAs = strings.ToLower(args)
	c.resetEnvelope()
	c.reply(CodeOK, "", fmt.Sprintf(c.server.config.HeloResponseFormat, c.server.config.Hostname, c.clientHostname))
}

func (c *Conn) handleEhlo(args string) {
	if args == "" || strings.ContainsAny(args, " \t") {
		c.reply(CodeSyntaxError, "", "Syntax: EHLO hostname")
		return
	}
	c.hostNameAppearsAs = strings.ToLower(args)
	c.resetEnvelope()
	lines := append([]string{
		fmt.Sprintf(c.server.config.HeloResponseFormat, c.server.config.Hostname, c.clientHostname),
	}, c.buildCapabilities()...)
	c.replyLines(CodeOK, "", lines)
}

func (c *Conn) buildCapabilities() []string {
	cfg := &c.server.config
	var caps []string
	if !cfg.HidePIPELINING {
		caps = append(caps, "PIPELINING")
	}
	if !cfg.Hide8BITMIME {
		caps = append(caps, "8BITMIME")
	}
	if !cfg.HideSMTPUTF8 {
		caps = append(caps, "SMTPUTF8")
	}
	if !cfg.HideENHANCEDSTATUSCODES {
		caps = append(caps, "ENHANCEDSTATUSCODES")
	}
	if !cfg.HideDSN {
		caps = append(caps, "DSN")
	}
	if len(cfg.AuthMechanisms) > 0 && !c.authenticated {
		caps = append(caps, "AUTH "+strings.Join(cfg.AuthMechanisms, " "))
	}
	if !cfg.HideSTARTTLS && !c.secure {
		caps = append(caps, "STARTTLS")
	}
	if !cfg.HideREQUIRETLS && c.secure {
		caps = append(caps, "REQUIRETLS")
	}
	if !cfg.HideSIZE {
		if cfg.MaxMessageSize > 0 {
			caps = append(caps, fmt.Sprintf("SIZE %d", cfg.MaxMessageSize))
		} else {
			caps = append(caps, "SIZE")
		}
	}
	if cfg.XClientTrusted {
		caps = append(caps, "XCLIENT NAME ADDR PORT PROTO HELO LOGIN")
	}
	if cfg.XForwardTrusted {
		caps = append(caps, "XFORWARD NAME ADDR PORT PROTO HELO IDENT SOURCE")
	}
	return caps
}

func (c *Conn) handleStartTLS(args string) {
	if c.secure {
		c.reply(CodeBadSequence, "", "Already running in TLS")
		return
	}
	sc := c.server.currentSecureContext()
	if sc == nil {
		c.reply(CodeCommandNotImplemented, "", "TLS not available")
		return
	}
	c.reply(CodeServiceReady, "", "Ready to start TLS")

	c.upgrading = true
	tlsConn := tls.Server(c.netConn, sc.tlsConfig())
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		c.server.logf(slog.LevelWarn, "TLS handshake failed for %s: %v", c.remoteAddr, err)
		c.Close()
		return
	}

	c.netConn = tlsConn
	state := tlsConn.ConnectionState()
	c.tlsState = &state
	c.secure = true
	c.upgrading = false
	// RFC 3207: discard all prior protocol state, including any stray
	// buffered plaintext the client pipelined after STARTTLS.
	c.parser = wire.New(maxCommandLineLength)
	c.openingCommand = ""
	c.hostNameAppearsAs = ""
	c.authenticated = false
	c.authMechanism = ""
	c.authIdentity = ""
	c.resetEnvelope()

	if cb := c.server.config.Callbacks.OnSecure; cb != nil {
		c.invokeVoidCallback(func() { cb(c.session()) })
	}
}

func (c *Conn) handleRset(args string) {
	c.resetEnvelope()
	if cb := c.server.config.Callbacks.OnReset; cb != nil {
		c.invokeVoidCallback(func() { cb(c.session()) })
	}
	c.reply(CodeOK, "", "Flushed")
}

func (c *Conn) handleNoop(args string) {
	c.reply(CodeOK, "", "OK")
}

func (c *Conn) handleQuit(args string) {
	c.reply(CodeServiceClosing, "", "Bye")
	c.closeRequested.Store(true)
}

func (c *Conn) handleVrfy(args string) {
	c.reply(CodeCannotVRFY, "", "Try to send something. No promises though")
}

func (c *Conn) handleHelp(args string) {
	c.reply(CodeHelpMessage, "", "See RFC 5321 for details")
}

func (c *Conn) handleSendmailStub(args string) {
	c.reply(CodeCommandNotImplemented, "", "Unimplemented")
}

var xclientKeys = map[string]bool{"NAME": true, "ADDR": true, "PORT": true, "PROTO": true, "HELO": true, "LOGIN": true}
var xforwardKeys = map[string]bool{"NAME": true, "ADDR": true, "PORT": true, "PROTO": true, "HELO": true, "IDENT": true, "SOURCE": true}

func parseXParams(args string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(args) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		out[strings.ToUpper(key)] = xtext.Decode(value)
	}
	return out
}

// applyXHeaders records xtext-decoded KEY=VALUE pairs restricted to
// allowed, storing the unavailable sentinel for "[UNAVAILABLE]"/
// "[TEMPUNAVAIL]" values. ADDR rewrites the connection's remote address
// (recording the original under "ADDR:DEFAULT"); NAME rewrites the
// client hostname; LOGIN (XCLIENT only) runs onAuth with method
// "XCLIENT".
func (c *Conn) applyXHeaders(args string, allowed map[string]bool, allowLogin bool) {
	for key, val := range parseXParams(args) {
		if !allowed[key] {
			continue
		}
		if val == "[UNAVAILABLE]" || val == "[TEMPUNAVAIL]" {
			c.xHeaders[key] = xHeaderUnavailable
			continue
		}
		c.xHeaders[key] = val
		switch key {
		case "ADDR":
			c.xHeaders["ADDR:DEFAULT"] = c.remoteAddr.String()
			if ip := net.ParseIP(val); ip != nil {
				c.remoteAddr = &net.IPAddr{IP: ip}
			}
		case "NAME":
			c.clientHostname = val
		case "LOGIN":
			if allowLogin {
				if cb := c.server.config.Callbacks.OnAuth; cb != nil {
					identity := val
					c.invokeCallback(func() error {
						return cb(c.session(), "XCLIENT", identity, func(string) bool { return true })
					})
				}
			}
		}
	}
}

func (c *Conn) handleXClient(args string) {
	c.applyXHeaders(args, xclientKeys, true)
	c.reply(CodeServiceReady, "", fmt.Sprintf("%s %s", c.server.config.Hostname, c.transmissionType()))
}

func (c *Conn) handleXForward(args string) {
	c.applyXHeaders(args, xforwardKeys, false)
	c.reply(CodeOK, "", "Ok")
}
