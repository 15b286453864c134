package smtpd

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// testClient is a simple SMTP client for integration testing.
type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
}

func newTestClient(t *testing.T, addr string) *testClient {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to connect to server: %v", err)
	}
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &testClient{conn: conn, reader: bufio.NewReader(conn), t: t}
}

func (c *testClient) close() { c.conn.Close() }

func (c *testClient) send(format string, args ...any) {
	cmd := fmt.Sprintf(format, args...)
	if _, err := c.conn.Write([]byte(cmd + "\r\n")); err != nil {
		c.t.Fatalf("failed to send command %q: %v", cmd, err)
	}
}

func (c *testClient) sendRaw(data []byte) {
	if _, err := c.conn.Write(data); err != nil {
		c.t.Fatalf("failed to send raw data: %v", err)
	}
}

func (c *testClient) readLine() string {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("failed to read response: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func (c *testClient) readMultiline() []string {
	var lines []string
	for {
		line := c.readLine()
		lines = append(lines, line)
		if len(line) >= 4 && line[3] == ' ' {
			break
		}
	}
	return lines
}

func (c *testClient) expectCode(expected int) string {
	line := c.readLine()
	var code int
	fmt.Sscanf(line, "%d", &code)
	if code != expected {
		c.t.Errorf("expected code %d, got response: %s", expected, line)
	}
	return line
}

func (c *testClient) expectMultilineCode(expected int) []string {
	lines := c.readMultiline()
	if len(lines) == 0 {
		c.t.Fatalf("expected multiline response with code %d, got empty", expected)
	}
	var code int
	fmt.Sscanf(lines[len(lines)-1], "%d", &code)
	if code != expected {
		c.t.Errorf("expected code %d, got response: %v", expected, lines)
	}
	return lines
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServerConfig() ServerConfig {
	config := DefaultServerConfig()
	config.Hostname = "test.example.com"
	config.Logger = discardLogger()
	return config
}

// startTestServer starts config's server on a free loopback port and
// returns it along with the address, ready for a testClient to dial.
func startTestServer(t *testing.T, config ServerConfig) (*Server, string) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	addr := ln.Addr().String()

	server := NewServer(config)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { server.Close() })
	return server, addr
}

func TestBasicSMTPSession(t *testing.T) {
	var mu sync.Mutex
	var gotFrom string
	var gotTo []string
	var gotBody []byte

	config := testServerConfig()
	config.Callbacks = Callbacks{
		OnMailFrom: func(sess *Session, from Path, params PathParams) error {
			mu.Lock()
			gotFrom = from.Mailbox.String()
			mu.Unlock()
			return nil
		},
		OnRcptTo: func(sess *Session, to Path, params PathParams) error {
			mu.Lock()
			gotTo = append(gotTo, to.Mailbox.String())
			mu.Unlock()
			return nil
		},
		OnData: func(sess *Session, body *BodyStream) ([]RecipientResult, error) {
			data, err := io.ReadAll(body)
			mu.Lock()
			gotBody = data
			mu.Unlock()
			return nil, err
		},
	}

	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()

	client.expectCode(220)

	client.send("EHLO client.example.com")
	lines := client.expectMultilineCode(250)
	if len(lines) < 2 {
		t.Errorf("expected multiple EHLO response lines, got %d", len(lines))
	}

	client.send("MAIL FROM:<sender@example.com>")
	client.expectCode(250)

	client.send("RCPT TO:<recipient@example.com>")
	client.expectCode(250)

	client.send("DATA")
	client.expectCode(354)

	client.send("Subject: Test Message")
	client.send("From: sender@example.com")
	client.send("To: recipient@example.com")
	client.send("")
	client.send("This is a test message.")
	client.send(".")
	client.expectCode(250)

	client.send("QUIT")
	client.expectCode(221)

	mu.Lock()
	defer mu.Unlock()
	if gotFrom != "sender@example.com" {
		t.Errorf("from = %q, want sender@example.com", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "recipient@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	want := "Subject: Test Message\r\nFrom: sender@example.com\r\nTo: recipient@example.com\r\n\r\nThis is a test message.\r\n"
	if string(gotBody) != want {
		t.Errorf("body = %q, want %q", gotBody, want)
	}
}

func TestDATADotStuffingOnWire(t *testing.T) {
	var gotBody []byte
	config := testServerConfig()
	config.Callbacks = Callbacks{
		OnData: func(sess *Session, body *BodyStream) ([]RecipientResult, error) {
			data, err := io.ReadAll(body)
			gotBody = data
			return nil, err
		},
	}
	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("MAIL FROM:<a@b.com>")
	client.expectCode(250)
	client.send("RCPT TO:<c@d.com>")
	client.expectCode(250)
	client.send("DATA")
	client.expectCode(354)
	client.send("..leading dot")
	client.send(".")
	client.expectCode(250)

	if string(gotBody) != ".leading dot\r\n" {
		t.Errorf("body = %q, want %q", gotBody, ".leading dot\r\n")
	}
}

func TestHELO(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("HELO client.example.com")
	client.expectCode(250)
}

func TestMultipleRecipients(t *testing.T) {
	var mu sync.Mutex
	var recipients []string
	config := testServerConfig()
	config.Callbacks = Callbacks{
		OnRcptTo: func(sess *Session, to Path, params PathParams) error {
			mu.Lock()
			recipients = append(recipients, to.Mailbox.String())
			mu.Unlock()
			return nil
		},
	}
	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("MAIL FROM:<sender@example.com>")
	client.expectCode(250)
	for _, rcpt := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		client.send("RCPT TO:<%s>", rcpt)
		client.expectCode(250)
	}
	client.send("DATA")
	client.expectCode(354)
	client.send(".")
	client.expectCode(250)

	mu.Lock()
	defer mu.Unlock()
	if len(recipients) != 3 {
		t.Fatalf("recipients = %v", recipients)
	}
}

func TestRSET(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("MAIL FROM:<sender@example.com>")
	client.expectCode(250)
	client.send("RSET")
	client.expectCode(250)
	// RCPT without a fresh MAIL FROM should be rejected post-reset.
	client.send("RCPT TO:<recipient@example.com>")
	client.expectCode(503)
}

func TestNOOP(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("NOOP")
	client.expectCode(250)
}

func TestQUITClosesConnection(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("QUIT")
	client.expectCode(221)

	client.conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := client.conn.Read(buf); err != io.EOF {
		t.Errorf("expected EOF after QUIT, got %v", err)
	}
}

func TestUnauthenticatedCommandBeforeHelo(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("MAIL FROM:<sender@example.com>")
	client.expectCode(503)
}

func TestUnknownCommand(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("BOGUS")
	client.expectCode(500)
}

func TestMaxConnectionsRejectsOverflow(t *testing.T) {
	config := testServerConfig()
	config.MaxConnections = 1
	_, addr := startTestServer(t, config)

	first := newTestClient(t, addr)
	defer first.close()
	first.expectCode(220)

	second, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(second)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(line, "421") {
		t.Errorf("expected 421 response, got %q", line)
	}
}

func TestAuthRequiredRejectsMailWithoutAuth(t *testing.T) {
	config := testServerConfig()
	config.AuthMechanisms = []string{"PLAIN"}
	config.AllowInsecureAuth = true
	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("MAIL FROM:<sender@example.com>")
	client.expectCode(530)
}

func TestPlainAuthSucceeds(t *testing.T) {
	config := testServerConfig()
	config.AuthMechanisms = []string{"PLAIN"}
	config.AllowInsecureAuth = true
	config.Callbacks = Callbacks{
		OnAuth: func(sess *Session, mechanism, identity string, verify AuthVerifier) error {
			if identity != "user" || !verify("secret") {
				return &CallbackError{Code: CodeAuthCredentialsInvalid, Message: "bad credentials"}
			}
			return nil
		},
	}
	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)

	payload := "\x00user\x00secret"
	client.send("AUTH PLAIN %s", base64.StdEncoding.EncodeToString([]byte(payload)))
	client.expectCode(235)

	client.send("MAIL FROM:<sender@example.com>")
	client.expectCode(250)
}
