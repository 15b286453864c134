package smtpd

import (
	"io"
	"testing"
)

// TestPipelinedCommandsWithBodyInSamePacket exercises the feed() reinjection
// path (§4.4): a client that pipelines MAIL/RCPT/DATA and the first body
// bytes in one TCP write, before the server's 354 has even been read.
func TestPipelinedCommandsWithBodyInSamePacket(t *testing.T) {
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

	client.sendRaw([]byte("MAIL FROM:<a@b.com>\r\nRCPT TO:<c@d.com>\r\nDATA\r\nSubject: x\r\n\r\nhello\r\n.\r\n"))
	client.expectCode(250) // MAIL
	client.expectCode(250) // RCPT
	client.expectCode(354) // DATA
	client.expectCode(250) // message accepted

	want := "Subject: x\r\n\r\nhello\r\n"
	if string(gotBody) != want {
		t.Errorf("body = %q, want %q", gotBody, want)
	}
}

func TestHTTPRequestLineRejected(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("GET / HTTP/1.1")
	client.expectCode(421)
}

func TestTooManyUnrecognizedCommandsClosesConnection(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	for i := 0; i < 9; i++ {
		client.send("BOGUS%d", i)
		client.expectCode(500)
	}
	client.send("BOGUS9")
	client.expectCode(421)
}

func TestXClientRewritesRemoteAddrAndHostname(t *testing.T) {
	var gotRemote, gotHost string
	config := testServerConfig()
	config.XClientTrusted = true
	config.Callbacks = Callbacks{
		OnMailFrom: func(sess *Session, from Path, params PathParams) error {
			gotRemote = sess.RemoteAddr.String()
			gotHost = sess.ClientHostname
			return nil
		},
	}
	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO proxy.example.com")
	client.expectMultilineCode(250)
	client.send("XCLIENT ADDR=10.0.0.5 NAME=real-client.example.com")
	client.expectCode(220)
	client.send("EHLO real-client.example.com")
	client.expectMultilineCode(250)
	client.send("MAIL FROM:<a@b.com>")
	client.expectCode(250)

	if gotRemote != "10.0.0.5" {
		t.Errorf("RemoteAddr = %q, want 10.0.0.5", gotRemote)
	}
	if gotHost != "real-client.example.com" {
		t.Errorf("ClientHostname = %q", gotHost)
	}
}

func TestXClientNotAdvertisedOrAcceptedByDefault(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("XCLIENT ADDR=10.0.0.5")
	client.expectCode(500)
}

func TestXForwardRecordsHeaders(t *testing.T) {
	config := testServerConfig()
	config.XForwardTrusted = true
	_, addr := startTestServer(t, config)

	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("XFORWARD NAME=origin.example.com SOURCE=LOCAL")
	client.expectCode(250)
}

func TestStartTLSNotAvailableWithoutSecureContext(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("EHLO client.example.com")
	client.expectMultilineCode(250)
	client.send("STARTTLS")
	client.expectCode(502)
}

func TestVrfyReturnsStaticReply(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	client.send("VRFY someone@example.com")
	client.expectCode(252)
}

func TestSendmailStubCommandsRejected(t *testing.T) {
	_, addr := startTestServer(t, testServerConfig())
	client := newTestClient(t, addr)
	defer client.close()
	client.expectCode(220)
	for _, cmd := range []string{"WIZ", "SHELL", "KILL"} {
		client.send(cmd)
		client.expectCode(502)
	}
}
