// Package smtpd is an embeddable RFC 5321 SMTP/RFC 2033 LMTP server core.
// The application supplies policy and storage through Callbacks; the
// package owns the wire protocol, the connection state machine, and SASL
// authentication.
//
// # Server
//
//	server := smtpd.NewServer(smtpd.ServerConfig{
//	    Hostname:       "mail.example.com",
//	    AuthMechanisms: []string{"PLAIN", "LOGIN"},
//	    MaxMessageSize: 25 * 1024 * 1024,
//	    Callbacks: smtpd.Callbacks{
//	        OnMailFrom: func(sess *smtpd.Session, from smtpd.Path, params smtpd.PathParams) error {
//	            return nil
//	        },
//	        OnData: func(sess *smtpd.Session, body *smtpd.BodyStream) ([]smtpd.RecipientResult, error) {
//	            return nil, nil
//	        },
//	    },
//	})
//
//	if err := server.ListenAndServe(":25"); err != smtpd.ErrServerClosed {
//	    log.Fatal(err)
//	}
//
// Shutdown drains connections gracefully:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	server.Shutdown(ctx)
//
// # TLS
//
// Implicit TLS (port 465/submissions, or LMTP over TLS) is served with
// ListenAndServeTLS after UpdateSecureContext installs a certificate.
// STARTTLS (RFC 3207) upgrades a plaintext connection in place and is
// advertised automatically once a SecureContext is installed, unless
// HideSTARTTLS is set.
//
// # Authentication
//
// AUTH (RFC 4954) mechanisms PLAIN, LOGIN, CRAM-MD5, and XOAUTH2 are
// built in; AuthMechanisms lists which are advertised. Callbacks.OnAuth
// receives a mechanism-agnostic AuthVerifier so one implementation can
// validate credentials regardless of which mechanism produced them.
//
// # Extensions
//
// Advertised unconditionally unless Hide*-prefixed: PIPELINING,
// 8BITMIME, SMTPUTF8, ENHANCEDSTATUSCODES (RFC 2034/3463), DSN (RFC
// 3461), REQUIRETLS (RFC 8689, advertised only once secure). SIZE (RFC
// 1870) is advertised when MaxMessageSize is set. XCLIENT and XFORWARD
// (Postfix extensions) are gated behind XClientTrusted/XForwardTrusted
// for use behind a trusted relay. LMTP mode (RFC 2033) is selected with
// ServerConfig.LMTP and replies per-recipient after DATA.
//
// BDAT/CHUNKING (RFC 3030), SPF, and DKIM are out of scope.
package smtpd
