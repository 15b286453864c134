package smtpd

import (
	"errors"
	"slices"
	"strings"

	"github.com/veridian-labs/smtpd/sasl"
)

func newSASLMechanism(name, serverName string) sasl.Mechanism {
	switch name {
	case "PLAIN":
		return sasl.NewPlain()
	case "LOGIN":
		return sasl.NewLogin()
	case "CRAM-MD5":
		return sasl.NewCramMD5(serverName)
	case "XOAUTH2":
		return sasl.NewXOAuth2()
	default:
		return nil
	}
}

// buildVerifier closes over whatever the mechanism can actually check: a
// transmitted password for PLAIN/LOGIN, a digest check for CRAM-MD5, or a
// bearer-token comparison for XOAUTH2. A single Callbacks.OnAuth
// implementation can then call verify(lookedUpPassword) the same way
// regardless of mechanism.
func buildVerifier(mech sasl.Mechanism, creds *sasl.Credentials) AuthVerifier {
	switch m := mech.(type) {
	case *sasl.CramMD5:
		return m.ValidatePassword
	case *sasl.XOAuth2:
		token := m.Token()
		return func(expected string) bool { return expected != "" && expected == token }
	default:
		pw := ""
		if creds != nil {
			pw = creds.Password
		}
		return func(expected string) bool { return expected == pw }
	}
}

// handleAuth dispatches the AUTH command to the named SASL mechanism
// (§4.4 AUTH handler). Multi-step exchanges are driven through
// Conn.nextHandler rather than a blocking read, so each continuation line
// still passes through processLine's ordinary dispatch.
func (c *Conn) handleAuth(args string) {
	if c.authenticated {
		c.reply(CodeBadSequence, "", "Already authenticated")
		return
	}

	mechName, initial := splitCommand(args)
	mechName = strings.ToUpper(mechName)
	if mechName == "" || !slices.Contains(c.server.config.AuthMechanisms, mechName) {
		c.reply(CodeParameterNotImpl, "", "Unrecognized authentication type")
		return
	}
	if !c.secure && !c.server.config.AllowInsecureAuth {
		c.reply(CodeAuthEncryptionRequired, ESCEncryptionRequired, "Encryption required for requested authentication mechanism")
		return
	}

	mech := newSASLMechanism(mechName, c.server.config.Hostname)
	if mech == nil {
		c.reply(CodeParameterNotImpl, "", "Unrecognized authentication type")
		return
	}

	challenge, done, err := mech.Start(initial)
	c.continueAuth(mech, mechName, challenge, done, err)
}

// continueAuth drives one step of a SASL exchange. challenge is already
// base64-encoded by the mechanism (see sasl.Mechanism); a non-done result
// installs nextHandler so the client's next line resumes the exchange.
func (c *Conn) continueAuth(mech sasl.Mechanism, mechName, challenge string, done bool, err error) {
	if !done {
		c.reply(CodeAuthContinue, "", challenge)
		c.nextHandler = func(line string) {
			ch, d, e := mech.Next(line)
			c.continueAuth(mech, mechName, ch, d, e)
		}
		return
	}

	if err != nil {
		if errors.Is(err, sasl.ErrAuthenticationCancelled) {
			c.reply(CodeSyntaxError, "", "Authentication cancelled")
		} else {
			c.reply(CodeAuthCredentialsInvalid, "", "Authentication failed")
		}
		return
	}

	creds := mech.Credentials()
	identity := ""
	if creds != nil {
		identity = creds.Identity()
	}
	verify := buildVerifier(mech, creds)

	var cbErr error
	if cb := c.server.config.Callbacks.OnAuth; cb != nil {
		cbErr = c.invokeCallback(func() error { return cb(c.session(), mechName, identity, verify) })
	}
	if cbErr != nil {
		// XOAUTH2 clients expect a structured failure challenge before the
		// final error, and must answer it with a mandatory abort line.
		if x, ok := mech.(*sasl.XOAuth2); ok {
			if fail, ferr := x.Fail(sasl.XOAuth2Failure{Status: 401, Schemes: "bearer"}); ferr == nil {
				c.reply(CodeAuthContinue, "", fail)
				c.nextHandler = func(line string) {
					x.Next(line)
					code, ec, msg := errorResponse(cbErr, CodeAuthCredentialsInvalid, ESCAuthCredentialsInvalid, "Authentication credentials invalid")
					c.reply(code, ec, msg)
				}
				return
			}
		}
		code, ec, msg := errorResponse(cbErr, CodeAuthCredentialsInvalid, ESCAuthCredentialsInvalid, "Authentication credentials invalid")
		c.reply(code, ec, msg)
		return
	}

	c.authenticated = true
	c.authMechanism = mechName
	c.authIdentity = identity
	c.reply(CodeAuthSuccess, "", "Authentication successful")
}
