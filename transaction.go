package smtpd

import (
	"strconv"
	"strings"

	"github.com/veridian-labs/smtpd/internal/wire"
)

// handleMail implements the MAIL command (§4.4): parse the reverse-path,
// validate its ESMTP parameters, run onMailFrom, and start a transaction.
func (c *Conn) handleMail(args string) {
	path, params, err := ParseMailboxPath("FROM", args)
	if err != nil {
		c.reply(CodeSyntaxError, "", "Bad sender address syntax")
		return
	}
	if c.mailFromSet {
		c.reply(CodeBadSequence, "", "nested MAIL command")
		return
	}

	var size int64
	if params.Has("SIZE") {
		n, convErr := strconv.ParseInt(params.String("SIZE"), 10, 64)
		if convErr != nil {
			c.reply(CodeSyntaxError, "", "Invalid SIZE parameter")
			return
		}
		if c.server.config.MaxMessageSize > 0 && n > c.server.config.MaxMessageSize {
			c.reply(CodeExceededStorage, "", "Message size exceeds fixed maximum message size")
			return
		}
		size = n
	}

	bodyType := BodyType7Bit
	if params.Has("BODY") {
		switch strings.ToUpper(params.String("BODY")) {
		case "7BIT":
			bodyType = BodyType7Bit
		case "8BITMIME":
			bodyType = BodyType8BitMIME
		default:
			c.reply(CodeParameterNotImpl, "", "Unsupported BODY type")
			return
		}
	}

	requireTLS := params.Has("REQUIRETLS")
	if requireTLS && params.String("REQUIRETLS") != "" {
		c.reply(CodeSyntaxError, "", "REQUIRETLS takes no value")
		return
	}

	var dsn *DSNEnvelopeParams
	if !c.server.config.HideDSN {
		if params.Has("RET") {
			ret := strings.ToUpper(params.String("RET"))
			if ret != "FULL" && ret != "HDRS" {
				c.reply(CodeSyntaxError, "", "Invalid RET parameter")
				return
			}
			dsn = &DSNEnvelopeParams{RET: ret}
		}
		if params.Has("ENVID") {
			if dsn == nil {
				dsn = &DSNEnvelopeParams{}
			}
			dsn.EnvID = params.String("ENVID")
		}
	}

	c.envelope.From = path
	c.envelope.BodyType = bodyType
	c.envelope.SMTPUTF8 = params.Bool("SMTPUTF8")
	c.envelope.RequireTLS = requireTLS
	c.envelope.DSN = dsn
	c.envelope.Size = size
	c.mailFromSet = true

	var cbErr error
	if cb := c.server.config.Callbacks.OnMailFrom; cb != nil {
		cbErr = c.invokeCallback(func() error { return cb(c.session(), path, params) })
	}
	if cbErr != nil {
		code, ec, msg := errorResponse(cbErr, CodeMailboxNotFound, ESCBadDestMailbox, "Sender rejected")
		c.resetEnvelope()
		c.reply(code, ec, msg)
		return
	}
	c.reply(CodeOK, ESCAddressValid, "Accepted")
}

// handleRcpt implements the RCPT command (§4.4): parse the forward-path,
// validate DSN parameters, run onRcptTo, and append (or replace, on a
// case-insensitive duplicate) the recipient.
func (c *Conn) handleRcpt(args string) {
	path, params, err := ParseMailboxPath("TO", args)
	if err != nil || path.IsNull() {
		c.reply(CodeSyntaxError, "", "Bad recipient address syntax")
		return
	}
	if !c.mailFromSet {
		c.reply(CodeBadSequence, "", "need MAIL command")
		return
	}

	var dsn *DSNRecipientParams
	if !c.server.config.HideDSN {
		if params.Has("NOTIFY") {
			values := strings.Split(strings.ToUpper(params.String("NOTIFY")), ",")
			valid := map[string]bool{"NEVER": true, "SUCCESS": true, "FAILURE": true, "DELAY": true}
			hasNever := false
			for _, v := range values {
				if !valid[v] {
					c.reply(CodeSyntaxError, "", "Invalid NOTIFY parameter")
					return
				}
				if v == "NEVER" {
					hasNever = true
				}
			}
			if hasNever && len(values) > 1 {
				c.reply(CodeSyntaxError, "", "NOTIFY=NEVER must not be combined with other values")
				return
			}
			dsn = &DSNRecipientParams{Notify: values}
		}
		if params.Has("ORCPT") {
			if dsn == nil {
				dsn = &DSNRecipientParams{}
			}
			dsn.ORcpt = params.String("ORCPT")
		}
	}

	var cbErr error
	if cb := c.server.config.Callbacks.OnRcptTo; cb != nil {
		cbErr = c.invokeCallback(func() error { return cb(c.session(), path, params) })
	}
	if cbErr != nil {
		code, ec, msg := errorResponse(cbErr, CodeMailboxNotFound, ESCBadDestMailbox, "Recipient rejected")
		c.reply(code, ec, msg)
		return
	}

	rcpt := Recipient{Address: path, DSNParams: dsn}
	for i, existing := range c.envelope.To {
		if strings.EqualFold(existing.Address.String(), path.String()) {
			c.envelope.To[i] = rcpt
			c.reply(CodeOK, ESCRecipientValid, "Accepted")
			return
		}
	}
	c.envelope.To = append(c.envelope.To, rcpt)
	c.reply(CodeOK, ESCRecipientValid, "Accepted")
}

// handleData implements the DATA command (§4.4): switch the wire parser
// into data mode, buffer the dot-unstuffed body, and invoke onData once
// the terminator is seen.
func (c *Conn) handleData(args string) {
	if len(c.envelope.To) == 0 {
		c.reply(CodeBadSequence, "", "need RCPT command")
		return
	}

	c.reply(CodeStartMailInput, "", "End data with <CR><LF>.<CR><LF>")

	var body []byte
	c.parser.StartDataMode(c.server.config.MaxMessageSize, wire.Callbacks{
		OnChunk: func(chunk []byte) { body = append(body, chunk...) },
		OnEnd: func(n int64, exceeded bool) {
			c.finishData(body, n, exceeded)
		},
		OnRemainder: func(rest []byte) {
			if len(rest) > 0 {
				c.feed(rest)
			}
		},
	})
}

func (c *Conn) finishData(body []byte, byteLength int64, sizeExceeded bool) {
	stream := &BodyStream{reader: newBodyReader(body), raw: body, byteLength: byteLength, sizeExceeded: sizeExceeded}

	var results []RecipientResult
	var cbErr error
	if cb := c.server.config.Callbacks.OnData; cb != nil {
		results, cbErr = c.invokeDataCallback(func() ([]RecipientResult, error) { return cb(c.session(), stream) })
	}

	c.transactions++
	c.resetEnvelope()
	c.unknownCmds = 0

	if cbErr != nil {
		code, ec, msg := errorResponse(cbErr, CodeTransactionFailed, ESCPermFailure, "Transaction failed")
		c.reply(code, ec, msg)
		return
	}

	if c.server.config.LMTP && results != nil {
		for _, r := range results {
			code := r.Code
			msg := r.Message
			ec := ResolveEnhancedCode(code, "")
			if code == 0 || code >= 300 {
				code = CodeMailboxUnavailable
				if msg == "" {
					msg = "Delivery failed"
				}
				ec = ResolveEnhancedCode(code, "")
			} else if msg == "" {
				msg = "OK"
			}
			c.reply(code, ec, msg)
		}
		return
	}

	code := CodeOK
	msg := "OK: message queued"
	if len(results) == 1 {
		if results[0].Code != 0 {
			code = results[0].Code
		}
		if results[0].Message != "" {
			msg = results[0].Message
		}
	}
	c.reply(code, ResolveEnhancedCode(code, ESCMessageAccepted), msg)
}
