package smtpd

import "errors"

var (
	ErrServerClosed      = errors.New("smtpd: server closed")
	ErrTooManyRecipients = errors.New("smtpd: too many recipients")
	ErrMessageTooLarge   = errors.New("smtpd: message too large")
	ErrTimeout           = errors.New("smtpd: timeout")
	ErrTLSRequired       = errors.New("smtpd: TLS required")
	ErrAuthRequired      = errors.New("smtpd: authentication required")
	ErrInvalidCommand    = errors.New("smtpd: invalid command")
	ErrUnknownMechanism  = errors.New("smtpd: unknown or unconfigured AUTH mechanism")
)
