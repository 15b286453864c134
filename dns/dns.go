// Package dns provides reverse-DNS (PTR) resolution for client hostname
// lookup during SMTP connection setup.
package dns

import "errors"

// Errors returned by Resolver implementations.
var (
	ErrDNSNotFound = errors.New("dns: name not found")
	ErrDNSServFail = errors.New("dns: server failure")
	ErrDNSRefused  = errors.New("dns: query refused")
	ErrDNSBogus    = errors.New("dns: response failed DNSSEC validation")
	ErrDNSTimeout  = errors.New("dns: query timed out")
)

// Result carries the records returned by a lookup plus whether the
// response was DNSSEC-authenticated.
type Result[T any] struct {
	Records   []T
	Authentic bool
}
