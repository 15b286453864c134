package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// StdResolver resolves PTR records using the standard library resolver.
// It does not support DNSSEC validation; Result.Authentic is always false.
type StdResolver struct {
	resolver *net.Resolver
}

var _ Resolver = (*StdResolver)(nil)

// NewStdResolver creates a resolver backed by net.DefaultResolver.
func NewStdResolver() *StdResolver {
	return &StdResolver{resolver: net.DefaultResolver}
}

// LookupAddr performs a reverse DNS lookup using the standard library.
func (r *StdResolver) LookupAddr(ctx context.Context, ip net.IP) (Result[string], error) {
	if ip == nil {
		return Result[string]{}, fmt.Errorf("dns: nil IP address")
	}

	names, err := r.resolver.LookupAddr(ctx, ip.String())
	if err != nil {
		return Result[string]{}, convertError(err)
	}
	if len(names) == 0 {
		return Result[string]{}, ErrDNSNotFound
	}

	for i, name := range names {
		names[i] = strings.TrimSuffix(name, ".")
	}

	return Result[string]{Records: names}, nil
}

func convertError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return ErrDNSNotFound
		}
		if dnsErr.IsTimeout {
			return ErrDNSTimeout
		}
		if dnsErr.IsTemporary {
			return ErrDNSServFail
		}
	}
	return fmt.Errorf("dns lookup failed: %w", err)
}
