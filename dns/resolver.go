package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// Resolver performs reverse-DNS lookups for connection hostname resolution.
type Resolver interface {
	LookupAddr(ctx context.Context, ip net.IP) (Result[string], error)
}

// ResolverConfig configures a DNSResolver.
type ResolverConfig struct {
	// Nameservers is a list of DNS servers to query (e.g. "8.8.8.8:53").
	// If empty, system resolvers from /etc/resolv.conf are used, falling
	// back to public DNS (8.8.8.8, 1.1.1.1).
	Nameservers []string

	// DNSSEC enables the DO bit on queries; Result.Authentic reflects
	// whether the response was marked authenticated.
	DNSSEC bool

	// Timeout is the per-query timeout. Default 5s.
	Timeout time.Duration

	// Retries is the number of retries across nameservers. Default 2.
	Retries int
}

// DNSResolver resolves PTR records using github.com/miekg/dns.
type DNSResolver struct {
	config ResolverConfig
	client *mdns.Client
}

var _ Resolver = (*DNSResolver)(nil)

// NewResolver creates a DNS resolver with the given configuration.
func NewResolver(config ResolverConfig) *DNSResolver {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 2
	}
	if len(config.Nameservers) == 0 {
		config.Nameservers = systemNameservers()
	}

	return &DNSResolver{
		config: config,
		client: &mdns.Client{Timeout: config.Timeout},
	}
}

func systemNameservers() []string {
	cfg, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		servers = append(servers, s)
	}
	return servers
}

// LookupAddr performs a reverse DNS (PTR) lookup for ip.
func (r *DNSResolver) LookupAddr(ctx context.Context, ip net.IP) (Result[string], error) {
	if ip == nil {
		return Result[string]{}, fmt.Errorf("dns: nil IP address")
	}

	arpa, err := mdns.ReverseAddr(ip.String())
	if err != nil {
		return Result[string]{}, fmt.Errorf("dns: invalid IP for reverse lookup: %w", err)
	}

	m := new(mdns.Msg)
	m.SetQuestion(arpa, mdns.TypePTR)
	m.RecursionDesired = true
	if r.config.DNSSEC {
		m.SetEdns0(4096, true)
	}

	var lastErr error
	authentic := false

	for i := 0; i <= r.config.Retries; i++ {
		for _, server := range r.config.Nameservers {
			select {
			case <-ctx.Done():
				return Result[string]{}, ctx.Err()
			default:
			}

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = fmt.Errorf("dns query failed: %w", err)
				continue
			}

			if r.config.DNSSEC && resp.AuthenticatedData {
				authentic = true
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				var names []string
				for _, rr := range resp.Answer {
					if ptr, ok := rr.(*mdns.PTR); ok {
						names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
					}
				}
				if len(names) == 0 {
					return Result[string]{Authentic: authentic}, ErrDNSNotFound
				}
				return Result[string]{Records: names, Authentic: authentic}, nil
			case mdns.RcodeNameError:
				return Result[string]{Authentic: authentic}, ErrDNSNotFound
			case mdns.RcodeServerFailure:
				if r.config.DNSSEC {
					lastErr = ErrDNSBogus
				} else {
					lastErr = ErrDNSServFail
				}
			case mdns.RcodeRefused:
				lastErr = ErrDNSRefused
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %d", resp.Rcode)
			}
		}
	}

	if lastErr != nil {
		return Result[string]{}, lastErr
	}
	return Result[string]{}, ErrDNSServFail
}
