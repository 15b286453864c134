package dns

import (
	"context"
	"net"
	"strings"
)

// MockResolver is a Resolver for tests. PTR maps an IP's arpa-format
// reverse name (without trailing dot, e.g. "1.0.0.127.in-addr.arpa") to
// the hostnames it resolves to. Fail lists arpa names that should return
// ErrDNSServFail.
type MockResolver struct {
	PTR  map[string][]string
	Fail []string
}

var _ Resolver = MockResolver{}

func (r MockResolver) LookupAddr(ctx context.Context, ip net.IP) (Result[string], error) {
	if err := ctx.Err(); err != nil {
		return Result[string]{}, err
	}

	arpa, err := reverseName(ip)
	if err != nil {
		return Result[string]{}, err
	}

	for _, f := range r.Fail {
		if f == arpa {
			return Result[string]{}, ErrDNSServFail
		}
	}

	names, ok := r.PTR[arpa]
	if !ok || len(names) == 0 {
		return Result[string]{}, ErrDNSNotFound
	}
	return Result[string]{Records: names}, nil
}

// reverseName builds the in-addr.arpa/ip6.arpa name for ip without the
// trailing dot, matching the keys used in MockResolver.PTR.
func reverseName(ip net.IP) (string, error) {
	if ip4 := ip.To4(); ip4 != nil {
		parts := strings.Split(ip4.String(), ".")
		rev := make([]string, len(parts))
		for i, p := range parts {
			rev[len(parts)-1-i] = p
		}
		return strings.Join(rev, ".") + ".in-addr.arpa", nil
	}
	return "", ErrDNSNotFound
}
