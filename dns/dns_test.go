package dns

import (
	"context"
	"net"
	"testing"
)

func TestMockResolverLookupAddr(t *testing.T) {
	r := MockResolver{
		PTR: map[string][]string{
			"1.0.0.127.in-addr.arpa": {"localhost"},
		},
	}

	res, err := r.LookupAddr(context.Background(), net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0] != "localhost" {
		t.Errorf("Records = %v, want [localhost]", res.Records)
	}
}

func TestMockResolverNotFound(t *testing.T) {
	r := MockResolver{}
	_, err := r.LookupAddr(context.Background(), net.ParseIP("10.0.0.1"))
	if err != ErrDNSNotFound {
		t.Errorf("err = %v, want ErrDNSNotFound", err)
	}
}

func TestMockResolverFail(t *testing.T) {
	r := MockResolver{
		Fail: []string{"1.0.0.10.in-addr.arpa"},
	}
	_, err := r.LookupAddr(context.Background(), net.ParseIP("10.0.0.1"))
	if err != ErrDNSServFail {
		t.Errorf("err = %v, want ErrDNSServFail", err)
	}
}

func TestMockResolverContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := MockResolver{}
	_, err := r.LookupAddr(ctx, net.ParseIP("127.0.0.1"))
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestReverseNameIPv4(t *testing.T) {
	name, err := reverseName(net.ParseIP("192.168.1.1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1.1.168.192.in-addr.arpa"
	if name != want {
		t.Errorf("reverseName() = %q, want %q", name, want)
	}
}

func TestReverseNameIPv6Unsupported(t *testing.T) {
	_, err := reverseName(net.ParseIP("::1"))
	if err != ErrDNSNotFound {
		t.Errorf("err = %v, want ErrDNSNotFound", err)
	}
}

func TestNewStdResolver(t *testing.T) {
	r := NewStdResolver()
	if r.resolver == nil {
		t.Error("expected non-nil resolver")
	}
}

func TestNewResolverDefaults(t *testing.T) {
	r := NewResolver(ResolverConfig{})
	if r.config.Timeout == 0 {
		t.Error("expected default Timeout to be set")
	}
	if r.config.Retries == 0 {
		t.Error("expected default Retries to be set")
	}
	if len(r.config.Nameservers) == 0 {
		t.Error("expected default Nameservers to be populated")
	}
}
