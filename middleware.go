package smtpd

import (
	"net"
	"strings"
	"sync"
	"time"
)

// RateLimiter caps new connections per remote IP within a sliding window.
// It has no dependency on Conn; wire it from Callbacks.OnConnect by
// checking Allow(sess.RemoteAddr) and returning a *CallbackError to
// reject.
type RateLimiter struct {
	mu       sync.Mutex
	counts   map[string]*rateLimitEntry
	limit    int
	window   time.Duration
	cleanupT time.Duration
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter. limit is the maximum connections
// per window from a single IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		counts:   make(map[string]*rateLimitEntry),
		limit:    limit,
		window:   window,
		cleanupT: window * 2,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupT)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, entry := range rl.counts {
			if now.Sub(entry.windowStart) > rl.window {
				delete(rl.counts, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow reports whether addr's IP is still under the limit, incrementing
// its counter if so.
func (rl *RateLimiter) Allow(addr net.Addr) bool {
	ip := extractIP(addr)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.counts[ip]
	if !ok || now.Sub(entry.windowStart) > rl.window {
		rl.counts[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	if entry.count >= rl.limit {
		return false
	}
	entry.count++
	return true
}

// IPFilterMode determines how an IPFilter operates.
type IPFilterMode int

const (
	// IPFilterModeAllow only allows IPs in the allow list.
	IPFilterModeAllow IPFilterMode = iota
	// IPFilterModeDeny only denies IPs in the deny list.
	IPFilterModeDeny
)

// IPFilter allows or denies connections by remote IP. Like RateLimiter,
// it is meant to be consulted from Callbacks.OnConnect.
type IPFilter struct {
	mu        sync.RWMutex
	allowList map[string]bool
	denyList  map[string]bool
	mode      IPFilterMode
}

// NewIPFilter creates an IP filter operating in the given mode.
func NewIPFilter(mode IPFilterMode) *IPFilter {
	return &IPFilter{
		allowList: make(map[string]bool),
		denyList:  make(map[string]bool),
		mode:      mode,
	}
}

// Allow adds an IP to the allow list.
func (f *IPFilter) Allow(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowList[ip] = true
}

// Deny adds an IP to the deny list.
func (f *IPFilter) Deny(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denyList[ip] = true
}

// IsAllowed reports whether addr's IP passes the filter.
func (f *IPFilter) IsAllowed(addr net.Addr) bool {
	ip := extractIP(addr)
	f.mu.RLock()
	defer f.mu.RUnlock()
	switch f.mode {
	case IPFilterModeAllow:
		return f.allowList[ip]
	case IPFilterModeDeny:
		return !f.denyList[ip]
	}
	return true
}

// DomainValidator checks sender/recipient domains against a local and an
// allowed set. Wire it from Callbacks.OnMailFrom/OnRcptTo.
type DomainValidator struct {
	mu             sync.RWMutex
	allowedDomains map[string]bool
	localDomains   map[string]bool
}

// NewDomainValidator creates an empty domain validator; with no local or
// allowed domains registered, every sender is allowed and every recipient
// domain is treated as non-local.
func NewDomainValidator() *DomainValidator {
	return &DomainValidator{
		allowedDomains: make(map[string]bool),
		localDomains:   make(map[string]bool),
	}
}

// AddLocalDomain registers a domain this server accepts mail for without
// requiring authentication.
func (v *DomainValidator) AddLocalDomain(domain string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.localDomains[strings.ToLower(domain)] = true
}

// AddAllowedDomain registers a sender domain permitted to relay through
// this server.
func (v *DomainValidator) AddAllowedDomain(domain string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.allowedDomains[strings.ToLower(domain)] = true
}

// IsLocalDomain reports whether domain was registered with
// AddLocalDomain.
func (v *DomainValidator) IsLocalDomain(domain string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.localDomains[strings.ToLower(domain)]
}

// IsAllowedSender reports whether domain may relay through this server.
// With no allowed domains registered, every sender domain is allowed.
func (v *DomainValidator) IsAllowedSender(domain string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.allowedDomains) == 0 {
		return true
	}
	return v.allowedDomains[strings.ToLower(domain)]
}

func extractIP(addr net.Addr) string {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
