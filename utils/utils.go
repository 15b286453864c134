// Package utils provides small helpers shared across the server, address
// parser, and transport layers.
package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// GetIPFromAddr extracts the IP component from a net.Addr.
func GetIPFromAddr(addr net.Addr) (net.IP, error) {
	if addr == nil {
		return nil, fmt.Errorf("address is nil")
	}

	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP, nil
	case *net.UDPAddr:
		return a.IP, nil
	case *net.IPAddr:
		return a.IP, nil
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			host = addr.String()
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("unable to extract IP from address: %v", addr)
		}
		return ip, nil
	}
}

// ContainsNonASCII reports whether s contains any byte outside the ASCII range.
func ContainsNonASCII(s string) bool {
	for _, v := range s {
		if v >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateID returns a 16-character base-32 random connection identifier.
func GenerateID() string {
	b := make([]byte, 10) // 10 bytes -> 16 base-32 characters
	_, _ = rand.Read(b)
	id := idEncoding.EncodeToString(b)
	return strings.ToLower(id)[:16]
}
