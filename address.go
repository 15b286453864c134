package smtpd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/veridian-labs/smtpd/internal/xtext"
)

// ErrInvalidPath is the failure sentinel returned by ParseMailboxPath for
// any syntax or validation failure on a MAIL FROM / RCPT TO path. The
// parser never distinguishes failure reasons beyond this: callers reply
// with a single generic syntax-error response.
var ErrInvalidPath = errors.New("smtpd: invalid address path")

// PathParams holds the ESMTP parameters parsed from a MAIL FROM / RCPT TO
// line. Values are already xtext-decoded. A parameter given without "="
// stores the boolean true; values are strings otherwise.
type PathParams map[string]any

// String returns the decoded string value for key, or "" if absent or not
// a string (e.g. a bare flag stored as true).
func (p PathParams) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Bool reports whether key is present as a bare flag (stored as true).
func (p PathParams) Bool(key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}

// Has reports whether key is present at all, flag or valued.
func (p PathParams) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// ParseMailboxPath parses a MAIL FROM / RCPT TO command line given the
// expected prefix ("MAIL FROM" or "RCPT TO", case-insensitive). It returns
// the parsed path and its ESMTP parameters, or ErrInvalidPath.
func ParseMailboxPath(expectPrefix, line string) (Path, PathParams, error) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return Path{}, nil, ErrInvalidPath
	}

	prefix := strings.TrimSpace(line[:colon])
	if !strings.EqualFold(prefix, expectPrefix) {
		return Path{}, nil, ErrInvalidPath
	}

	rest := strings.TrimSpace(line[colon+1:])

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Path{}, nil, ErrInvalidPath
	}

	addrToken := fields[0]
	if len(addrToken) < 2 || addrToken[0] != '<' || addrToken[len(addrToken)-1] != '>' {
		return Path{}, nil, ErrInvalidPath
	}
	inner := addrToken[1 : len(addrToken)-1]
	if strings.ContainsAny(inner, "<>") {
		return Path{}, nil, ErrInvalidPath
	}

	path := Path{}
	if inner != "" {
		mbox, err := validateMailboxAddress(inner)
		if err != nil {
			return Path{}, nil, ErrInvalidPath
		}
		path.Mailbox = mbox
	}

	var params PathParams
	if len(fields) > 1 {
		params = make(PathParams, len(fields)-1)
		for _, tok := range fields[1:] {
			key, value, hasValue := strings.Cut(tok, "=")
			key = strings.ToUpper(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			if _, exists := params[key]; exists {
				return Path{}, nil, ErrInvalidPath
			}
			if hasValue {
				params[key] = xtext.Decode(value)
			} else {
				params[key] = true
			}
		}
	}

	return path, params, nil
}

// validateMailboxAddress validates a non-null address per the rules below
// and returns its parsed local-part/domain split.
//
//   - '@' present, not first, not last
//   - local-part length <= 64 octets
//   - total path length (local + 1 + domain) <= 254 octets
//   - local-part has no leading/trailing '.' and no ".."
//   - bracketed domain is either "[IPV6:...]" (hex digits and ':' only,
//     at least one ':') or a bare dotted-quad IPv4 literal
//   - else domain is ASCII+Unicode >= U+0080, dots/hyphens allowed but no
//     leading/trailing '.', no "..", and no ".-"/"-." adjacency
func validateMailboxAddress(addr string) (MailboxAddress, error) {
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return MailboxAddress{}, ErrInvalidPath
	}

	local := addr[:at]
	domain := addr[at+1:]

	if len(local) > 64 {
		return MailboxAddress{}, ErrInvalidPath
	}
	if len(local)+1+len(domain) > 254 {
		return MailboxAddress{}, ErrInvalidPath
	}
	if !validLocalPart(local) {
		return MailboxAddress{}, ErrInvalidPath
	}
	if !validDomain(domain) {
		return MailboxAddress{}, ErrInvalidPath
	}

	return MailboxAddress{LocalPart: local, Domain: domain}, nil
}

func validLocalPart(local string) bool {
	if local == "" {
		return false
	}
	if local[0] == '.' || local[len(local)-1] == '.' {
		return false
	}
	return !strings.Contains(local, "..")
}

func validDomain(domain string) bool {
	if domain == "" {
		return false
	}
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return validAddressLiteral(domain[1 : len(domain)-1])
	}

	if domain[0] == '.' || domain[len(domain)-1] == '.' {
		return false
	}
	if strings.Contains(domain, "..") || strings.Contains(domain, ".-") || strings.Contains(domain, "-.") {
		return false
	}
	for _, r := range domain {
		if r == '.' || r == '-' {
			continue
		}
		if r >= 0x80 {
			continue
		}
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func validAddressLiteral(lit string) bool {
	if rest, ok := strings.CutPrefix(lit, "IPV6:"); ok {
		return validIPv6Literal(rest)
	}
	return validIPv4Literal(lit)
}

func validIPv6Literal(lit string) bool {
	if !strings.Contains(lit, ":") {
		return false
	}
	for _, r := range lit {
		isHex := r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
		if !isHex && r != ':' {
			return false
		}
	}
	return true
}

func validIPv4Literal(lit string) bool {
	octets := strings.Split(lit, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if o == "" || len(o) > 3 {
			return false
		}
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}
