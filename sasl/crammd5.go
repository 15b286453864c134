package sasl

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	cramMD5StateInitial = iota
	cramMD5StateChallenged
	cramMD5StateDone
)

// CramMD5 implements the CRAM-MD5 SASL mechanism (RFC 2195). Unlike PLAIN
// and LOGIN, the password itself never crosses the wire: the client
// returns an HMAC-MD5 digest of the server's challenge, verified via
// ValidatePassword once the caller has looked up the claimed user's
// password.
type CramMD5 struct {
	state      int
	serverName string
	challenge  string
	username   string
	response   string
	creds      *Credentials
}

// NewCramMD5 creates a new CRAM-MD5 mechanism handler. serverName is used
// to build the challenge's domain-literal suffix.
func NewCramMD5(serverName string) *CramMD5 {
	return &CramMD5{serverName: serverName}
}

// Name returns "CRAM-MD5".
func (c *CramMD5) Name() string {
	return "CRAM-MD5"
}

// Start issues the initial challenge. CRAM-MD5 takes no initial response.
func (c *CramMD5) Start(initialResponse string) (challenge string, done bool, err error) {
	n, randErr := rand.Int(rand.Reader, big.NewInt(100000000))
	if randErr != nil {
		c.state = cramMD5StateDone
		return "", true, randErr
	}
	c.challenge = fmt.Sprintf("<%08d.%d@%s>", n.Int64(), timestamp(), c.serverName)
	c.state = cramMD5StateChallenged
	return base64.StdEncoding.EncodeToString([]byte(c.challenge)), false, nil
}

// Next processes the client's "username hex-digest" response.
func (c *CramMD5) Next(response string) (challenge string, done bool, err error) {
	if response == "*" {
		c.state = cramMD5StateDone
		return "", true, ErrAuthenticationCancelled
	}
	if c.state != cramMD5StateChallenged {
		c.state = cramMD5StateDone
		return "", true, ErrInvalidFormat
	}

	decoded, err := decodeBase64(response)
	if err != nil {
		c.state = cramMD5StateDone
		return "", true, ErrInvalidBase64
	}

	idx := strings.LastIndexByte(string(decoded), ' ')
	if idx < 0 {
		c.state = cramMD5StateDone
		return "", true, ErrInvalidFormat
	}

	c.username = string(decoded[:idx])
	c.response = strings.ToLower(string(decoded[idx+1:]))
	c.state = cramMD5StateDone

	c.creds = &Credentials{AuthenticationID: c.username}
	return "", true, nil
}

// Credentials returns the claimed username with no password (CRAM-MD5
// never transmits one); callers authenticate via ValidatePassword.
func (c *CramMD5) Credentials() *Credentials {
	return c.creds
}

// ValidatePassword reports whether password produces the digest the
// client returned for this exchange's challenge.
func (c *CramMD5) ValidatePassword(password string) bool {
	mac := hmac.New(md5.New, []byte(password))
	mac.Write([]byte(c.challenge))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(c.response))
}

func timestamp() int64 {
	return time.Now().Unix()
}
