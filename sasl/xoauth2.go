package sasl

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

const (
	xoauth2StateInitial = iota
	xoauth2StateAbortPending
	xoauth2StateDone
)

// XOAuth2Failure is the structured failure payload sent to the client as
// a base64(JSON) continuation challenge when the access token is rejected
// (RFC: Google's XOAUTH2 mechanism, not a formal RFC).
type XOAuth2Failure struct {
	Status  int    `json:"status"`
	Schemes string `json:"schemes"`
	Scope   string `json:"scope"`
}

// XOAuth2 implements the XOAUTH2 SASL mechanism used by OAuth2-enabled
// mail providers.
type XOAuth2 struct {
	state   int
	creds   *Credentials
	token   string
	Failure *XOAuth2Failure
}

// NewXOAuth2 creates a new XOAUTH2 mechanism handler.
func NewXOAuth2() *XOAuth2 {
	return &XOAuth2{}
}

// Name returns "XOAUTH2".
func (x *XOAuth2) Name() string {
	return "XOAUTH2"
}

// Start processes the initial response, or requests one with an empty
// challenge.
func (x *XOAuth2) Start(initialResponse string) (challenge string, done bool, err error) {
	if initialResponse == "" {
		return "", false, nil
	}
	return x.processResponse(initialResponse)
}

// Next processes the client's response to the challenge, or — if a
// failure challenge was already sent — swallows the client's mandatory
// "\x01*\x01" abort and fails regardless of its content.
func (x *XOAuth2) Next(response string) (challenge string, done bool, err error) {
	if x.state == xoauth2StateAbortPending {
		x.state = xoauth2StateDone
		return "", true, ErrAuthenticationCancelled
	}
	return x.processResponse(response)
}

// processResponse decodes "user=<email>\x01auth=Bearer <token>\x01\x01".
func (x *XOAuth2) processResponse(response string) (challenge string, done bool, err error) {
	if response == "*" {
		x.state = xoauth2StateDone
		return "", true, ErrAuthenticationCancelled
	}

	decoded, decErr := decodeBase64(response)
	if decErr != nil {
		x.state = xoauth2StateDone
		return "", true, ErrInvalidBase64
	}

	fields := strings.Split(string(decoded), "\x01")
	var user, token string
	for _, f := range fields {
		if f == "" {
			continue
		}
		key, value, found := strings.Cut(f, "=")
		if !found {
			continue
		}
		switch key {
		case "user":
			user = value
		case "auth":
			token = strings.TrimPrefix(value, "Bearer ")
		}
	}

	if user == "" || token == "" {
		x.state = xoauth2StateDone
		return "", true, ErrInvalidFormat
	}

	x.token = token
	x.creds = &Credentials{AuthenticationID: user}
	x.state = xoauth2StateDone
	return "", true, nil
}

// Credentials returns the claimed identity; the bearer token itself is
// available via Token for the embedding application's validator.
func (x *XOAuth2) Credentials() *Credentials {
	return x.creds
}

// Token returns the bearer token extracted from the client's response.
func (x *XOAuth2) Token() string {
	return x.token
}

// Fail installs a structured failure payload and returns the base64(JSON)
// continuation challenge for it, arming the one-shot abort-swallowing
// behavior on the next line regardless of its content.
func (x *XOAuth2) Fail(failure XOAuth2Failure) (challenge string, err error) {
	x.Failure = &failure
	payload, err := json.Marshal(failure)
	if err != nil {
		return "", err
	}
	x.state = xoauth2StateAbortPending
	return base64.StdEncoding.EncodeToString(payload), nil
}
