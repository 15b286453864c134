package sasl

import (
	"encoding/base64"
	"testing"
)

func xoauth2Token(user, token string) string {
	raw := "user=" + user + "\x01auth=Bearer " + token + "\x01\x01"
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func TestXOAuth2_Name(t *testing.T) {
	x := NewXOAuth2()
	if x.Name() != "XOAUTH2" {
		t.Errorf("expected XOAUTH2, got %s", x.Name())
	}
}

func TestXOAuth2_StartWithInitialResponse(t *testing.T) {
	x := NewXOAuth2()
	token := xoauth2Token("user@example.com", "ya29.abc123")

	_, done, err := x.Start(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected done to be true")
	}

	creds := x.Credentials()
	if creds == nil || creds.AuthenticationID != "user@example.com" {
		t.Fatalf("creds = %+v", creds)
	}
	if x.Token() != "ya29.abc123" {
		t.Errorf("Token() = %q", x.Token())
	}
}

func TestXOAuth2_EmptyStartThenResponse(t *testing.T) {
	x := NewXOAuth2()

	_, done, err := x.Start("")
	if err != nil || done {
		t.Fatalf("expected empty challenge pending, got done=%v err=%v", done, err)
	}

	token := xoauth2Token("user@example.com", "tok")
	_, done, err = x.Next(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Error("expected done to be true")
	}
}

func TestXOAuth2_MissingFields(t *testing.T) {
	x := NewXOAuth2()
	raw := base64.StdEncoding.EncodeToString([]byte("user=\x01\x01"))
	_, done, err := x.Start(raw)
	if err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
	if !done {
		t.Error("expected done to be true")
	}
}

func TestXOAuth2_FailThenAbortSwallowed(t *testing.T) {
	x := NewXOAuth2()
	challenge, err := x.Fail(XOAuth2Failure{Status: 401, Schemes: "Bearer", Scope: "https://mail.example.com/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if challenge == "" {
		t.Fatal("expected non-empty challenge")
	}

	_, done, err := x.Next("\x01*\x01")
	if err != ErrAuthenticationCancelled {
		t.Errorf("expected ErrAuthenticationCancelled, got %v", err)
	}
	if !done {
		t.Error("expected done to be true")
	}
}
