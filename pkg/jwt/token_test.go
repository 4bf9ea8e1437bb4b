package jwtPkg

import (
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	token, expiresAt, err := Sign(map[string]interface{}{"id": "kiosk-1", "name": "Lobby"}, time.Hour, "secret")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if expiresAt <= time.Now().Unix() {
		t.Errorf("expiry %d is not in the future", expiresAt)
	}

	parsed, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	client, err := ClientFromClaims(parsed)
	if err != nil {
		t.Fatalf("ClientFromClaims() error = %v", err)
	}
	if client.ID != "kiosk-1" || client.Name != "Lobby" {
		t.Errorf("client = %+v", client)
	}
}

func TestParseTokenRejects(t *testing.T) {
	valid, _, err := Sign(map[string]interface{}{"id": "kiosk-1"}, time.Hour, "secret")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	expired, _, err := Sign(map[string]interface{}{"id": "kiosk-1"}, -time.Hour, "secret")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "wrong secret", token: valid, secret: "other"},
		{name: "expired", token: expired, secret: "secret"},
		{name: "garbage", token: "not-a-token", secret: "secret"},
		{name: "no secret", token: valid, secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestClientFromClaimsRequiresID(t *testing.T) {
	token, _, err := Sign(map[string]interface{}{"name": "Lobby"}, time.Hour, "secret")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	parsed, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if _, err := ClientFromClaims(parsed); err == nil {
		t.Error("expected missing id to be rejected")
	}
}

func TestSignWithoutSecret(t *testing.T) {
	if _, _, err := Sign(nil, time.Hour, ""); err != ErrSecretNotConfigured {
		t.Errorf("expected ErrSecretNotConfigured, got %v", err)
	}
}
