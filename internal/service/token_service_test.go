package service

import (
	"testing"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret-0123456789", 1)

	token, err := svc.IssueServiceToken("bot-gateway")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatal("issued token is empty")
	}

	claims, err := svc.ParseServiceToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Caller != "bot-gateway" {
		t.Fatalf("caller = %q, want bot-gateway", claims.Caller)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("registered claims missing timestamps")
	}
}

func TestServiceTokenWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", 1)
	verifier := NewTokenService("secret-b", 1)

	token, err := issuer.IssueServiceToken("bot-gateway")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := verifier.ParseServiceToken(token); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}
}

func TestServiceTokenEmptySecret(t *testing.T) {
	svc := NewTokenService("", 1)
	if _, err := svc.IssueServiceToken("bot-gateway"); err == nil {
		t.Fatal("empty secret must refuse to sign")
	}
	if _, err := svc.ParseServiceToken("whatever"); err == nil {
		t.Fatal("empty secret must refuse to verify")
	}
}
