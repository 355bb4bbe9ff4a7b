package httpapi

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-with-at-least-32-bytes!!"

func TestParseTokenReturnsActorWithRawToken(t *testing.T) {
	manager := NewAuthManager(testSecret, "")
	token, err := manager.sign("ana", "Seller", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "ana" || actor.Role != "seller" {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if actor.Token != token {
		t.Fatalf("expected raw token to be kept for forwarding")
	}
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	manager := NewAuthManager(testSecret, "")

	expired, err := manager.sign("ana", "seller", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	other := NewAuthManager("another-secret-with-at-least-32-bytes", "")
	foreign, err := other.sign("ana", "seller", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(foreign); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	manager := NewAuthManager(testSecret, "")
	token, err := manager.sign("ana", "cashier", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
}

func TestParseTokenRejectsMissingExpiry(t *testing.T) {
	manager := NewAuthManager(testSecret, "")
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, operatorClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "ana"},
		Role:             "seller",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token without exp to be rejected")
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	manager := NewAuthManager(testSecret, "")
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, operatorClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "root",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	}).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	manager := NewAuthManager(testSecret, "654321")

	if manager.managerPIN == "654321" {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}
	if !strings.HasPrefix(manager.managerPIN, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", manager.managerPIN)
	}
	if !manager.ManagerPINEnabled() {
		t.Fatalf("expected manager pin to be enabled")
	}
	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}
	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}
}

func TestManagerPINDisabledWhenEmpty(t *testing.T) {
	manager := NewAuthManager(testSecret, "  ")
	if manager.ManagerPINEnabled() {
		t.Fatalf("expected manager pin to be disabled")
	}
	if manager.ValidateManagerPIN("") {
		t.Fatalf("expected empty pin to fail")
	}
}
