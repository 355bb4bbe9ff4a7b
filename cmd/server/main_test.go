package main

import (
	"testing"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", ShopAPIURL: "http://shop:3000", ManagerPIN: "739154"})
	if err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	err = validateSecurityConfig(config.Config{AuthSecret: strongSecret, ShopAPIURL: "http://shop:3000", ManagerPIN: "123456"})
	if err == nil {
		t.Fatalf("expected weak pin to be rejected")
	}
	err = validateSecurityConfig(config.Config{AuthSecret: strongSecret, ShopAPIURL: "http://shop:3000", ManagerPIN: "73a154"})
	if err == nil {
		t.Fatalf("expected non-numeric pin to be rejected")
	}
}

func TestValidateSecurityConfigRequiresShopURL(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: strongSecret}); err == nil {
		t.Fatalf("expected missing SHOP_API_URL to be rejected")
	}
	if err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, ShopAPIURL: "shop:3000"}); err == nil {
		t.Fatalf("expected relative SHOP_API_URL to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, ShopAPIURL: "https://api.montshop.local", ManagerPIN: "739154"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestManagerPINIsOptional(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, ShopAPIURL: "http://shop:3000"})
	if err != nil {
		t.Fatalf("expected config without pin to pass, got %v", err)
	}
}

func TestValidatePINStrength(t *testing.T) {
	for _, pin := range []string{"111111", "234567", "987654", "112233"} {
		if err := validatePINStrength(pin); err == nil {
			t.Fatalf("expected %s to be rejected", pin)
		}
	}
	if err := validatePINStrength("739154"); err != nil {
		t.Fatalf("expected 739154 to pass, got %v", err)
	}
}
