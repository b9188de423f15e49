package utils

import (
	"strings"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt("sk-test-123", "local secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !IsSealed(sealed) || strings.Contains(sealed, "sk-test-123") {
		t.Fatalf("value not sealed: %q", sealed)
	}

	plain, err := Decrypt(sealed, "local secret")
	if err != nil || plain != "sk-test-123" {
		t.Fatalf("Decrypt = %q, %v", plain, err)
	}

	if _, err := Decrypt(sealed, "other secret"); err == nil {
		t.Fatal("expected failure with the wrong secret")
	}
}

func TestDecryptPlainPassthrough(t *testing.T) {
	got, err := Decrypt("sk-plain", "whatever")
	if err != nil || got != "sk-plain" {
		t.Fatalf("Decrypt(plain) = %q, %v", got, err)
	}
}

func TestGenerateSecureKey(t *testing.T) {
	a, err := GenerateSecureKey(32)
	if err != nil || len(a) != 32 {
		t.Fatalf("GenerateSecureKey = %d bytes, %v", len(a), err)
	}
	b, _ := GenerateSecureKey(32)
	if string(a) == string(b) {
		t.Fatal("keys repeat")
	}
	if _, err := GenerateSecureKey(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
