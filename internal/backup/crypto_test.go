package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)

	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestSealUnsealRoundTrip(t *testing.T) {
	archive := []byte("PK\x03\x04 pretend this is a zip archive")

	sealed, err := Seal(archive, "test-passphrase-123")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("pretend")) {
		t.Error("sealed payload should not contain plaintext")
	}

	again, _ := Seal(archive, "test-passphrase-123")
	if bytes.Equal(sealed[:saltSize], again[:saltSize]) {
		t.Error("each seal should use a fresh salt")
	}

	opened, err := Unseal(sealed, "test-passphrase-123")
	if err != nil {
		t.Fatalf("unseal: %v", err)
	}
	if !bytes.Equal(opened, archive) {
		t.Error("unsealed content should match original")
	}
}

func TestUnsealRejectsBadInput(t *testing.T) {
	sealed, _ := Seal([]byte("secret data"), "correct-password")

	if _, err := Unseal(sealed, "wrong-password"); err == nil {
		t.Error("expected error with wrong passphrase")
	}

	tampered := append([]byte(nil), sealed...)
	tampered[saltSize+nonceSize+1] ^= 0xFF
	if _, err := Unseal(tampered, "correct-password"); err == nil {
		t.Error("expected error with tampered ciphertext")
	}

	if _, err := Unseal([]byte("too short"), "correct-password"); !errors.Is(err, errSealedTooShort) {
		t.Errorf("short payload err = %v, want errSealedTooShort", err)
	}
}

func TestSealEmpty(t *testing.T) {
	sealed, err := Seal(nil, "password")
	if err != nil {
		t.Fatalf("seal empty: %v", err)
	}
	opened, err := Unseal(sealed, "password")
	if err != nil {
		t.Fatalf("unseal empty: %v", err)
	}
	if len(opened) != 0 {
		t.Errorf("expected empty plaintext, got %d bytes", len(opened))
	}
}
