package codecrypt

import (
	"bytes"
	"testing"
)

func testKey() []byte { return bytes.Repeat([]byte{0x42}, 32) }

func TestNew_RejectsShortKey(t *testing.T) {
	if _, err := New([]byte("short")); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	ct, err := c.Encrypt("XBOX-ABCD-1234")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	got, err := c.Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != "XBOX-ABCD-1234" {
		t.Fatalf("expected round trip, got %q", got)
	}
}

func TestEncrypt_IsRandomized(t *testing.T) {
	c, _ := New(testKey())
	a, _ := c.Encrypt("SAME-CODE")
	b, _ := c.Encrypt("SAME-CODE")
	if a == b {
		t.Fatalf("two encryptions of the same plaintext must differ")
	}
}

func TestDecrypt_RejectsGarbage(t *testing.T) {
	c, _ := New(testKey())
	if _, err := c.Decrypt("not-base64!!!"); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
	if _, err := c.Decrypt("YWJj"); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext for short payload, got %v", err)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	if Fingerprint("CODE-1") != Fingerprint("CODE-1") {
		t.Fatalf("fingerprint must be deterministic")
	}
	if Fingerprint("CODE-1") == Fingerprint("CODE-2") {
		t.Fatalf("different codes must not collide")
	}
}
