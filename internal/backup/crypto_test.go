package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	plaintext := []byte("the quick brown fox")

	sealed, err := Encrypt(plaintext, "correct horse", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("ciphertext contains the plaintext")
	}

	opened, err := Decrypt(sealed, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip = %q, want %q", opened, plaintext)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	salt, _ := GenerateSalt()
	sealed, err := Encrypt([]byte("secret"), "right", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(sealed, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestDecryptTruncatedData(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pass"); err == nil {
		t.Error("expected error for truncated data")
	}
}

func TestEncryptFileDecryptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")
	dec := filepath.Join(dir, "restored.db")

	content := []byte("sqlite pretend content")
	if err := os.WriteFile(src, content, 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := EncryptFile(src, enc, "passphrase"); err != nil {
		t.Fatalf("encrypt file: %v", err)
	}
	if err := DecryptFile(enc, dec, "passphrase"); err != nil {
		t.Fatalf("decrypt file: %v", err)
	}

	got, err := os.ReadFile(dec)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("restored = %q, want %q", got, content)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, _ := GenerateSalt()
	a := DeriveKey("pass", salt)
	b := DeriveKey("pass", salt)
	if !bytes.Equal(a, b) {
		t.Error("same passphrase and salt should derive the same key")
	}
	other, _ := GenerateSalt()
	if bytes.Equal(a, DeriveKey("pass", other)) {
		t.Error("different salts should derive different keys")
	}
}
