package security

import "testing"

func TestHashAndCompareSecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the plaintext secret")
	}

	if !CompareSecret(hash, "s3cret") {
		t.Fatal("matching secret should compare true")
	}
	if CompareSecret(hash, "wrong") {
		t.Fatal("non-matching secret should compare false")
	}
}

func TestCompareSecretRejectsGarbageHash(t *testing.T) {
	if CompareSecret("not-a-bcrypt-hash", "anything") {
		t.Fatal("garbage hash should never compare true")
	}
}
