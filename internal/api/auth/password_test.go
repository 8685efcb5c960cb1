package auth

import "testing"

func TestHashTokenAndVerify(t *testing.T) {
	token := "s3cret-admin-token"

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if hash == "" || hash == token {
		t.Fatalf("expected opaque hash, got %q", hash)
	}
	if !VerifyToken(hash, token) {
		t.Fatal("expected token to verify")
	}
	if VerifyToken(hash, "wrong") {
		t.Fatal("expected token mismatch to fail")
	}
}

func TestVerifyTokenWithInvalidHash(t *testing.T) {
	if VerifyToken("not-a-valid-hash", "token") {
		t.Fatal("expected invalid hash to fail verification")
	}
}
