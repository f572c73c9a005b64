package accounts

import "testing"

func TestDerivePasswordHashDeterministic(t *testing.T) {
	salt := []byte("fixed-salt-bytes")
	h1 := derivePasswordHash("hunter2", salt)
	h2 := derivePasswordHash("hunter2", salt)
	if len(h1) != hashBytes {
		t.Fatalf("len(hash) = %d, want %d", len(h1), hashBytes)
	}
	if string(h1) != string(h2) {
		t.Error("derivePasswordHash not deterministic for same password/salt")
	}
}

func TestDerivePasswordHashDiffersBySalt(t *testing.T) {
	h1 := derivePasswordHash("hunter2", []byte("salt-one-sixteen"))
	h2 := derivePasswordHash("hunter2", []byte("salt-two-sixteen"))
	if string(h1) == string(h2) {
		t.Error("derivePasswordHash produced same output for different salts")
	}
}

func TestVerifyPasswordRoundTrip(t *testing.T) {
	salt, err := newSalt()
	if err != nil {
		t.Fatalf("newSalt() error: %v", err)
	}
	if len(salt) != saltBytes {
		t.Fatalf("len(salt) = %d, want %d", len(salt), saltBytes)
	}
	hash := derivePasswordHash("correct horse battery staple", salt)

	if !verifyPassword("correct horse battery staple", hash, salt) {
		t.Error("verifyPassword rejected the correct password")
	}
	if verifyPassword("wrong password", hash, salt) {
		t.Error("verifyPassword accepted an incorrect password")
	}
}

func TestNewSaltIsRandom(t *testing.T) {
	a, err := newSalt()
	if err != nil {
		t.Fatalf("newSalt() error: %v", err)
	}
	b, err := newSalt()
	if err != nil {
		t.Fatalf("newSalt() error: %v", err)
	}
	if string(a) == string(b) {
		t.Error("newSalt produced identical salts across two calls")
	}
}
