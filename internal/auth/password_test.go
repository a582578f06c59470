package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "secret1" {
		t.Fatalf("HashPassword() returned the plaintext")
	}

	t.Run("Correct Password", func(t *testing.T) {
		ok, err := ComparePassword(hash, "secret1")
		if err != nil || !ok {
			t.Errorf("ComparePassword() = %v, %v; want true, nil", ok, err)
		}
	})

	t.Run("Other Strings", func(t *testing.T) {
		for _, other := range []string{"", "secret", "secret12", "Secret1", " secret1"} {
			ok, err := ComparePassword(hash, other)
			if err != nil || ok {
				t.Errorf("ComparePassword(%q) = %v, %v; want false, nil", other, ok, err)
			}
		}
	})

	t.Run("Salted", func(t *testing.T) {
		again, err := HashPassword("secret1", bcrypt.MinCost)
		if err != nil {
			t.Fatalf("HashPassword() error = %v", err)
		}
		if again == hash {
			t.Errorf("HashPassword() produced identical hashes for the same password")
		}
	})

	t.Run("Malformed Hash", func(t *testing.T) {
		if _, err := ComparePassword("not-a-hash", "secret1"); err == nil {
			t.Errorf("ComparePassword() with malformed hash expected error")
		}
	})
}
