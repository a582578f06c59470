package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/chetan-code/taskcal/internal/apperr"
	"github.com/chetan-code/taskcal/internal/config"
	"github.com/chetan-code/taskcal/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

func newTestTokenManager(t *testing.T, now time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager([]byte("test-signing-secret"), config.DefaultTokenTTL)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	m.now = func() time.Time { return now }
	return m
}

func assertAuthError(t *testing.T, err error) {
	t.Helper()
	if apperr.KindOf(err) != apperr.KindAuthentication {
		t.Errorf("error = %v, want authentication error", err)
	}
}

func TestNewTokenManagerRejectsEmptySecret(t *testing.T) {
	if _, err := NewTokenManager(nil, config.DefaultTokenTTL); err == nil {
		t.Errorf("NewTokenManager(nil) expected error")
	}
	if _, err := NewTokenManager([]byte("k"), 0); err == nil {
		t.Errorf("NewTokenManager(ttl 0) expected error")
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, issuedAt)
	user := &models.User{ID: "user-1", Email: "alice@x.com", Role: models.RoleAdmin}

	token, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("Round Trip", func(t *testing.T) {
		id, err := m.Verify(token)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if id.UserID != "user-1" || id.Role != models.RoleAdmin {
			t.Errorf("Verify() = %+v, want user-1/admin", id)
		}
	})

	t.Run("Expires After Seven Days", func(t *testing.T) {
		m.now = func() time.Time { return issuedAt.Add(7*24*time.Hour - time.Second) }
		if _, err := m.Verify(token); err != nil {
			t.Errorf("Verify() just before expiry error = %v", err)
		}
		m.now = func() time.Time { return issuedAt.Add(7*24*time.Hour + time.Second) }
		_, err := m.Verify(token)
		assertAuthError(t, err)
		m.now = func() time.Time { return issuedAt }
	})

	t.Run("Tampered Payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.Claims{
			UserID: "user-2",
			Role:   models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		})
		forgedString, err := forged.SigningString()
		if err != nil {
			t.Fatalf("SigningString() error = %v", err)
		}
		forgedParts := strings.Split(forgedString, ".")
		tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]
		_, err = m.Verify(tampered)
		assertAuthError(t, err)
	})

	t.Run("Tampered Signature", func(t *testing.T) {
		sig := []byte(token[strings.LastIndex(token, ".")+1:])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := token[:strings.LastIndex(token, ".")+1] + string(sig)
		_, err := m.Verify(tampered)
		assertAuthError(t, err)
	})

	t.Run("Other Secret", func(t *testing.T) {
		other, err := NewTokenManager([]byte("another-secret"), config.DefaultTokenTTL)
		if err != nil {
			t.Fatalf("NewTokenManager() error = %v", err)
		}
		other.now = m.now
		_, err = other.Verify(token)
		assertAuthError(t, err)
	})

	t.Run("Malformed and Missing", func(t *testing.T) {
		for _, bad := range []string{"", "abc", "a.b.c"} {
			_, err := m.Verify(bad)
			assertAuthError(t, err)
		}
	})
}

func TestVerifyRejectsUnsignedAndExpiryless(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	t.Run("Alg None", func(t *testing.T) {
		claims := &models.Claims{UserID: "u", Role: models.RoleUser, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("SignedString(none) error = %v", err)
		}
		_, err = m.Verify(unsigned)
		assertAuthError(t, err)
	})

	t.Run("No Expiry", func(t *testing.T) {
		claims := &models.Claims{UserID: "u", Role: models.RoleUser}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		_, err = m.Verify(signed)
		assertAuthError(t, err)
	})

	t.Run("Unknown Role", func(t *testing.T) {
		claims := &models.Claims{UserID: "u", Role: "root", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		_, err = m.Verify(signed)
		assertAuthError(t, err)
	})
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}
	for _, tc := range cases {
		got, err := BearerToken(tc.header)
		if tc.wantErr {
			assertAuthError(t, err)
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("BearerToken(%q) = %q, %v; want %q", tc.header, got, err, tc.want)
		}
	}
}
