package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSessionSigningSecret = "secret"
	testSessionCookieName    = "meal_session"
	testSessionIdentity      = "0912345678"
)

func newTestManager(t *testing.T, now *time.Time) *SessionManager {
	t.Helper()
	manager, err := NewSessionManager(SessionManagerConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		TTL:           time.Hour,
		Clock: func() time.Time {
			return *now
		},
	})
	if err != nil {
		t.Fatalf("failed to construct manager: %v", err)
	}
	return manager
}

func TestSessionManagerIssueAndValidate(t *testing.T) {
	clockNow := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &clockNow)

	token, expiresAt, err := manager.Issue(testSessionIdentity, "An")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !expiresAt.Equal(clockNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validation failure: %v", err)
	}
	if claims.Subject != testSessionIdentity {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Name != "An" {
		t.Fatalf("unexpected name: %s", claims.Name)
	}
}

func TestSessionManagerRejectsExpiredToken(t *testing.T) {
	clockNow := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &clockNow)

	token, _, err := manager.Issue(testSessionIdentity, "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	clockNow = clockNow.Add(2 * time.Hour)

	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestSessionManagerRejectsForeignIssuer(t *testing.T) {
	clockNow := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &clockNow)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   testSessionIdentity,
			ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSessionSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := manager.ValidateToken(signed); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestSessionManagerRejectsWrongSecret(t *testing.T) {
	clockNow := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &clockNow)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultSessionIssuer,
			Subject:   testSessionIdentity,
			ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := manager.ValidateToken(signed); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestSessionManagerValidateRequestUsesCookie(t *testing.T) {
	clockNow := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	manager := newTestManager(t, &clockNow)

	token, _, err := manager.Issue(testSessionIdentity, "An")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
	if _, err := manager.ValidateRequest(request); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}

	request.AddCookie(&http.Cookie{Name: testSessionCookieName, Value: token})
	claims, err := manager.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.Subject != testSessionIdentity {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
}

func TestNewSessionManagerRequiresSecretAndCookie(t *testing.T) {
	if _, err := NewSessionManager(SessionManagerConfig{CookieName: "c"}); !errors.Is(err, ErrMissingSessionSigningKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if _, err := NewSessionManager(SessionManagerConfig{SigningSecret: []byte("s")}); !errors.Is(err, ErrMissingSessionCookieName) {
		t.Fatalf("expected missing cookie error, got %v", err)
	}
}
