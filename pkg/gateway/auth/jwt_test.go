package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsort/triage/pkg/common/models"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret-0123456789", "vitalsort", "triage-staff", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func nurseUser() models.User {
	return models.User{
		ID:    uuid.New(),
		Email: "enfermera@hospital.example",
		Name:  "Ana",
		Role:  "nurse",
	}
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	m := newTestManager(t)
	user := nurseUser()

	token, err := m.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != "nurse" || claims.Email != user.Email {
		t.Fatalf("claims do not match user: %+v", claims)
	}
}

func TestShortSecretIsRejected(t *testing.T) {
	if _, err := NewJWTManager("short", "vitalsort", "triage-staff", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTamperedTokenIsRejected(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueToken(nurseUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	parts := strings.Split(token, ".")
	adminClaims, err := encodeSegment(map[string]interface{}{"role": "admin"})
	if err != nil {
		t.Fatalf("encodeSegment failed: %v", err)
	}
	forged := strings.Join([]string{parts[0], adminClaims, parts[2]}, ".")

	if _, err := m.ValidateToken(context.Background(), forged); err == nil {
		t.Fatal("expected forged token to be rejected")
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	m := newTestManager(t)
	token, err := m.IssueToken(nurseUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	m.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestWrongAudienceIsRejected(t *testing.T) {
	issuing := newTestManager(t)
	token, err := issuing.IssueToken(nurseUser())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	validating, err := NewJWTManager("test-secret-0123456789", "vitalsort", "other-audience", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	if _, err := validating.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected audience mismatch to be rejected")
	}
}
