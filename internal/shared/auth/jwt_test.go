package auth

import (
	"testing"
	"time"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

func testUser() *models.User {
	return &models.User{
		ID:    42,
		Email: "viewer@company.com",
		Role:  models.RoleViewer,
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", 30*time.Minute)

	token, err := svc.Sign(testUser())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("user_id = %d, want 42", claims.UserID)
	}
	if claims.Email != "viewer@company.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != models.RoleViewer {
		t.Errorf("role = %q, want viewer", claims.Role)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.Sign(testUser())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewTokenService("secret-a", 30*time.Minute)
	verifier := NewTokenService("secret-b", 30*time.Minute)

	token, err := signer.Sign(testUser())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", 30*time.Minute)
	if _, err := svc.Verify("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("hunter22", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("hunter23", hash) {
		t.Error("wrong password accepted")
	}
}
