package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
)

func TestJWTRoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer("secret", time.Hour, "voting-app")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	token, expiresAt, err := issuer.Issue(entities.Identity{VoterID: "v1", Email: "ada@school.edu", IsAdmin: true}, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	identity, err := issuer.Verify(token, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.VoterID != "v1" || identity.Email != "ada@school.edu" || !identity.IsAdmin {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestJWTDistinguishesExpiredFromMalformed(t *testing.T) {
	issuer, err := NewJWTIssuer("secret", time.Hour, "")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	token, _, err := issuer.Issue(entities.Identity{VoterID: "v1"}, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.Verify(token, now.Add(2*time.Hour)); !errors.Is(err, domainerrors.ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}
	if _, err := issuer.Verify("not-a-token", now); !errors.Is(err, domainerrors.ErrTokenMalformed) {
		t.Fatalf("expected malformed token, got %v", err)
	}

	other, _ := NewJWTIssuer("other-secret", time.Hour, "")
	if _, err := other.Verify(token, now); !errors.Is(err, domainerrors.ErrTokenMalformed) {
		t.Fatalf("expected signature mismatch to be malformed, got %v", err)
	}
	if !errors.Is(domainerrors.ErrTokenExpired, domainerrors.ErrUnauthorized) {
		t.Fatalf("expired token must be an unauthorized error")
	}
}

func TestNewJWTIssuerRequiresSecret(t *testing.T) {
	if _, err := NewJWTIssuer("  ", time.Hour, ""); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{Cost: MinBcryptCost}
	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not be the plaintext")
	}
	if err := hasher.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := hasher.Compare(hash, "wrong horse"); !errors.Is(err, domainerrors.ErrInvalidCredential) {
		t.Fatalf("expected invalid credential, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("x", 80)); !errors.Is(err, domainerrors.ErrPasswordTooLong) {
		t.Fatalf("expected password too long, got %v", err)
	}
}
