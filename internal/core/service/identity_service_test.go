package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/infrastructure/memstore"
)

func newTestIdentityService() *IdentityService {
	return NewIdentityService(memstore.NewIdentityRepository(), SessionConfig{
		Secret:     "secret",
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zerolog.Nop())
}

func TestIdentityService_CreateAccount_Success(t *testing.T) {
	svc := newTestIdentityService()

	rec, err := svc.CreateAccount(context.Background(), domain.NewAccount{
		Email:    "  Alice@Example.com ",
		Password: "pass12345",
		Role:     domain.RoleLead,
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}
	if rec.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", rec.Email)
	}
	if rec.PasswordHash == "pass12345" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("pass12345")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if rec.CredentialState != domain.CredentialUnverified {
		t.Fatalf("unexpected credential state: %s", rec.CredentialState)
	}
}

func TestIdentityService_CreateAccount_Validation(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, domain.NewAccount{Email: "a@example.com", Password: "short", Role: domain.RoleLead})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}

	_, err = svc.CreateAccount(ctx, domain.NewAccount{Email: "a@example.com", Password: "pass12345", Role: "admin"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad role, got %v", err)
	}
}

func TestIdentityService_CreateAccount_DuplicateEmail(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()
	in := domain.NewAccount{Email: "bob@example.com", Password: "pass12345", Role: domain.RoleClient}

	if _, err := svc.CreateAccount(ctx, in); err != nil {
		t.Fatalf("first CreateAccount failed: %v", err)
	}
	in.Email = "BOB@example.com"
	if _, err := svc.CreateAccount(ctx, in); !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}

func TestIdentityService_IssueSession(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()

	rec, err := svc.CreateAccount(ctx, domain.NewAccount{Email: "carol@example.com", Password: "pass12345", Role: domain.RoleCoach})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	session, err := svc.IssueSession(ctx, "Carol@example.com", "pass12345")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected token")
	}
	if session.Identity.ID != rec.ID {
		t.Fatalf("session identity mismatch: %s != %s", session.Identity.ID, rec.ID)
	}

	parsed, err := jwt.ParseWithClaims(session.Token, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token should be valid: %v", err)
	}
	claims := parsed.Claims.(*sessionClaims)
	if claims.Subject != rec.ID || claims.Role != string(domain.RoleCoach) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIdentityService_IssueSession_InvalidCredentials(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, domain.NewAccount{Email: "dan@example.com", Password: "pass12345", Role: domain.RoleLead}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if _, err := svc.IssueSession(ctx, "dan@example.com", "wrong-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.IssueSession(ctx, "nobody@example.com", "pass12345"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestIdentityService_CurrentSession(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()

	rec, _ := svc.CreateAccount(ctx, domain.NewAccount{Email: "eve@example.com", Password: "pass12345", Role: domain.RoleClient})
	session, err := svc.IssueSession(ctx, "eve@example.com", "pass12345")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	got, err := svc.CurrentSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("expected %s, got %s", rec.ID, got.ID)
	}

	if _, err := svc.CurrentSession(ctx, "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage token, got %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.CurrentSession(ctx, session.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestIdentityService_CurrentSession_DeletedIdentity(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()

	rec, _ := svc.CreateAccount(ctx, domain.NewAccount{Email: "fay@example.com", Password: "pass12345", Role: domain.RoleLead})
	session, _ := svc.IssueSession(ctx, "fay@example.com", "pass12345")
	if err := svc.DeleteAccount(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if _, err := svc.CurrentSession(ctx, session.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestIdentityService_UpdateMetadata(t *testing.T) {
	svc := newTestIdentityService()
	ctx := context.Background()

	rec, _ := svc.CreateAccount(ctx, domain.NewAccount{Email: "gus@example.com", Password: "pass12345", Role: domain.RoleLead, Goal: "5k"})
	if _, err := svc.CreateAccount(ctx, domain.NewAccount{Email: "taken@example.com", Password: "pass12345", Role: domain.RoleLead}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	err := svc.UpdateMetadata(ctx, rec.ID, domain.MetadataPatch{Goal: domain.Ptr("10k"), Email: domain.Ptr(" GUS2@example.com")})
	if err != nil {
		t.Fatalf("UpdateMetadata returned error: %v", err)
	}
	got, _ := svc.GetByID(ctx, rec.ID)
	if got.Goal != "10k" || got.Email != "gus2@example.com" {
		t.Fatalf("unexpected record after update: %+v", got)
	}

	err = svc.UpdateMetadata(ctx, rec.ID, domain.MetadataPatch{Email: domain.Ptr("taken@example.com")})
	if !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}
