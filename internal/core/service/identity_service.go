package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

const (
	defaultSessionTTL     = 24 * time.Hour
	defaultMinPasswordLen = 8
	sessionIssuer         = "coaching-core"
)

// SessionConfig controls password policy and token issuance.
type SessionConfig struct {
	Secret         string
	TTL            time.Duration
	MinPasswordLen int
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// sessionClaims is the JWT payload. Role is informational only; privilege checks
// always re-read the identity.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IdentityService implements ports.IdentityStore on top of an IdentityRepository:
// it owns password hashing, the minimum password length and session tokens.
type IdentityService struct {
	repo ports.IdentityRepository
	cfg  SessionConfig
	log  zerolog.Logger
	now  func() time.Time
}

var _ ports.IdentityStore = (*IdentityService)(nil)

func NewIdentityService(repo ports.IdentityRepository, cfg SessionConfig, log zerolog.Logger) *IdentityService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	if cfg.MinPasswordLen <= 0 {
		cfg.MinPasswordLen = defaultMinPasswordLen
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{repo: repo, cfg: cfg, log: log, now: time.Now}
}

func (s *IdentityService) CreateAccount(ctx context.Context, in domain.NewAccount) (*domain.IdentityRecord, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	if len(in.Password) < s.cfg.MinPasswordLen {
		return nil, &domain.ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be at least %d characters", s.cfg.MinPasswordLen),
		}
	}
	if !in.Role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Reason: "must be one of: lead client coach"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	rec := &domain.IdentityRecord{
		ID:              uuid.NewString(),
		Email:           email,
		CredentialState: domain.CredentialUnverified,
		Role:            in.Role,
		Name:            in.Name,
		Goal:            in.Goal,
		Notes:           in.Notes,
		PasswordHash:    string(hash),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *IdentityService) UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) error {
	if patch.Email != nil {
		patch.Email = domain.Ptr(domain.NormalizeEmail(*patch.Email))
	}
	return s.repo.UpdateMetadata(ctx, id, patch)
}

func (s *IdentityService) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *IdentityService) ListAll(ctx context.Context) iter.Seq2[*domain.IdentityRecord, error] {
	return s.repo.All(ctx)
}

func (s *IdentityService) DeleteAccount(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *IdentityService) IssueSession(ctx context.Context, email, password string) (*domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	rec, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	expires := s.now().Add(s.cfg.TTL)
	token, err := s.signToken(rec, expires)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, ExpiresAt: expires.UTC(), Identity: rec}, nil
}

func (s *IdentityService) CurrentSession(ctx context.Context, token string) (*domain.IdentityRecord, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}

	rec, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return rec, nil
}

func (s *IdentityService) signToken(rec *domain.IdentityRecord, expires time.Time) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   rec.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: string(rec.Role),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.log.Error().Err(err).Str("identity_id", rec.ID).Msg("failed to sign session token")
		return "", err
	}
	return signed, nil
}
