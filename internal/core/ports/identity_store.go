package ports

import (
	"context"
	"iter"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// IdentityStore is the system of record for credentials, sessions and the role tag.
type IdentityStore interface {
	// CreateAccount hashes the password and stores a new identity. A duplicate
	// email yields domain.ErrIdentityExists; a password below the minimum length
	// yields a *domain.ValidationError.
	CreateAccount(ctx context.Context, in domain.NewAccount) (*domain.IdentityRecord, error)
	UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) error
	GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error)
	// ListAll lazily yields every identity. Each range over the sequence re-reads the store.
	ListAll(ctx context.Context) iter.Seq2[*domain.IdentityRecord, error]
	DeleteAccount(ctx context.Context, id string) error
	IssueSession(ctx context.Context, email, password string) (*domain.Session, error)
	// CurrentSession resolves a session token to its identity, or domain.ErrUnauthorized.
	CurrentSession(ctx context.Context, token string) (*domain.IdentityRecord, error)
}

// IdentityRepository is the persistence layer underneath IdentityStore.
type IdentityRepository interface {
	Insert(ctx context.Context, rec *domain.IdentityRecord) error
	FindByID(ctx context.Context, id string) (*domain.IdentityRecord, error)
	FindByEmail(ctx context.Context, email string) (*domain.IdentityRecord, error)
	UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) error
	All(ctx context.Context) iter.Seq2[*domain.IdentityRecord, error]
	Delete(ctx context.Context, id string) error
}
