package ports

import (
	"context"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// ProfileStore holds application profile rows keyed by identity id.
type ProfileStore interface {
	// Insert fails with domain.ErrProfileExists when a row with the same id exists.
	Insert(ctx context.Context, rec *domain.ProfileRecord) (*domain.ProfileRecord, error)
	// UpdateByID fails with domain.ErrProfileNotFound for unknown ids and with
	// domain.ErrProfileStale when patch.ExpectStatus no longer matches.
	UpdateByID(ctx context.Context, id string, patch domain.ProfilePatch) error
	SelectByID(ctx context.Context, id string) (*domain.ProfileRecord, error)
	SelectByStatus(ctx context.Context, status domain.ProfileStatus) ([]*domain.ProfileRecord, error)
	SelectByRole(ctx context.Context, role domain.Role) ([]*domain.ProfileRecord, error)
}
