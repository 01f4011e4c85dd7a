package ports

import (
	"context"
	"iter"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// LifecycleService drives every transition that touches both stores.
type LifecycleService interface {
	Register(ctx context.Context, in domain.Registration) (*domain.Account, error)
	Approve(ctx context.Context, approver domain.Actor, leadID string) (*domain.Account, error)
	CreateCoach(ctx context.Context, creator domain.Actor, in domain.CoachInput) (*domain.Account, error)
	UpdateRole(ctx context.Context, actor domain.Actor, userID string, newRole domain.Role) (*domain.Account, error)
	UpdateLeadProfile(ctx context.Context, actor domain.Actor, userID string, fields domain.LeadProfileFields) (*domain.IdentityRecord, error)
	Landing(ctx context.Context, actor domain.Actor) (domain.Route, error)
}

// SessionService handles sign-in for the caller-facing surface.
type SessionService interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, domain.Route, error)
}

// RoleAuditor reports identities whose role disagrees with their profile row.
type RoleAuditor interface {
	RoleConsistency(ctx context.Context) iter.Seq2[domain.RoleMismatch, error]
}
