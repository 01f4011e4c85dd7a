package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coachline/coaching-core/internal/core/domain"
)

func TestHasCoachAccess_IgnoresProfileStatus(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleLead, domain.RoleClient, "", "admin"} {
		assert.False(t, HasCoachAccess(&domain.IdentityRecord{ID: "x", Role: role}), "role %q", role)
	}
	assert.False(t, HasCoachAccess(nil))
	// The gate has no profile input at all, so a coach with a pending or missing
	// profile row passes.
	assert.True(t, HasCoachAccess(&domain.IdentityRecord{ID: "c", Role: domain.RoleCoach}))
}

func TestRequireRole(t *testing.T) {
	assert.ErrorIs(t, RequireRole(nil, domain.RoleCoach), domain.ErrUnauthorized)
	assert.ErrorIs(t, RequireRole(&domain.IdentityRecord{Role: domain.RoleClient}, domain.RoleCoach), domain.ErrForbidden)
	assert.NoError(t, RequireRole(&domain.IdentityRecord{Role: domain.RoleClient}, domain.RoleClient))
	assert.NoError(t, RequireCoach(&domain.IdentityRecord{Role: domain.RoleCoach}))
}
