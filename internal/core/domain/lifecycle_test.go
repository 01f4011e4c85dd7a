package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveState(t *testing.T) {
	active := &ProfileRecord{Status: StatusActive}
	pending := &ProfileRecord{Status: StatusPending}

	cases := []struct {
		name     string
		identity *IdentityRecord
		profile  *ProfileRecord
		want     State
	}{
		{"no identity", nil, nil, StateUnregistered},
		{"lead without row", &IdentityRecord{Role: RoleLead}, nil, StateLeadPending},
		{"lead with pending row", &IdentityRecord{Role: RoleLead}, pending, StateLeadPending},
		{"client pending", &IdentityRecord{Role: RoleClient}, pending, StateClientPending},
		{"client without row", &IdentityRecord{Role: RoleClient}, nil, StateClientPending},
		{"client active", &IdentityRecord{Role: RoleClient}, active, StateClientActive},
		{"coach", &IdentityRecord{Role: RoleCoach}, nil, StateCoachActive},
		{"unknown role", &IdentityRecord{Role: "admin"}, active, StateRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveState(tc.identity, tc.profile))
		})
	}
}

func TestState_Permits(t *testing.T) {
	assert.True(t, StateLeadPending.Permits(TransitionApprove))
	assert.True(t, StateLeadPending.Permits(TransitionUpdateLeadProfile))
	assert.False(t, StateClientPending.Permits(TransitionApprove))
	assert.False(t, StateClientActive.Permits(TransitionUpdateLeadProfile))
	assert.True(t, StateCoachActive.Permits(TransitionUpdateRole))
	assert.True(t, StateUnregistered.Permits(TransitionRegister))

	for _, tr := range []Transition{TransitionRegister, TransitionApprove, TransitionCreateCoach, TransitionUpdateRole, TransitionUpdateLeadProfile} {
		assert.False(t, StateRejected.Permits(tr), "rejected must accept nothing, got %s", tr)
	}
}

func TestResolveLandingRoute(t *testing.T) {
	assert.Equal(t, RouteSignIn, ResolveLandingRoute(nil, nil))
	assert.Equal(t, RouteAdmin, ResolveLandingRoute(&IdentityRecord{Role: RoleCoach}, nil))
	assert.Equal(t, RouteActiveClient, ResolveLandingRoute(&IdentityRecord{Role: RoleClient}, &ProfileRecord{Status: StatusActive}))
	assert.Equal(t, RoutePendingReview, ResolveLandingRoute(&IdentityRecord{Role: RoleClient}, &ProfileRecord{Status: StatusPending}))
	assert.Equal(t, RoutePendingReview, ResolveLandingRoute(&IdentityRecord{Role: RoleLead}, nil))
	assert.Equal(t, RouteSignIn, ResolveLandingRoute(&IdentityRecord{Role: "guest"}, nil))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Coach ")
	assert.NoError(t, err)
	assert.Equal(t, RoleCoach, r)

	_, err = ParseRole("admin")
	assert.ErrorIs(t, err, ErrValidation)
}
