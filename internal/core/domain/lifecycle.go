package domain

// State is a person's lifecycle position, derived from the identity and profile
// records rather than stored.
type State string

const (
	StateUnregistered  State = "UNREGISTERED"
	StateLeadPending   State = "LEAD_PENDING"
	StateClientPending State = "CLIENT_PENDING"
	StateClientActive  State = "CLIENT_ACTIVE"
	StateCoachActive   State = "COACH_ACTIVE"
	StateRejected      State = "REJECTED"
)

// Transition names a lifecycle operation applied to a target identity.
type Transition string

const (
	TransitionRegister          Transition = "register"
	TransitionApprove           Transition = "approve"
	TransitionCreateCoach       Transition = "create_coach"
	TransitionUpdateRole        Transition = "update_role"
	TransitionUpdateLeadProfile Transition = "update_lead_profile"
)

// allowedTransitions defines which transitions a target in each state accepts.
// REJECTED is a sink and accepts nothing.
var allowedTransitions = map[State][]Transition{
	StateUnregistered:  {TransitionRegister, TransitionCreateCoach},
	StateLeadPending:   {TransitionApprove, TransitionUpdateLeadProfile, TransitionUpdateRole},
	StateClientPending: {TransitionUpdateRole},
	StateClientActive:  {TransitionUpdateRole},
	StateCoachActive:   {TransitionUpdateRole},
}

// Permits reports whether a target in state s may undergo transition t.
func (s State) Permits(t Transition) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == t {
			return true
		}
	}
	return false
}

// DeriveState computes the lifecycle state from the two records. profile may be nil.
func DeriveState(identity *IdentityRecord, profile *ProfileRecord) State {
	if identity == nil {
		return StateUnregistered
	}
	switch identity.Role {
	case RoleLead:
		return StateLeadPending
	case RoleClient:
		if profile != nil && profile.Status == StatusActive {
			return StateClientActive
		}
		return StateClientPending
	case RoleCoach:
		return StateCoachActive
	default:
		return StateRejected
	}
}

// Route is where a freshly authenticated person is sent.
type Route string

const (
	RouteAdmin         Route = "admin-area"
	RouteActiveClient  Route = "active-client-area"
	RoutePendingReview Route = "pending-review-area"
	RouteSignIn        Route = "sign-in"
)

// ResolveLandingRoute maps an identity (and its profile status where relevant) to a
// landing route. It performs no I/O.
func ResolveLandingRoute(identity *IdentityRecord, profile *ProfileRecord) Route {
	switch DeriveState(identity, profile) {
	case StateCoachActive:
		return RouteAdmin
	case StateClientActive:
		return RouteActiveClient
	case StateLeadPending, StateClientPending:
		return RoutePendingReview
	default:
		return RouteSignIn
	}
}
