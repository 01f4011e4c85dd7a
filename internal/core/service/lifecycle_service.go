package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coachline/coaching-core/internal/core/authz"
	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

const defaultStoreTimeout = 5 * time.Second

// LifecycleService is the lifecycle engine. Each transition is a small saga: the
// store writes happen in a fixed order, never in parallel, and each write that can
// be followed by a failing one has a named compensating action.
//
// Write orders and compensations:
//
//	register      identity.create -> profile.insert          (none: PartialRegistration, retry resumes)
//	approve       profile.insert|promote -> identity.role    (restore previous profile row)
//	create_coach  identity.create -> profile.insert          (delete identity)
//	update_role   profile.role -> identity.role              (restore previous profile role)
//
// None of these is a transaction. A failed compensation leaves drift that the
// consistency checker reports.
type LifecycleService struct {
	identities ports.IdentityStore
	profiles   ports.ProfileStore
	notifier   ports.Notifier
	timeout    time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

var (
	_ ports.LifecycleService = (*LifecycleService)(nil)
	_ ports.SessionService   = (*LifecycleService)(nil)
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notification) {}

// NewLifecycleService wires the engine. A nil notifier disables notifications and a
// non-positive storeTimeout falls back to five seconds per store call.
func NewLifecycleService(
	identities ports.IdentityStore,
	profiles ports.ProfileStore,
	notifier ports.Notifier,
	storeTimeout time.Duration,
	log zerolog.Logger,
) *LifecycleService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &LifecycleService{
		identities: identities,
		profiles:   profiles,
		notifier:   notifier,
		timeout:    storeTimeout,
		log:        log,
		now:        time.Now,
	}
}

// Register creates an identity and a pending profile for a new prospective user.
// kind selects the role: lead-intake -> lead, client-intake -> client. When the
// profile insert fails the identity is kept and a retry with the same credentials
// completes the registration.
func (s *LifecycleService) Register(ctx context.Context, in domain.Registration) (acct *domain.Account, err error) {
	defer func() { s.observe(domain.TransitionRegister, err) }()

	if err = in.Validate(); err != nil {
		return nil, err
	}
	in.Email = domain.NormalizeEmail(in.Email)
	if in.Intake.AssignedCoachID != nil {
		if err = s.checkCoachAssignment(ctx, *in.Intake.AssignedCoachID); err != nil {
			return nil, err
		}
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	var identity *domain.IdentityRecord
	err = s.storeCall(ctx, domain.StoreIdentity, "create_account", func(ctx context.Context) error {
		var cerr error
		identity, cerr = s.identities.CreateAccount(ctx, domain.NewAccount{
			Email:    in.Email,
			Password: in.Password,
			Role:     in.Kind.Role(),
			Name:     in.Intake.Name,
			Goal:     in.Intake.Goal,
			Notes:    in.Intake.Notes,
		})
		return cerr
	})
	switch {
	case errors.Is(err, domain.ErrIdentityExists):
		return s.resumeRegistration(ctx, in)
	case errors.Is(err, domain.ErrValidation):
		return nil, err
	case err != nil:
		return nil, s.unavailable(domain.TransitionRegister, domain.StoreIdentity, "create_account", err)
	}

	profile, err := s.insertPendingProfile(ctx, identity.ID, in)
	if err != nil {
		return nil, s.syncFailure(&domain.SyncError{
			Kind:       domain.ErrPartialRegistration,
			Transition: domain.TransitionRegister,
			ID:         identity.ID,
			Succeeded:  domain.StoreIdentity,
			Failed:     domain.StoreProfile,
			Detail:     "identity kept; retry registration with the same credentials",
			Cause:      err,
		})
	}

	s.log.Info().
		Str("id", identity.ID).
		Str("role", string(identity.Role)).
		Str("kind", string(in.Kind)).
		Msg("registration completed")
	s.notify(ctx, domain.NotifyRegistered, identity, "")
	return &domain.Account{Identity: *identity, Profile: profile}, nil
}

// resumeRegistration finishes a registration whose profile insert previously failed.
// The caller must present the original credentials; anything else is a duplicate email.
func (s *LifecycleService) resumeRegistration(ctx context.Context, in domain.Registration) (*domain.Account, error) {
	taken := domain.NewConflict(domain.ErrEmailTaken)

	var session *domain.Session
	err := s.storeCall(ctx, domain.StoreIdentity, "issue_session", func(ctx context.Context) error {
		var serr error
		session, serr = s.identities.IssueSession(ctx, in.Email, in.Password)
		return serr
	})
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return nil, taken
	}
	if err != nil {
		return nil, s.unavailable(domain.TransitionRegister, domain.StoreIdentity, "issue_session", err)
	}

	identity := session.Identity
	if identity.Role != in.Kind.Role() {
		return nil, taken
	}
	existing, err := s.loadProfile(ctx, domain.TransitionRegister, identity.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, taken
	}

	profile, err := s.insertPendingProfile(ctx, identity.ID, in)
	if err != nil {
		if errors.Is(err, domain.ErrProfileExists) {
			return nil, taken
		}
		return nil, s.syncFailure(&domain.SyncError{
			Kind:       domain.ErrPartialRegistration,
			Transition: domain.TransitionRegister,
			ID:         identity.ID,
			Succeeded:  domain.StoreIdentity,
			Failed:     domain.StoreProfile,
			Detail:     "resume failed; identity kept",
			Cause:      err,
		})
	}

	s.log.Info().Str("id", identity.ID).Msg("resumed partial registration")
	s.notify(ctx, domain.NotifyRegistered, identity, "")
	return &domain.Account{Identity: *identity, Profile: profile}, nil
}

func (s *LifecycleService) insertPendingProfile(ctx context.Context, id string, in domain.Registration) (*domain.ProfileRecord, error) {
	row := &domain.ProfileRecord{
		ID:              id,
		Name:            in.Intake.Name,
		Email:           in.Email,
		Goal:            in.Intake.Goal,
		Notes:           in.Intake.Notes,
		Age:             in.Intake.Age,
		HeightCm:        in.Intake.HeightCm,
		WeightKg:        in.Intake.WeightKg,
		AssignedCoachID: in.Intake.AssignedCoachID,
		Status:          domain.StatusPending,
		Role:            in.Kind.Role(),
		CreatedAt:       s.now().UTC(),
	}
	var inserted *domain.ProfileRecord
	err := s.storeCall(ctx, domain.StoreProfile, "insert", func(ctx context.Context) error {
		var ierr error
		inserted, ierr = s.profiles.Insert(ctx, row)
		return ierr
	})
	return inserted, err
}

// checkCoachAssignment validates the optional weak reference to a coach.
func (s *LifecycleService) checkCoachAssignment(ctx context.Context, coachID string) error {
	coach, err := s.loadProfile(ctx, domain.TransitionRegister, coachID)
	if err != nil {
		return err
	}
	if coach == nil || coach.Role != domain.RoleCoach || coach.Status != domain.StatusActive {
		return &domain.ValidationError{Field: "assigned_coach_id", Reason: "must reference an active coach"}
	}
	return nil
}

// Approve promotes a lead to an active client. Step 1 materialises the active client
// profile, step 2 moves the identity role to client. An insert conflict in step 1 is
// the idempotency signal: an already active row means someone approved first.
func (s *LifecycleService) Approve(ctx context.Context, approver domain.Actor, leadID string) (acct *domain.Account, err error) {
	defer func() { s.observe(domain.TransitionApprove, err) }()

	if _, err = s.authorize(ctx, domain.TransitionApprove, approver); err != nil {
		return nil, err
	}
	identity, err := s.loadIdentity(ctx, domain.TransitionApprove, leadID)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, domain.TransitionApprove, leadID)
	if err != nil {
		return nil, err
	}

	state := domain.DeriveState(identity, profile)
	if !state.Permits(domain.TransitionApprove) {
		if state == domain.StateClientActive {
			return nil, domain.NewConflict(domain.ErrAlreadyApproved)
		}
		return nil, domain.NewConflict(domain.ErrNotALead)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1.
	approved, undo, err := s.materializeClient(ctx, identity)
	if err != nil {
		return nil, err
	}

	// Step 2.
	err = s.storeCall(ctx, domain.StoreIdentity, "update_metadata", func(ctx context.Context) error {
		return s.identities.UpdateMetadata(ctx, leadID, domain.MetadataPatch{Role: domain.Ptr(domain.RoleClient)})
	})
	if err != nil {
		se := &domain.SyncError{
			Kind:       domain.ErrRoleSyncFailure,
			Transition: domain.TransitionApprove,
			ID:         leadID,
			Succeeded:  domain.StoreProfile,
			Failed:     domain.StoreIdentity,
			Detail:     "role mismatch: profile=client, identity=lead",
			Cause:      err,
		}
		if undo != nil {
			// A concurrent approval may have rolled the identity forward onto our row.
			// Reverting under it would leave identity=client over a pending lead row.
			if s.identityIsClient(ctx, leadID) {
				return s.approvedConcurrently(ctx, approver, identity, approved)
			}
			se.CompensationErr = s.compensate(ctx, domain.TransitionApprove, domain.StoreProfile, "revert_approval", undo)
			se.Compensated = se.CompensationErr == nil
			if se.Compensated && s.identityIsClient(ctx, leadID) {
				again, _, rerr := s.materializeClient(ctx, identity)
				if rerr == nil {
					return s.approvedConcurrently(ctx, approver, identity, again)
				}
				se.Compensated = false
				se.Detail = "role mismatch: profile=lead, identity=client"
			} else if se.Compensated {
				se.Detail = "profile reverted to pending lead"
			}
		}
		return nil, s.syncFailure(se)
	}
	identity.Role = domain.RoleClient

	if undo == nil {
		// The row was already active: another approval won the race or an earlier
		// attempt stopped after step 1. Step 2 has now caught the identity up.
		s.log.Info().Str("id", leadID).Str("approver", approver.ID).Msg("approval already materialised; identity role synced")
		return nil, domain.NewConflict(domain.ErrAlreadyApproved)
	}

	s.log.Info().Str("id", leadID).Str("approver", approver.ID).Msg("lead approved")
	s.notify(ctx, domain.NotifyLeadApproved, identity, approver.ID)
	return &domain.Account{Identity: *identity, Profile: approved}, nil
}

// identityIsClient re-reads the identity role. A failed read counts as not client.
func (s *LifecycleService) identityIsClient(ctx context.Context, id string) bool {
	var rec *domain.IdentityRecord
	err := s.storeCall(ctx, domain.StoreIdentity, "get_by_id", func(ctx context.Context) error {
		var gerr error
		rec, gerr = s.identities.GetByID(ctx, id)
		return gerr
	})
	return err == nil && rec.Role == domain.RoleClient
}

// approvedConcurrently finishes an approval whose identity write failed after a
// concurrent approval already moved the identity to client.
func (s *LifecycleService) approvedConcurrently(ctx context.Context, approver domain.Actor, identity *domain.IdentityRecord, approved *domain.ProfileRecord) (*domain.Account, error) {
	identity.Role = domain.RoleClient
	s.log.Info().Str("id", identity.ID).Str("approver", approver.ID).Msg("lead approved; identity role synced by a concurrent approval")
	s.notify(ctx, domain.NotifyLeadApproved, identity, approver.ID)
	return &domain.Account{Identity: *identity, Profile: approved}, nil
}

// materializeClient performs approve step 1. It returns the active client row and
// the compensating action for the write it made, or a nil undo when the row was
// already active and nothing was written.
func (s *LifecycleService) materializeClient(ctx context.Context, identity *domain.IdentityRecord) (*domain.ProfileRecord, func(context.Context) error, error) {
	const tr = domain.TransitionApprove
	id := identity.ID

	row := &domain.ProfileRecord{
		ID:        id,
		Name:      identity.Name,
		Email:     identity.Email,
		Goal:      identity.Goal,
		Notes:     identity.Notes,
		Status:    domain.StatusActive,
		Role:      domain.RoleClient,
		CreatedAt: s.now().UTC(),
	}
	var inserted *domain.ProfileRecord
	err := s.storeCall(ctx, domain.StoreProfile, "insert", func(ctx context.Context) error {
		var ierr error
		inserted, ierr = s.profiles.Insert(ctx, row)
		return ierr
	})
	if err == nil {
		prev := *row
		prev.Role, prev.Status = domain.RoleLead, domain.StatusPending
		return inserted, revertProfile(s.profiles, prev), nil
	}
	if !errors.Is(err, domain.ErrProfileExists) {
		return nil, nil, s.unavailable(tr, domain.StoreProfile, "insert", err)
	}

	existing, err := s.loadProfile(ctx, tr, id)
	if err != nil {
		return nil, nil, err
	}
	if existing == nil {
		return nil, nil, s.unavailable(tr, domain.StoreProfile, "select", domain.ErrProfileNotFound)
	}
	if existing.Status == domain.StatusActive {
		return existing, nil, nil
	}

	// A pending row from lead registration: promote it, guarded on its status so a
	// concurrent approval cannot be applied twice.
	patch := domain.ProfilePatch{
		Role:         domain.Ptr(domain.RoleClient),
		Status:       domain.Ptr(domain.StatusActive),
		ExpectStatus: domain.Ptr(existing.Status),
	}
	if identity.Name != "" {
		patch.Name = domain.Ptr(identity.Name)
	}
	if identity.Goal != "" {
		patch.Goal = domain.Ptr(identity.Goal)
	}
	if identity.Notes != "" {
		patch.Notes = domain.Ptr(identity.Notes)
	}
	err = s.storeCall(ctx, domain.StoreProfile, "promote", func(ctx context.Context) error {
		return s.profiles.UpdateByID(ctx, id, patch)
	})
	if errors.Is(err, domain.ErrProfileStale) {
		current, lerr := s.loadProfile(ctx, tr, id)
		if lerr != nil {
			return nil, nil, lerr
		}
		if current != nil && current.Status == domain.StatusActive {
			return current, nil, nil
		}
		return nil, nil, domain.NewConflict(domain.ErrWrongState)
	}
	if err != nil {
		return nil, nil, s.unavailable(tr, domain.StoreProfile, "promote", err)
	}

	promoted := patch.Apply(*existing)
	return &promoted, revertProfile(s.profiles, *existing), nil
}

// revertProfile builds the compensating update for approve step 1. It puts back
// every field the step may have overwritten, as recorded in prev.
func revertProfile(profiles ports.ProfileStore, prev domain.ProfileRecord) func(context.Context) error {
	return func(ctx context.Context) error {
		return profiles.UpdateByID(ctx, prev.ID, domain.ProfilePatch{
			Role:         domain.Ptr(prev.Role),
			Status:       domain.Ptr(prev.Status),
			Name:         domain.Ptr(prev.Name),
			Goal:         domain.Ptr(prev.Goal),
			Notes:        domain.Ptr(prev.Notes),
			ExpectStatus: domain.Ptr(domain.StatusActive),
		})
	}
}

// CreateCoach provisions a coach: identity first, then an active coach profile. If the
// profile insert fails the identity is deleted so no dangling account remains.
func (s *LifecycleService) CreateCoach(ctx context.Context, creator domain.Actor, in domain.CoachInput) (acct *domain.Account, err error) {
	defer func() { s.observe(domain.TransitionCreateCoach, err) }()

	if _, err = s.authorize(ctx, domain.TransitionCreateCoach, creator); err != nil {
		return nil, err
	}
	if err = in.Validate(); err != nil {
		return nil, err
	}
	in.Email = domain.NormalizeEmail(in.Email)
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1.
	var identity *domain.IdentityRecord
	err = s.storeCall(ctx, domain.StoreIdentity, "create_account", func(ctx context.Context) error {
		var cerr error
		identity, cerr = s.identities.CreateAccount(ctx, domain.NewAccount{
			Email:    in.Email,
			Password: in.Password,
			Role:     domain.RoleCoach,
			Name:     in.Name,
		})
		return cerr
	})
	switch {
	case errors.Is(err, domain.ErrIdentityExists):
		return nil, domain.NewConflict(domain.ErrEmailTaken)
	case errors.Is(err, domain.ErrValidation):
		return nil, err
	case err != nil:
		return nil, s.unavailable(domain.TransitionCreateCoach, domain.StoreIdentity, "create_account", err)
	}

	// Step 2.
	row := &domain.ProfileRecord{
		ID:        identity.ID,
		Name:      in.Name,
		Email:     identity.Email,
		Status:    domain.StatusActive,
		Role:      domain.RoleCoach,
		CreatedAt: s.now().UTC(),
	}
	var profile *domain.ProfileRecord
	err = s.storeCall(ctx, domain.StoreProfile, "insert", func(ctx context.Context) error {
		var ierr error
		profile, ierr = s.profiles.Insert(ctx, row)
		return ierr
	})
	if err != nil {
		se := &domain.SyncError{
			Kind:       domain.ErrCoachCreationFailed,
			Transition: domain.TransitionCreateCoach,
			ID:         identity.ID,
			Succeeded:  domain.StoreIdentity,
			Failed:     domain.StoreProfile,
			Cause:      err,
		}
		se.CompensationErr = s.compensate(ctx, domain.TransitionCreateCoach, domain.StoreIdentity, "delete_account", func(ctx context.Context) error {
			return s.identities.DeleteAccount(ctx, identity.ID)
		})
		se.Compensated = se.CompensationErr == nil
		if se.Compensated {
			se.Detail = "identity rolled back"
		} else {
			se.Detail = "identity " + identity.Email + " left without profile"
		}
		return nil, s.syncFailure(se)
	}

	s.log.Info().Str("id", identity.ID).Str("creator", creator.ID).Msg("coach created")
	s.notify(ctx, domain.NotifyCoachCreated, identity, creator.ID)
	return &domain.Account{Identity: *identity, Profile: profile}, nil
}

// UpdateRole sets a new role on both records: profile first, then identity.
func (s *LifecycleService) UpdateRole(ctx context.Context, actor domain.Actor, userID string, newRole domain.Role) (acct *domain.Account, err error) {
	defer func() { s.observe(domain.TransitionUpdateRole, err) }()

	if _, err = s.authorize(ctx, domain.TransitionUpdateRole, actor); err != nil {
		return nil, err
	}
	if !newRole.Valid() {
		return nil, &domain.ValidationError{Field: "role", Reason: "must be one of: lead client coach"}
	}
	identity, err := s.loadIdentity(ctx, domain.TransitionUpdateRole, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, domain.TransitionUpdateRole, userID)
	if err != nil {
		return nil, err
	}
	if !domain.DeriveState(identity, profile).Permits(domain.TransitionUpdateRole) {
		return nil, domain.NewConflict(domain.ErrWrongState)
	}
	if profile == nil {
		return nil, domain.NewConflict(domain.ErrNoProfile)
	}
	if identity.Role == newRole && profile.Role == newRole {
		return &domain.Account{Identity: *identity, Profile: profile}, nil
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	previous := profile.Role

	// Step 1.
	err = s.storeCall(ctx, domain.StoreProfile, "update_role", func(ctx context.Context) error {
		return s.profiles.UpdateByID(ctx, userID, domain.ProfilePatch{Role: domain.Ptr(newRole)})
	})
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, domain.NewConflict(domain.ErrNoProfile)
	}
	if err != nil {
		return nil, s.unavailable(domain.TransitionUpdateRole, domain.StoreProfile, "update_role", err)
	}

	// Step 2.
	err = s.storeCall(ctx, domain.StoreIdentity, "update_metadata", func(ctx context.Context) error {
		return s.identities.UpdateMetadata(ctx, userID, domain.MetadataPatch{Role: domain.Ptr(newRole)})
	})
	if err != nil {
		se := &domain.SyncError{
			Kind:       domain.ErrRoleSyncFailure,
			Transition: domain.TransitionUpdateRole,
			ID:         userID,
			Succeeded:  domain.StoreProfile,
			Failed:     domain.StoreIdentity,
			Detail:     fmt.Sprintf("role mismatch: profile=%s, identity=%s", newRole, identity.Role),
			Cause:      err,
		}
		se.CompensationErr = s.compensate(ctx, domain.TransitionUpdateRole, domain.StoreProfile, "restore_role", func(ctx context.Context) error {
			return s.profiles.UpdateByID(ctx, userID, domain.ProfilePatch{Role: domain.Ptr(previous)})
		})
		se.Compensated = se.CompensationErr == nil
		if se.Compensated {
			se.Detail = fmt.Sprintf("profile role restored to %s", previous)
		}
		return nil, s.syncFailure(se)
	}

	s.log.Info().
		Str("id", userID).
		Str("actor", actor.ID).
		Str("from", string(identity.Role)).
		Str("to", string(newRole)).
		Msg("role updated")

	identity.Role = newRole
	profile.Role = newRole
	return &domain.Account{Identity: *identity, Profile: profile}, nil
}

// UpdateLeadProfile merges coach edits into a lead's identity metadata. Only leads may
// be edited; the profile row is not touched.
func (s *LifecycleService) UpdateLeadProfile(ctx context.Context, actor domain.Actor, userID string, fields domain.LeadProfileFields) (rec *domain.IdentityRecord, err error) {
	defer func() { s.observe(domain.TransitionUpdateLeadProfile, err) }()

	if _, err = s.authorize(ctx, domain.TransitionUpdateLeadProfile, actor); err != nil {
		return nil, err
	}
	if err = fields.Validate(); err != nil {
		return nil, err
	}
	identity, err := s.loadIdentity(ctx, domain.TransitionUpdateLeadProfile, userID)
	if err != nil {
		return nil, err
	}
	if !domain.DeriveState(identity, nil).Permits(domain.TransitionUpdateLeadProfile) {
		return nil, domain.NewConflict(domain.ErrTargetNotLead)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	patch := fields.Patch()
	err = s.storeCall(ctx, domain.StoreIdentity, "update_metadata", func(ctx context.Context) error {
		return s.identities.UpdateMetadata(ctx, userID, patch)
	})
	switch {
	case errors.Is(err, domain.ErrIdentityExists):
		return nil, domain.NewConflict(domain.ErrEmailTaken)
	case errors.Is(err, domain.ErrIdentityNotFound):
		return nil, fmt.Errorf("identity %s: %w", userID, domain.ErrNotFound)
	case err != nil:
		return nil, s.unavailable(domain.TransitionUpdateLeadProfile, domain.StoreIdentity, "update_metadata", err)
	}

	updated := patch.Apply(*identity)
	s.log.Info().Str("id", userID).Str("actor", actor.ID).Msg("lead profile updated")
	return &updated, nil
}

// Landing resolves where the acting identity should be sent after authenticating.
func (s *LifecycleService) Landing(ctx context.Context, actor domain.Actor) (domain.Route, error) {
	if actor.ID == "" {
		return domain.RouteSignIn, domain.ErrUnauthorized
	}
	identity, err := s.loadIdentity(ctx, "landing", actor.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RouteSignIn, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.RouteSignIn, err
	}
	profile, err := s.loadProfile(ctx, "landing", actor.ID)
	if err != nil {
		return domain.RouteSignIn, err
	}
	return domain.ResolveLandingRoute(identity, profile), nil
}

// SignIn issues a session and resolves the landing route for it.
func (s *LifecycleService) SignIn(ctx context.Context, email, password string) (*domain.Session, domain.Route, error) {
	var session *domain.Session
	err := s.storeCall(ctx, domain.StoreIdentity, "issue_session", func(ctx context.Context) error {
		var serr error
		session, serr = s.identities.IssueSession(ctx, email, password)
		return serr
	})
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return nil, domain.RouteSignIn, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, domain.RouteSignIn, s.unavailable("sign_in", domain.StoreIdentity, "issue_session", err)
	}
	profile, err := s.loadProfile(ctx, "sign_in", session.Identity.ID)
	if err != nil {
		return nil, domain.RouteSignIn, err
	}
	return session, domain.ResolveLandingRoute(session.Identity, profile), nil
}

// authorize loads the acting identity and applies the coach gate.
func (s *LifecycleService) authorize(ctx context.Context, tr domain.Transition, actor domain.Actor) (*domain.IdentityRecord, error) {
	if actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	identity, err := s.loadIdentity(ctx, tr, actor.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := authz.RequireCoach(identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *LifecycleService) loadIdentity(ctx context.Context, tr domain.Transition, id string) (*domain.IdentityRecord, error) {
	var rec *domain.IdentityRecord
	err := s.storeCall(ctx, domain.StoreIdentity, "get_by_id", func(ctx context.Context) error {
		var gerr error
		rec, gerr = s.identities.GetByID(ctx, id)
		return gerr
	})
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, fmt.Errorf("identity %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, s.unavailable(tr, domain.StoreIdentity, "get_by_id", err)
	}
	return rec, nil
}

// loadProfile returns nil without error when the id has no profile row.
func (s *LifecycleService) loadProfile(ctx context.Context, tr domain.Transition, id string) (*domain.ProfileRecord, error) {
	var rec *domain.ProfileRecord
	err := s.storeCall(ctx, domain.StoreProfile, "select_by_id", func(ctx context.Context) error {
		var gerr error
		rec, gerr = s.profiles.SelectByID(ctx, id)
		return gerr
	})
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.unavailable(tr, domain.StoreProfile, "select_by_id", err)
	}
	return rec, nil
}

func (s *LifecycleService) notify(ctx context.Context, kind domain.NotificationKind, identity *domain.IdentityRecord, actorID string) {
	s.notifier.Notify(context.WithoutCancel(ctx), domain.Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		SubjectID:  identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	})
}
