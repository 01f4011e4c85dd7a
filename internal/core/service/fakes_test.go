package service

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
	"github.com/coachline/coaching-core/internal/infrastructure/memstore"
)

var errStoreDown = errors.New("store down")

// faults counts calls per operation and fails an operation once it has succeeded
// a configured number of times.
type faults struct {
	mu    sync.Mutex
	calls map[string]int
	rules map[string]faultRule
}

type faultRule struct {
	after int
	err   error
}

func newFaults() *faults {
	return &faults{calls: map[string]int{}, rules: map[string]faultRule{}}
}

// failAfter lets op succeed n times and then fail with err on every later call.
func (f *faults) failAfter(op string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[op] = faultRule{after: n, err: err}
}

func (f *faults) fail(op string, err error) { f.failAfter(op, 0, err) }

func (f *faults) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = map[string]faultRule{}
}

func (f *faults) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[op]
	f.calls[op] = n + 1
	if r, ok := f.rules[op]; ok && n >= r.after {
		return r.err
	}
	return nil
}

func (f *faults) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faults) resetCounts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = map[string]int{}
}

type faultyIdentityStore struct {
	inner ports.IdentityStore
	*faults
}

func (s *faultyIdentityStore) CreateAccount(ctx context.Context, in domain.NewAccount) (*domain.IdentityRecord, error) {
	if err := s.hit("create_account"); err != nil {
		return nil, err
	}
	return s.inner.CreateAccount(ctx, in)
}

func (s *faultyIdentityStore) UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) error {
	if err := s.hit("update_metadata"); err != nil {
		return err
	}
	return s.inner.UpdateMetadata(ctx, id, patch)
}

func (s *faultyIdentityStore) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	if err := s.hit("get_by_id"); err != nil {
		return nil, err
	}
	return s.inner.GetByID(ctx, id)
}

func (s *faultyIdentityStore) ListAll(ctx context.Context) iter.Seq2[*domain.IdentityRecord, error] {
	if err := s.hit("list_all"); err != nil {
		return func(yield func(*domain.IdentityRecord, error) bool) { yield(nil, err) }
	}
	return s.inner.ListAll(ctx)
}

func (s *faultyIdentityStore) DeleteAccount(ctx context.Context, id string) error {
	if err := s.hit("delete_account"); err != nil {
		return err
	}
	return s.inner.DeleteAccount(ctx, id)
}

func (s *faultyIdentityStore) IssueSession(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := s.hit("issue_session"); err != nil {
		return nil, err
	}
	return s.inner.IssueSession(ctx, email, password)
}

func (s *faultyIdentityStore) CurrentSession(ctx context.Context, token string) (*domain.IdentityRecord, error) {
	return s.inner.CurrentSession(ctx, token)
}

type faultyProfileStore struct {
	inner ports.ProfileStore
	*faults
}

func (s *faultyProfileStore) Insert(ctx context.Context, rec *domain.ProfileRecord) (*domain.ProfileRecord, error) {
	if err := s.hit("insert"); err != nil {
		return nil, err
	}
	return s.inner.Insert(ctx, rec)
}

func (s *faultyProfileStore) UpdateByID(ctx context.Context, id string, patch domain.ProfilePatch) error {
	if err := s.hit("update_by_id"); err != nil {
		return err
	}
	return s.inner.UpdateByID(ctx, id, patch)
}

func (s *faultyProfileStore) SelectByID(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	if err := s.hit("select_by_id"); err != nil {
		return nil, err
	}
	return s.inner.SelectByID(ctx, id)
}

func (s *faultyProfileStore) SelectByStatus(ctx context.Context, status domain.ProfileStatus) ([]*domain.ProfileRecord, error) {
	return s.inner.SelectByStatus(ctx, status)
}

func (s *faultyProfileStore) SelectByRole(ctx context.Context, role domain.Role) ([]*domain.ProfileRecord, error) {
	return s.inner.SelectByRole(ctx, role)
}

// hookedIdentityStore runs beforeUpdate once, ahead of the first UpdateMetadata call.
// A non-nil error from the hook fails that call.
type hookedIdentityStore struct {
	ports.IdentityStore
	once         sync.Once
	beforeUpdate func(ctx context.Context) error
}

func (s *hookedIdentityStore) UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) error {
	var err error
	s.once.Do(func() { err = s.beforeUpdate(ctx) })
	if err != nil {
		return err
	}
	return s.IdentityStore.UpdateMetadata(ctx, id, patch)
}

// hookedProfileStore runs optional hooks around every UpdateByID call.
type hookedProfileStore struct {
	ports.ProfileStore
	beforeUpdate func(ctx context.Context, id string, patch domain.ProfilePatch)
	afterUpdate  func(ctx context.Context, id string, patch domain.ProfilePatch)
}

func (s *hookedProfileStore) UpdateByID(ctx context.Context, id string, patch domain.ProfilePatch) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate(ctx, id, patch)
	}
	err := s.ProfileStore.UpdateByID(ctx, id, patch)
	if s.afterUpdate != nil {
		s.afterUpdate(ctx, id, patch)
	}
	return err
}

// expects reports whether patch is guarded on status.
func expects(patch domain.ProfilePatch, status domain.ProfileStatus) bool {
	return patch.ExpectStatus != nil && *patch.ExpectStatus == status
}

// stallingProfileStore blocks every lookup until its context ends.
type stallingProfileStore struct {
	ports.ProfileStore
}

var errNoDeadline = errors.New("lookup without deadline")

func (stallingProfileStore) SelectByID(ctx context.Context, _ string) (*domain.ProfileRecord, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errNoDeadline
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) count(kind domain.NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Kind)
	}
	return out
}

type lifecycleEnv struct {
	svc        *LifecycleService
	audit      *AuditService
	identities *faultyIdentityStore
	profiles   *faultyProfileStore
	notifier   *recordingNotifier
	coach      domain.Actor
}

const testPassword = "pass12345"

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()

	idSvc := NewIdentityService(memstore.NewIdentityRepository(), SessionConfig{
		Secret:     "secret",
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zerolog.Nop())
	env := &lifecycleEnv{
		identities: &faultyIdentityStore{inner: idSvc, faults: newFaults()},
		profiles:   &faultyProfileStore{inner: memstore.NewProfileStore(), faults: newFaults()},
		notifier:   &recordingNotifier{},
	}
	env.svc = NewLifecycleService(env.identities, env.profiles, env.notifier, time.Second, zerolog.Nop())
	env.audit = NewAuditService(env.identities, env.profiles, AuditOptions{}, zerolog.Nop())

	coach := env.seed(t, "coach@example.com", domain.RoleCoach, domain.StatusActive)
	env.coach = domain.Actor{ID: coach.ID}
	env.identities.resetCounts()
	env.profiles.resetCounts()
	return env
}

// seed writes an identity and, when status is non-empty, a matching profile row
// directly to the stores.
func (e *lifecycleEnv) seed(t *testing.T, email string, role domain.Role, status domain.ProfileStatus) *domain.IdentityRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := e.identities.inner.CreateAccount(ctx, domain.NewAccount{Email: email, Password: testPassword, Role: role, Name: "Seeded"})
	if err != nil {
		t.Fatalf("seed identity %s: %v", email, err)
	}
	if status != "" {
		_, err = e.profiles.inner.Insert(ctx, &domain.ProfileRecord{
			ID: rec.ID, Name: rec.Name, Email: rec.Email, Role: role, Status: status, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed profile %s: %v", email, err)
		}
	}
	return rec
}

func (e *lifecycleEnv) identity(t *testing.T, id string) *domain.IdentityRecord {
	t.Helper()
	rec, err := e.identities.inner.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get identity %s: %v", id, err)
	}
	return rec
}

func (e *lifecycleEnv) profile(t *testing.T, id string) *domain.ProfileRecord {
	t.Helper()
	rec, err := e.profiles.inner.SelectByID(context.Background(), id)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("select profile %s: %v", id, err)
	}
	return rec
}

func leadRegistration(email string) domain.Registration {
	return domain.Registration{
		Kind:     domain.KindLeadIntake,
		Email:    email,
		Password: testPassword,
		Intake:   domain.Intake{Name: "Lena Lead", Goal: "run a marathon", Notes: "bad knee"},
	}
}

func clientRegistration(email string) domain.Registration {
	return domain.Registration{
		Kind:     domain.KindClientIntake,
		Email:    email,
		Password: testPassword,
		Intake:   domain.Intake{Name: "Cleo Client"},
	}
}
