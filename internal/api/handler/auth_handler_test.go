package handler

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/api/middleware"
	"github.com/coachline/coaching-core/internal/core/domain"
)

type stubLifecycle struct {
	registerFn    func(ctx context.Context, in domain.Registration) (*domain.Account, error)
	approveFn     func(ctx context.Context, approver domain.Actor, leadID string) (*domain.Account, error)
	createCoachFn func(ctx context.Context, creator domain.Actor, in domain.CoachInput) (*domain.Account, error)
	updateRoleFn  func(ctx context.Context, actor domain.Actor, userID string, role domain.Role) (*domain.Account, error)
	updateLeadFn  func(ctx context.Context, actor domain.Actor, userID string, f domain.LeadProfileFields) (*domain.IdentityRecord, error)
	landingFn     func(ctx context.Context, actor domain.Actor) (domain.Route, error)
	signInFn      func(ctx context.Context, email, password string) (*domain.Session, domain.Route, error)
}

func (s *stubLifecycle) Register(ctx context.Context, in domain.Registration) (*domain.Account, error) {
	return s.registerFn(ctx, in)
}

func (s *stubLifecycle) Approve(ctx context.Context, approver domain.Actor, leadID string) (*domain.Account, error) {
	return s.approveFn(ctx, approver, leadID)
}

func (s *stubLifecycle) CreateCoach(ctx context.Context, creator domain.Actor, in domain.CoachInput) (*domain.Account, error) {
	return s.createCoachFn(ctx, creator, in)
}

func (s *stubLifecycle) UpdateRole(ctx context.Context, actor domain.Actor, userID string, role domain.Role) (*domain.Account, error) {
	return s.updateRoleFn(ctx, actor, userID, role)
}

func (s *stubLifecycle) UpdateLeadProfile(ctx context.Context, actor domain.Actor, userID string, f domain.LeadProfileFields) (*domain.IdentityRecord, error) {
	return s.updateLeadFn(ctx, actor, userID, f)
}

func (s *stubLifecycle) Landing(ctx context.Context, actor domain.Actor) (domain.Route, error) {
	return s.landingFn(ctx, actor)
}

func (s *stubLifecycle) SignIn(ctx context.Context, email, password string) (*domain.Session, domain.Route, error) {
	return s.signInFn(ctx, email, password)
}

type stubAuditor struct {
	mismatches []domain.RoleMismatch
	err        error
}

func (s stubAuditor) RoleConsistency(context.Context) iter.Seq2[domain.RoleMismatch, error] {
	return func(yield func(domain.RoleMismatch, error) bool) {
		for _, m := range s.mismatches {
			if !yield(m, nil) {
				return
			}
		}
		if s.err != nil {
			yield(domain.RoleMismatch{}, s.err)
		}
	}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func asCoach(c echo.Context) {
	c.Set(middleware.IdentityKey, &domain.IdentityRecord{ID: "coach-1", Role: domain.RoleCoach})
}

func TestAuthHandler_SignUp_Success(t *testing.T) {
	e := newEcho()
	stub := &stubLifecycle{
		registerFn: func(ctx context.Context, in domain.Registration) (*domain.Account, error) {
			if in.Kind != domain.KindLeadIntake || in.Intake.Goal != "marathon" || in.Intake.Age == nil || *in.Intake.Age != 34 {
				t.Fatalf("unexpected registration: %+v", in)
			}
			return &domain.Account{
				Identity: domain.IdentityRecord{ID: "u1", Email: in.Email, Role: domain.RoleLead, PasswordHash: "hash"},
				Profile:  &domain.ProfileRecord{ID: "u1", Status: domain.StatusPending, Role: domain.RoleLead},
			}, nil
		},
	}
	handler := NewAuthHandler(stub, stub)

	body := `{"kind":"lead-intake","email":"lena@example.com","password":"pass12345","intake":{"name":"Lena","goal":"marathon","age":34}}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/sign-up", body), rec)

	if err := handler.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	identity, ok := resp["identity"].(map[string]any)
	if !ok {
		t.Fatalf("expected identity in response")
	}
	if identity["role"] != "lead" {
		t.Fatalf("unexpected identity payload: %+v", identity)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_SignUp_MissingFields(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubLifecycle{}, &stubLifecycle{})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/sign-up", `{"kind":"lead-intake"}`), rec)

	err := handler.SignUp(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthHandler_SignUp_PropagatesConflict(t *testing.T) {
	e := newEcho()
	stub := &stubLifecycle{
		registerFn: func(context.Context, domain.Registration) (*domain.Account, error) {
			return nil, domain.NewConflict(domain.ErrEmailTaken)
		},
	}
	handler := NewAuthHandler(stub, stub)

	body := `{"kind":"client-intake","email":"dup@example.com","password":"pass12345","intake":{"name":"Dup"}}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/sign-up", body), httptest.NewRecorder())

	if err := handler.SignUp(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestAuthHandler_SignIn(t *testing.T) {
	e := newEcho()
	expires := time.Now().Add(time.Hour).UTC()
	stub := &stubLifecycle{
		signInFn: func(_ context.Context, email, password string) (*domain.Session, domain.Route, error) {
			if password != "pass12345" {
				return nil, domain.RouteSignIn, domain.ErrUnauthorized
			}
			return &domain.Session{Token: "tok", ExpiresAt: expires, Identity: &domain.IdentityRecord{ID: "c1", Email: email, Role: domain.RoleCoach}}, domain.RouteAdmin, nil
		},
	}
	handler := NewAuthHandler(stub, stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/sign-in", `{"email":"c@example.com","password":"pass12345"}`), rec)
	if err := handler.SignIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "tok" || resp.Route != domain.RouteAdmin {
		t.Fatalf("unexpected response: %+v", resp)
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/sign-in", `{"email":"c@example.com","password":"nope"}`), httptest.NewRecorder())
	if err := handler.SignIn(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthHandler_Landing_UsesActor(t *testing.T) {
	e := newEcho()
	stub := &stubLifecycle{
		landingFn: func(_ context.Context, actor domain.Actor) (domain.Route, error) {
			if actor.ID != "coach-1" {
				return domain.RouteSignIn, domain.ErrUnauthorized
			}
			return domain.RouteAdmin, nil
		},
	}
	handler := NewAuthHandler(stub, stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/me/landing", nil), rec)
	asCoach(c)
	if err := handler.Landing(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"admin-area"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
