package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coachline/coaching-core/internal/core/domain"
)

func TestAuditHandler_RoleDrift(t *testing.T) {
	e := newEcho()
	auditor := stubAuditor{mismatches: []domain.RoleMismatch{
		{ID: "a", IdentityRole: domain.RoleLead, ProfileRole: domain.RoleClient},
		{ID: "b", IdentityRole: domain.RoleClient, ProfileRole: domain.RoleCoach},
		{ID: "c", IdentityRole: domain.RoleCoach, ProfileRole: domain.RoleLead},
	}}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/admin/role-drift?limit=2", nil), rec)
	if err := NewAuditHandler(auditor).RoleDrift(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp roleDriftResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Count != 2 || !resp.Truncated || resp.Mismatches[0].ID != "a" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuditHandler_RoleDrift_Errors(t *testing.T) {
	e := newEcho()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/admin/role-drift?limit=zero", nil), httptest.NewRecorder())
	if err := NewAuditHandler(stubAuditor{}).RoleDrift(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/admin/role-drift", nil), httptest.NewRecorder())
	if err := NewAuditHandler(stubAuditor{err: errors.New("mongo down")}).RoleDrift(c); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
