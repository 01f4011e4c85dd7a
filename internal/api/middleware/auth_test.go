package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/core/domain"
)

type stubSessions struct {
	tokens map[string]*domain.IdentityRecord
}

func (s stubSessions) CurrentSession(_ context.Context, token string) (*domain.IdentityRecord, error) {
	if rec, ok := s.tokens[token]; ok {
		return rec, nil
	}
	return nil, domain.ErrUnauthorized
}

var sessions = stubSessions{tokens: map[string]*domain.IdentityRecord{
	"good-token": {ID: "coach-1", Role: domain.RoleCoach},
}}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth(sessions)
	handler := mw(func(c echo.Context) error {
		called = true
		identity, _ := c.Get(IdentityKey).(*domain.IdentityRecord)
		if identity == nil || identity.ID != "coach-1" {
			t.Fatalf("identity not set")
		}
		if c.Get("role") != "coach" {
			t.Fatalf("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic good-token",
		"unknown token":  "Bearer expired-token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := Auth(sessions)(func(c echo.Context) error {
				t.Fatalf("next should not be called")
				return nil
			})

			err := handler(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 HTTPError, got %v", err)
			}
		})
	}
}
