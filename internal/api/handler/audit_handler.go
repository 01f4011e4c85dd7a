package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

const (
	defaultDriftLimit = 100
	maxDriftLimit     = 1000
)

// AuditHandler serves the role consistency report.
type AuditHandler struct {
	auditor ports.RoleAuditor
}

func NewAuditHandler(auditor ports.RoleAuditor) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

// RoleDrift handles GET /v1/admin/role-drift.
//
// @Summary      List identities whose role disagrees with their profile
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum mismatches to return (default 100, max 1000)"
// @Success      200    {object}  roleDriftResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /v1/admin/role-drift [get]
func (h *AuditHandler) RoleDrift(c echo.Context) error {
	limit := defaultDriftLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return &domain.ValidationError{Field: "limit", Reason: "must be a positive integer"}
		}
		limit = min(n, maxDriftLimit)
	}

	resp := roleDriftResponse{Mismatches: []domain.RoleMismatch{}}
	for m, err := range h.auditor.RoleConsistency(c.Request().Context()) {
		if err != nil {
			return domain.ErrUnavailable
		}
		if len(resp.Mismatches) == limit {
			resp.Truncated = true
			break
		}
		resp.Mismatches = append(resp.Mismatches, m)
	}
	resp.Count = len(resp.Mismatches)
	return c.JSON(http.StatusOK, resp)
}
