package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/woopsyyy/portal-credsvc/internal/services"
	"github.com/woopsyyy/portal-credsvc/pkg/errors"
	"github.com/woopsyyy/portal-credsvc/pkg/response"
)

// AuditHandler exposes the administrative audit trail.
type AuditHandler struct {
	service *services.AuditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

type auditListResponse struct {
	Success bool        `json:"success"`
	Entries interface{} `json:"entries"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
	Total   int64       `json:"total"`
}

// List handles GET /api/admin/audit with pagination and simple filters.
func (h *AuditHandler) List(c *gin.Context) {
	page, ok := parseIntQuery(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := parseIntQuery(c, "per_page", 50)
	if !ok {
		return
	}

	filters := services.AuditFilters{
		Action: strings.TrimSpace(c.Query("action")),
		Result: strings.TrimSpace(c.Query("result")),
	}
	if raw := strings.TrimSpace(c.Query("target_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, errors.NewBadRequest("target_id must be a positive integer"))
			return
		}
		filters.TargetID = &id
	}

	entries, total, err := h.service.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.JSON(c, http.StatusOK, auditListResponse{
		Success: true,
		Entries: entries,
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}
