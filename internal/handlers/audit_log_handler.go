package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/services"
)

// AuditLogHandler handles audit trail requests.
type AuditLogHandler struct {
	auditService services.AuditServicer
}

// NewAuditLogHandler creates a new AuditLogHandler.
func NewAuditLogHandler(auditService services.AuditServicer) *AuditLogHandler {
	return &AuditLogHandler{auditService: auditService}
}

// auditListQuery holds the audit list filter parameters.
type auditListQuery struct {
	pagination.PageRequest
	StartDate    string               `form:"start_date"`
	EndDate      string               `form:"end_date"`
	Action       models.AuditAction   `form:"action" binding:"omitempty,audit_action"`
	ResourceType models.ResourceType  `form:"resource_type" binding:"omitempty,audit_resource"`
	Status       string               `form:"status" binding:"omitempty,oneof=SUCCESS FAILURE"`
}

// CleanupRequest holds the retention parameters for an on-demand cleanup.
type CleanupRequest struct {
	Days         int                 `json:"days" binding:"omitempty,min=1"`
	Action       models.AuditAction  `json:"action_type" binding:"omitempty,audit_action"`
	ResourceType models.ResourceType `json:"resource_type" binding:"omitempty,audit_resource"`
}

func (q *auditListQuery) filter() (services.AuditFilter, error) {
	f := services.AuditFilter{
		Action:       q.Action,
		ResourceType: q.ResourceType,
		Status:       q.Status,
	}
	if q.StartDate != "" {
		t, _, err := parseFilterDate(q.StartDate)
		if err != nil {
			return f, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid start_date; use RFC 3339 or YYYY-MM-DD")
		}
		f.StartDate = &t
	}
	if q.EndDate != "" {
		t, dateOnly, err := parseFilterDate(q.EndDate)
		if err != nil {
			return f, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid end_date; use RFC 3339 or YYYY-MM-DD")
		}
		if dateOnly {
			// Inclusive end of day.
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.EndDate = &t
	}
	return f, nil
}

// parseFilterDate accepts an RFC 3339 timestamp or a bare calendar date.
func parseFilterDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}

// ListAuditLogs returns a filtered, paginated slice of the audit trail.
func (h *AuditLogHandler) ListAuditLogs(c *gin.Context) {
	var q auditListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := q.filter()
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := h.auditService.List(filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CleanupAuditLogs removes audit entries older than the retention window.
func (h *AuditLogHandler) CleanupAuditLogs(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Days == 0 {
		req.Days = 90
	}

	deleted, err := h.auditService.Cleanup(req.Days, req.Action, req.ResourceType)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Deleted %d audit log(s) older than %d days", deleted, req.Days),
		"deleted": deleted,
	})
}

// ExportAuditLogs streams the filtered audit trail as a CSV download.
func (h *AuditLogHandler) ExportAuditLogs(c *gin.Context) {
	var q auditListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := q.filter()
	if err != nil {
		respondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.auditService.ExportCSV(c.Writer, filter); err != nil {
		respondWithError(c, err)
		return
	}
}
