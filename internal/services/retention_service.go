package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "dmts/internal/errors"
	"dmts/internal/logger"
	"dmts/internal/models"
)

// retentionService removes records older than the retention window: audit
// logs, resolved issues, and completed maintenance.
type retentionService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewRetentionService creates a new RetentionServicer.
func NewRetentionService(db *gorm.DB, audit AuditServicer) RetentionServicer {
	return &retentionService{db: db, audit: audit}
}

// Run performs one retention pass. The action and resource type filters
// narrow only the audit-log portion; resolved issues and completed
// maintenance older than the cutoff are always removed.
func (s *retentionService) Run(days int, action models.AuditAction, resourceType models.ResourceType) (*RetentionResult, error) {
	if days <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be a positive number")
	}

	auditDeleted, err := s.audit.Cleanup(days, action, resourceType)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := &RetentionResult{AuditLogsDeleted: auditDeleted}

	res := s.db.Where("status = ? AND updated_at < ?", models.IssueStatusResolved, cutoff).
		Delete(&models.Issue{})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	result.IssuesDeleted = res.RowsAffected

	res = s.db.Where("status = ? AND maintenance_date < ?", models.MaintenanceCompleted, cutoff).
		Delete(&models.Maintenance{})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	result.MaintenancesDeleted = res.RowsAffected

	logger.Get().Infow("retention pass complete",
		"days", days,
		"audit_logs_deleted", result.AuditLogsDeleted,
		"issues_deleted", result.IssuesDeleted,
		"maintenances_deleted", result.MaintenancesDeleted,
	)
	return result, nil
}
