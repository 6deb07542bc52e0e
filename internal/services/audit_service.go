package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	apperrors "dmts/internal/errors"
	"dmts/internal/logger"
	"dmts/internal/models"
	"dmts/internal/pagination"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation. When called inside a workflow
// transaction the caller passes its tx handle so the entry commits
// atomically with the operation; tx == nil falls back to the service DB.
func (s *auditService) Log(tx *gorm.DB, entry AuditEntry) {
	db := tx
	if db == nil {
		db = s.db
	}

	var changesJSON string
	if entry.Changes != nil {
		data, err := json.Marshal(entry.Changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", entry.Action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	status := entry.Status
	if status == "" {
		status = models.AuditStatusSuccess
	}

	row := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		ResourceName: entry.ResourceName,
		Description:  entry.Description,
		Changes:      changesJSON,
		Status:       status,
		ErrorMessage: entry.ErrorMessage,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Timestamp:    time.Now(),
	}

	if err := db.Create(row).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", entry.UserID,
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
		)
	}
}

func (s *auditService) filtered(filter AuditFilter) *gorm.DB {
	q := s.db.Model(&models.AuditLog{})
	if filter.StartDate != nil && filter.EndDate != nil {
		q = q.Where("timestamp BETWEEN ? AND ?", *filter.StartDate, *filter.EndDate)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

// List returns audit log entries matching the filter, newest first.
func (s *auditService) List(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	page.Defaults()

	var total int64
	if err := s.filtered(filter).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.AuditLog
	err := s.filtered(filter).
		Preload("User").
		Order("timestamp DESC").
		Scopes(pagination.Paginate(page)).
		Find(&logs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(logs, page.Page, page.PageSize, total)
	return &resp, nil
}

// Cleanup deletes audit rows strictly older than now minus days, optionally
// narrowed by action and resource type, and returns the deleted count.
func (s *auditService) Cleanup(days int, action models.AuditAction, resourceType models.ResourceType) (int64, error) {
	if days <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be a positive number")
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	q := s.db.Where("timestamp < ?", cutoff)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	if resourceType != "" {
		q = q.Where("resource_type = ?", resourceType)
	}

	result := q.Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}

// ExportCSV streams the filtered audit trail as CSV.
func (s *auditService) ExportCSV(w io.Writer, filter AuditFilter) error {
	var logs []models.AuditLog
	err := s.filtered(filter).Preload("User").Order("timestamp DESC").Find(&logs).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"ID", "Timestamp", "User", "Action", "Resource Type",
		"Resource ID", "Resource Name", "Description", "Status",
		"IP Address", "User Agent",
	}
	if err := cw.Write(header); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range logs {
		entry := &logs[i]
		username := "System"
		if entry.User != nil {
			username = entry.User.Username
		}
		resourceID := ""
		if entry.ResourceID != nil {
			resourceID = fmt.Sprintf("%d", *entry.ResourceID)
		}
		record := []string{
			fmt.Sprintf("%d", entry.ID),
			entry.Timestamp.Format(time.RFC3339),
			username,
			string(entry.Action),
			string(entry.ResourceType),
			resourceID,
			entry.ResourceName,
			entry.Description,
			entry.Status,
			entry.IPAddress,
			entry.UserAgent,
		}
		if err := cw.Write(record); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
