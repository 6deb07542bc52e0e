package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
)

// issueService handles the issue lifecycle.
type issueService struct {
	db            *gorm.DB
	audit         AuditServicer
	notifications NotificationServicer
}

// NewIssueService creates a new IssueServicer.
func NewIssueService(db *gorm.DB, audit AuditServicer, notifications NotificationServicer) IssueServicer {
	return &issueService{db: db, audit: audit, notifications: notifications}
}

// CreateIssue reports a new issue against a device identified by serial.
// When the device is assigned, only its holder may report against it.
// New issues always start in Pending.
func (s *issueService) CreateIssue(actor Actor, deviceSerial, description string, priority models.IssuePriority) (*models.Issue, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidIssuePriority(priority) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid priority value")
	}

	var device models.Device
	err := s.db.Where("serial_number = ?", strings.TrimSpace(deviceSerial)).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrDeviceNotFound, "Device with this serial number does not exist")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if device.AssignedToID != nil && *device.AssignedToID != actor.ID {
		return nil, apperrors.ErrNotDeviceHolder
	}

	actorID := actor.ID
	issue := &models.Issue{
		DeviceID:    device.ID,
		UserID:      &actorID,
		Description: description,
		Priority:    priority,
		Status:      models.IssueStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		issueID := issue.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionCreate,
			ResourceType: models.ResourceIssue,
			ResourceID:   &issueID,
			ResourceName: device.Name,
			Description:  fmt.Sprintf("Created issue for device %s (SN: %s)", device.Name, device.SerialNumber),
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetIssue(issue.ID)
}

// GetIssue retrieves an issue by ID.
func (s *issueService) GetIssue(issueID uint) (*models.Issue, error) {
	var issue models.Issue
	err := s.db.Preload("Device").Preload("User").Preload("AssignedTo").
		First(&issue, issueID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &issue, nil
}

// ListIssues returns all issues, newest first.
func (s *issueService) ListIssues(page pagination.PageRequest) (*pagination.PageResponse[models.Issue], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Issue{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var issues []models.Issue
	err := s.db.Preload("Device").Preload("User").
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&issues).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(issues, page.Page, page.PageSize, total)
	return &resp, nil
}

// setStatus applies a status/response change to an issue inside one
// transaction: the row update, the resolved_at bookkeeping, the
// notification fan-out on an actual transition, and the audit entry.
func (s *issueService) setStatus(actor Actor, issue *models.Issue, status *models.IssueStatus, response *string, action models.AuditAction) (*models.Issue, error) {
	oldStatus := issue.Status

	if status != nil {
		if !models.ValidIssueStatus(*status) {
			valid := []string{
				string(models.IssueStatusPending), string(models.IssueStatusInProgress),
				string(models.IssueStatusResolved), string(models.IssueStatusClosed),
			}
			return nil, apperrors.WithMessage(apperrors.ErrInvalidStatus,
				"Invalid status. Valid choices are: "+strings.Join(valid, ", "))
		}
		issue.Status = *status
	}
	if response != nil {
		issue.Response = *response
	}

	// resolved_at is written once, on the first transition to Resolved.
	if issue.Status == models.IssueStatusResolved && issue.ResolvedAt == nil {
		now := time.Now()
		issue.ResolvedAt = &now
	}

	statusChanged := issue.Status != oldStatus

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(issue).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if statusChanged {
			if err := s.notifications.IssueStatusChanged(tx, issue, issue.Device); err != nil {
				return err
			}
		}

		issueID := issue.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       action,
			ResourceType: models.ResourceIssue,
			ResourceID:   &issueID,
			ResourceName: issue.Device.Name,
			Description:  fmt.Sprintf("Updated issue for device %s (SN: %s)", issue.Device.Name, issue.Device.SerialNumber),
			Changes: map[string]interface{}{
				"old": map[string]interface{}{"status": oldStatus},
				"new": map[string]interface{}{"status": issue.Status},
			},
			IPAddress: actor.IPAddress,
			UserAgent: actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetIssue(issue.ID)
}

// UpdateIssue updates an issue's status and response fields only.
func (s *issueService) UpdateIssue(actor Actor, issueID uint, status *models.IssueStatus, response *string) (*models.Issue, error) {
	issue, err := s.GetIssue(issueID)
	if err != nil {
		return nil, err
	}
	return s.setStatus(actor, issue, status, response, models.ActionUpdate)
}

// ResolveIssue is the staff shortcut that moves an issue to Resolved with
// an optional response.
func (s *issueService) ResolveIssue(actor Actor, issueID uint, response string) (*models.Issue, error) {
	issue, err := s.GetIssue(issueID)
	if err != nil {
		return nil, err
	}
	resolved := models.IssueStatusResolved
	return s.setStatus(actor, issue, &resolved, &response, models.ActionResolve)
}

// UserIssues returns issues reported by the given user, newest first.
func (s *issueService) UserIssues(userID uint) ([]models.Issue, error) {
	var issues []models.Issue
	err := s.db.Preload("Device").Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&issues).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return issues, nil
}

// DeleteIssue removes an issue.
func (s *issueService) DeleteIssue(actor Actor, issueID uint) error {
	issue, err := s.GetIssue(issueID)
	if err != nil {
		return err
	}

	label := fmt.Sprintf("%s (SN: %s)", issue.Device.Name, issue.Device.SerialNumber)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Issue{}, issue.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		deletedID := issue.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionDelete,
			ResourceType: models.ResourceIssue,
			ResourceID:   &deletedID,
			ResourceName: issue.Device.Name,
			Description:  "Deleted issue for device " + label,
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
}
