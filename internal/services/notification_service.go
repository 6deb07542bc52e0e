package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
)

// notificationService creates workflow notifications and serves the
// client-facing notification endpoints. Fan-out methods run on the calling
// workflow's transaction so a rolled-back operation leaves no notifications
// behind.
type notificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB) NotificationServicer {
	return &notificationService{db: db}
}

// DeviceCleared notifies every staff user except the clearer, plus the
// previously assigned user if the device was assigned.
func (s *notificationService) DeviceCleared(tx *gorm.DB, device *models.Device, previousUserID *uint, clearer Actor) error {
	var staff []models.User
	if err := tx.Where("is_staff = ?", true).Find(&staff).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	deviceID := device.ID
	for i := range staff {
		if staff[i].ID == clearer.ID {
			continue
		}
		n := &models.Notification{
			RecipientID:     staff[i].ID,
			Type:            models.NotifyDeviceClearance,
			Title:           "Device Cleared",
			Message:         fmt.Sprintf("Device %s (%s) has been cleared by %s.", device.Name, device.SerialNumber, clearer.Username),
			RelatedDeviceID: &deviceID,
			Link:            fmt.Sprintf("/admin/devices/%d", device.ID),
		}
		if err := tx.Create(n).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if previousUserID != nil {
		n := &models.Notification{
			RecipientID:     *previousUserID,
			Type:            models.NotifyDeviceClearance,
			Title:           "Device Cleared",
			Message:         fmt.Sprintf("The device %s (%s) assigned to you has been cleared by Operations.", device.Name, device.SerialNumber),
			RelatedDeviceID: &deviceID,
			Link:            fmt.Sprintf("/devices/%d", device.ID),
		}
		if err := tx.Create(n).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// IssueStatusChanged notifies the reporting user and, when different, the
// assignee about a status transition. Callers only invoke this on updates
// where the status actually changed, never on first creation.
func (s *notificationService) IssueStatusChanged(tx *gorm.DB, issue *models.Issue, device *models.Device) error {
	deviceID := device.ID

	if issue.UserID != nil {
		n := &models.Notification{
			RecipientID:     *issue.UserID,
			Type:            models.NotifyIssueUpdate,
			Title:           "Issue Status Updated",
			Message:         fmt.Sprintf("Your reported issue for device %s has been updated to %s.", device.Name, issue.Status),
			AdminResponse:   issue.Response,
			RelatedDeviceID: &deviceID,
			Link:            fmt.Sprintf("/issues/%d", issue.ID),
		}
		if err := tx.Create(n).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if issue.AssignedToID != nil && (issue.UserID == nil || *issue.AssignedToID != *issue.UserID) {
		n := &models.Notification{
			RecipientID:     *issue.AssignedToID,
			Type:            models.NotifyIssueUpdate,
			Title:           "Issue Status Updated",
			Message:         fmt.Sprintf("An issue you are assigned to for device %s has been updated to %s.", device.Name, issue.Status),
			AdminResponse:   issue.Response,
			RelatedDeviceID: &deviceID,
			Link:            fmt.Sprintf("/issues/%d", issue.ID),
		}
		if err := tx.Create(n).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (s *notificationService) ListForUser(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Notification{}).Where("recipient_id = ?", userID).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	err := s.db.Where("recipient_id = ?", userID).
		Preload("RelatedDevice").
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&notifications).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(notifications, page.Page, page.PageSize, total)
	return &resp, nil
}

func (s *notificationService) ownedByUser(userID, notificationID uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.First(&n, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n.RecipientID != userID {
		return nil, apperrors.ErrNotRecipient
	}
	return &n, nil
}

// MarkAsRead flips the read flag on one of the user's notifications.
func (s *notificationService) MarkAsRead(userID, notificationID uint) error {
	n, err := s.ownedByUser(userID, notificationID)
	if err != nil {
		return err
	}
	if err := s.db.Model(n).Update("read", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MarkAllAsRead flips the read flag on all of the user's notifications.
func (s *notificationService) MarkAllAsRead(userID uint) error {
	err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ?", userID).
		Update("read", true).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *notificationService) Delete(userID, notificationID uint) error {
	n, err := s.ownedByUser(userID, notificationID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(n).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteAll removes all of the user's notifications.
func (s *notificationService) DeleteAll(userID uint) error {
	err := s.db.Where("recipient_id = ?", userID).Delete(&models.Notification{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
