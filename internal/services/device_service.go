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

// deviceService handles device management and the clearance workflow.
type deviceService struct {
	db            *gorm.DB
	audit         AuditServicer
	notifications NotificationServicer
}

// NewDeviceService creates a new DeviceServicer.
func NewDeviceService(db *gorm.DB, audit AuditServicer, notifications NotificationServicer) DeviceServicer {
	return &deviceService{db: db, audit: audit, notifications: notifications}
}

func deviceLabel(d *models.Device) string {
	return fmt.Sprintf("%s (SN: %s)", d.Name, d.SerialNumber)
}

// CreateDevice registers a new device.
func (s *deviceService) CreateDevice(actor Actor, input DeviceInput) (*models.Device, error) {
	input.SerialNumber = strings.TrimSpace(input.SerialNumber)
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "device name is required")
	}
	if input.SerialNumber == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "serial number is required")
	}

	if input.Status == "" {
		input.Status = models.DeviceStatusActive
	}
	if !models.ValidDeviceStatus(input.Status) {
		return nil, apperrors.ErrInvalidStatus
	}

	var count int64
	s.db.Model(&models.Device{}).Where("serial_number = ?", input.SerialNumber).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateSerial
	}

	if input.AssignedToID != nil {
		var userCount int64
		s.db.Model(&models.User{}).Where("id = ?", *input.AssignedToID).Count(&userCount)
		if userCount == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "User does not exist")
		}
	}

	device := &models.Device{
		Name:         input.Name,
		SerialNumber: input.SerialNumber,
		Type:         input.Type,
		Status:       input.Status,
		Location:     input.Location,
		AssignedToID: input.AssignedToID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(device).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		deviceID := device.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionCreate,
			ResourceType: models.ResourceDevice,
			ResourceID:   &deviceID,
			ResourceName: device.Name,
			Description:  "Created device " + deviceLabel(device),
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetDeviceBySerial(device.SerialNumber)
}

// GetDeviceBySerial retrieves a device by its serial number.
func (s *deviceService) GetDeviceBySerial(serial string) (*models.Device, error) {
	var device models.Device
	err := s.db.Preload("AssignedTo").Preload("ClearedBy").
		Where("serial_number = ?", serial).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &device, nil
}

// ListDevices returns devices visible to the actor. Employees see only
// devices assigned to them; staff and operations see everything. Cleared
// devices are excluded unless the filter asks for them.
func (s *deviceService) ListDevices(actor Actor, filter DeviceFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Device], error) {
	page.Defaults()

	base := func() *gorm.DB {
		q := s.db.Model(&models.Device{})
		if actor.Role == models.RoleEmployee {
			q = q.Where("assigned_to_id = ?", actor.ID)
		}
		if !filter.IncludeCleared && filter.Status != models.DeviceStatusCleared {
			q = q.Where("status <> ?", models.DeviceStatusCleared)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var devices []models.Device
	err := base().Preload("AssignedTo").Preload("ClearedBy").
		Order("id").
		Scopes(pagination.Paginate(page)).
		Find(&devices).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(devices, page.Page, page.PageSize, total)
	return &resp, nil
}

// UpdateDevice applies a partial update to a device located by serial.
// The serial number itself is immutable through this path.
func (s *deviceService) UpdateDevice(actor Actor, serial string, update DeviceUpdate) (*models.Device, error) {
	device, err := s.GetDeviceBySerial(serial)
	if err != nil {
		return nil, err
	}

	old := map[string]interface{}{
		"name":           device.Name,
		"type":           device.Type,
		"status":         device.Status,
		"location":       device.Location,
		"assigned_to_id": device.AssignedToID,
	}

	if update.Name != nil {
		device.Name = *update.Name
	}
	if update.Type != nil {
		device.Type = *update.Type
	}
	if update.Status != nil {
		if !models.ValidDeviceStatus(*update.Status) {
			return nil, apperrors.ErrInvalidStatus
		}
		device.Status = *update.Status
	}
	if update.Location != nil {
		device.Location = *update.Location
	}
	if update.Unassign {
		device.AssignedToID = nil
		device.AssignedTo = nil
	} else if update.AssignedToID != nil {
		var userCount int64
		s.db.Model(&models.User{}).Where("id = ?", *update.AssignedToID).Count(&userCount)
		if userCount == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "User does not exist")
		}
		device.AssignedToID = update.AssignedToID
	}

	// Assignment is meaningless on a cleared device.
	if device.Status == models.DeviceStatusCleared {
		device.AssignedToID = nil
		device.AssignedTo = nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(device).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		deviceID := device.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionUpdate,
			ResourceType: models.ResourceDevice,
			ResourceID:   &deviceID,
			ResourceName: device.Name,
			Description:  "Updated device " + deviceLabel(device),
			Changes: map[string]interface{}{
				"old": old,
				"new": map[string]interface{}{
					"name":           device.Name,
					"type":           device.Type,
					"status":         device.Status,
					"location":       device.Location,
					"assigned_to_id": device.AssignedToID,
				},
			},
			IPAddress: actor.IPAddress,
			UserAgent: actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetDeviceBySerial(device.SerialNumber)
}

// DeleteDevice removes a device and its owned issue and maintenance history.
func (s *deviceService) DeleteDevice(actor Actor, serial string) error {
	device, err := s.GetDeviceBySerial(serial)
	if err != nil {
		return err
	}

	label := deviceLabel(device)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", device.ID).Delete(&models.Issue{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("device_id = ?", device.ID).Delete(&models.Maintenance{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("related_device_id = ?", device.ID).Delete(&models.Notification{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("device_id = ?", device.ID).Delete(&models.ClearanceLog{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(device).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		deviceID := device.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionDelete,
			ResourceType: models.ResourceDevice,
			ResourceID:   &deviceID,
			ResourceName: device.Name,
			Description:  "Deleted device " + label,
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
}

// AssignedDevices returns the devices assigned to the given user.
func (s *deviceService) AssignedDevices(userID uint) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.Preload("AssignedTo").Where("assigned_to_id = ?", userID).Find(&devices).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(devices) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "No devices found for this user")
	}
	return devices, nil
}

// ClearDevice runs the clearance workflow: the device transitions to its
// terminal Cleared status, the assignment is dropped, a clearance log row
// is written, staff and the previous holder are notified, and the action
// is audited. Everything commits or rolls back as one unit.
func (s *deviceService) ClearDevice(actor Actor, serial, reason string) (*models.Device, error) {
	if actor.Role != models.RoleOperations && actor.Role != models.RoleAdmin {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Only Operations staff are allowed to clear devices")
	}

	device, err := s.GetDeviceBySerial(serial)
	if err != nil {
		return nil, err
	}
	if device.Status == models.DeviceStatusCleared {
		return nil, apperrors.ErrDeviceCleared
	}

	previousUserID := device.AssignedToID

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		actorID := actor.ID
		device.Status = models.DeviceStatusCleared
		device.ClearedAt = &now
		device.ClearedByID = &actorID
		device.ClearanceReason = reason
		device.AssignedToID = nil
		device.AssignedTo = nil

		if err := tx.Save(device).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		clearance := &models.ClearanceLog{
			DeviceID:    device.ID,
			ClearedByID: &actorID,
			Status:      models.ClearanceSuccess,
		}
		if err := tx.Create(clearance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.notifications.DeviceCleared(tx, device, previousUserID, actor); err != nil {
			return err
		}

		deviceID := device.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionClear,
			ResourceType: models.ResourceDevice,
			ResourceID:   &deviceID,
			ResourceName: device.Name,
			Description:  "Cleared device " + deviceLabel(device),
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetDeviceBySerial(device.SerialNumber)
}

// Distribution returns a device count per status for the dashboard.
func (s *deviceService) Distribution() (map[models.DeviceStatus]int64, error) {
	type row struct {
		Status models.DeviceStatus
		Count  int64
	}
	var rows []row
	err := s.db.Model(&models.Device{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	dist := make(map[models.DeviceStatus]int64, len(rows))
	for _, r := range rows {
		dist[r.Status] = r.Count
	}
	return dist, nil
}

// ListClearanceLogs returns clearance attempts, newest first.
func (s *deviceService) ListClearanceLogs(page pagination.PageRequest) (*pagination.PageResponse[models.ClearanceLog], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.ClearanceLog{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.ClearanceLog
	err := s.db.Preload("Device").Preload("ClearedBy").
		Order("date_cleared DESC").
		Scopes(pagination.Paginate(page)).
		Find(&logs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(logs, page.Page, page.PageSize, total)
	return &resp, nil
}
