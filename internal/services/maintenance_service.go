package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "dmts/internal/errors"
	"dmts/internal/models"
	"dmts/internal/pagination"
)

// maintenanceService handles maintenance scheduling. Maintenance changes
// are audited but deliberately produce no notifications.
type maintenanceService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewMaintenanceService creates a new MaintenanceServicer.
func NewMaintenanceService(db *gorm.DB, audit AuditServicer) MaintenanceServicer {
	return &maintenanceService{db: db, audit: audit}
}

func maintenanceLabel(m *models.Maintenance) string {
	name := "?"
	if m.Device != nil {
		name = m.Device.Name
	}
	return fmt.Sprintf("%s on %s", name, m.MaintenanceDate.Format("2006-01-02"))
}

// CreateMaintenance schedules maintenance for a device.
func (s *maintenanceService) CreateMaintenance(actor Actor, input MaintenanceInput) (*models.Maintenance, error) {
	if input.Status == "" {
		input.Status = models.MaintenanceScheduled
	}
	if !models.ValidMaintenanceStatus(input.Status) {
		return nil, apperrors.ErrInvalidStatus
	}

	var device models.Device
	if err := s.db.First(&device, input.DeviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	m := &models.Maintenance{
		DeviceID:        device.ID,
		MaintenanceDate: input.MaintenanceDate,
		Status:          input.Status,
		Notes:           input.Notes,
	}
	m.Device = &device

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		mID := m.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionCreate,
			ResourceType: models.ResourceMaintenance,
			ResourceID:   &mID,
			ResourceName: device.Name,
			Description:  "Created maintenance for device " + maintenanceLabel(m),
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetMaintenance(m.ID)
}

// GetMaintenance retrieves a maintenance record by ID.
func (s *maintenanceService) GetMaintenance(id uint) (*models.Maintenance, error) {
	var m models.Maintenance
	if err := s.db.Preload("Device").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMaintenanceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &m, nil
}

// ListMaintenances returns maintenance records, most recent date first.
func (s *maintenanceService) ListMaintenances(page pagination.PageRequest) (*pagination.PageResponse[models.Maintenance], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Maintenance{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var records []models.Maintenance
	err := s.db.Preload("Device").
		Order("maintenance_date DESC").
		Scopes(pagination.Paginate(page)).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(records, page.Page, page.PageSize, total)
	return &resp, nil
}

// UpdateMaintenance applies a partial update to a maintenance record.
func (s *maintenanceService) UpdateMaintenance(actor Actor, id uint, update MaintenanceUpdate) (*models.Maintenance, error) {
	m, err := s.GetMaintenance(id)
	if err != nil {
		return nil, err
	}

	if update.MaintenanceDate != nil {
		m.MaintenanceDate = *update.MaintenanceDate
	}
	if update.Status != nil {
		if !models.ValidMaintenanceStatus(*update.Status) {
			return nil, apperrors.ErrInvalidStatus
		}
		m.Status = *update.Status
	}
	if update.Notes != nil {
		m.Notes = *update.Notes
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(m).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		mID := m.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionUpdate,
			ResourceType: models.ResourceMaintenance,
			ResourceID:   &mID,
			ResourceName: m.Device.Name,
			Description:  "Updated maintenance for device " + maintenanceLabel(m),
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetMaintenance(m.ID)
}

// DeleteMaintenance removes a maintenance record.
func (s *maintenanceService) DeleteMaintenance(actor Actor, id uint) error {
	m, err := s.GetMaintenance(id)
	if err != nil {
		return err
	}

	label := maintenanceLabel(m)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Maintenance{}, m.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		mID := m.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionDelete,
			ResourceType: models.ResourceMaintenance,
			ResourceID:   &mID,
			ResourceName: m.Device.Name,
			Description:  "Deleted maintenance for device " + label,
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
}
