package models

import "time"

// MaintenanceStatus represents the state of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceScheduled MaintenanceStatus = "Scheduled"
	MaintenanceCompleted MaintenanceStatus = "Completed"
)

// Maintenance represents a scheduled or completed maintenance entry for a device.
type Maintenance struct {
	Base
	DeviceID        uint              `gorm:"not null;index" json:"device_id"`
	Device          *Device           `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	MaintenanceDate time.Time         `gorm:"not null" json:"maintenance_date"`
	Status          MaintenanceStatus `gorm:"not null;default:'Scheduled'" json:"status"`
	Notes           string            `json:"notes,omitempty"`
}

// ValidMaintenanceStatus reports whether s is a declared maintenance status.
func ValidMaintenanceStatus(s MaintenanceStatus) bool {
	return s == MaintenanceScheduled || s == MaintenanceCompleted
}
