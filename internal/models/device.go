package models

import "time"

// DeviceStatus represents the lifecycle status of a device.
type DeviceStatus string

const (
	DeviceStatusActive      DeviceStatus = "Active"
	DeviceStatusInactive    DeviceStatus = "Inactive"
	DeviceStatusMaintenance DeviceStatus = "Maintenance"
	DeviceStatusCleared     DeviceStatus = "Cleared"
	DeviceStatusFlagged     DeviceStatus = "Flagged"
)

// Device represents a tracked hardware asset. Cleared is a terminal
// status; a cleared device is never assigned to anyone.
type Device struct {
	Base
	Name            string       `gorm:"not null" json:"name"`
	SerialNumber    string       `gorm:"uniqueIndex;not null" json:"serial_number"`
	Type            string       `gorm:"not null" json:"type"`
	Status          DeviceStatus `gorm:"not null;default:'Active'" json:"status"`
	Location        string       `json:"location"`
	AssignedToID    *uint        `gorm:"index" json:"assigned_to_id,omitempty"`
	AssignedTo      *User        `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	ClearedAt       *time.Time   `json:"cleared_at,omitempty"`
	ClearedByID     *uint        `json:"cleared_by_id,omitempty"`
	ClearedBy       *User        `gorm:"foreignKey:ClearedByID" json:"cleared_by,omitempty"`
	ClearanceReason string       `json:"clearance_reason,omitempty"`

	Issues       []Issue       `gorm:"foreignKey:DeviceID" json:"issues,omitempty"`
	Maintenances []Maintenance `gorm:"foreignKey:DeviceID" json:"maintenances,omitempty"`
}

// ValidDeviceStatus reports whether s is a declared device status.
func ValidDeviceStatus(s DeviceStatus) bool {
	switch s {
	case DeviceStatusActive, DeviceStatusInactive, DeviceStatusMaintenance,
		DeviceStatusCleared, DeviceStatusFlagged:
		return true
	}
	return false
}
