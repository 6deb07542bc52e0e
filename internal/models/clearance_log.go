package models

import "time"

// Clearance attempt outcome.
type ClearanceStatus string

const (
	ClearanceSuccess ClearanceStatus = "Success"
	ClearanceFailed  ClearanceStatus = "Failed"
)

// ClearanceLog records one device clearance attempt.
type ClearanceLog struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	DeviceID    uint            `gorm:"not null;index" json:"device_id"`
	Device      *Device         `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	ClearedByID *uint           `json:"cleared_by_id,omitempty"`
	ClearedBy   *User           `gorm:"foreignKey:ClearedByID" json:"cleared_by,omitempty"`
	DateCleared time.Time       `gorm:"autoCreateTime" json:"date_cleared"`
	Status      ClearanceStatus `gorm:"not null;default:'Success'" json:"status"`
}
