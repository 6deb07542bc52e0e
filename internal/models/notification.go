package models

// NotificationType enumerates the workflow events that produce notifications.
type NotificationType string

const (
	NotifyDeviceClearance   NotificationType = "DEVICE_CLEARANCE"
	NotifyIssueUpdate       NotificationType = "ISSUE_UPDATE"
	NotifyMaintenanceUpdate NotificationType = "MAINTENANCE_UPDATE"
	NotifyDeviceAssignment  NotificationType = "DEVICE_ASSIGNMENT"
)

// Notification is an in-app message created by workflow side effects.
// API clients can only flip the Read flag or delete their own rows.
type Notification struct {
	Base
	RecipientID     uint             `gorm:"not null;index" json:"recipient_id"`
	Recipient       *User            `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Type            NotificationType `gorm:"not null;index" json:"type"`
	Title           string           `gorm:"not null" json:"title"`
	Message         string           `gorm:"not null" json:"message"`
	AdminResponse   string           `json:"admin_response,omitempty"`
	RelatedDeviceID *uint            `json:"related_device_id,omitempty"`
	RelatedDevice   *Device          `gorm:"foreignKey:RelatedDeviceID" json:"related_device,omitempty"`
	Read            bool             `gorm:"default:false" json:"read"`
	Link            string           `json:"link,omitempty"`
}
