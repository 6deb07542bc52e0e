package models

import "time"

// AuditAction enumerates the kinds of mutating actions recorded in the audit trail.
type AuditAction string

const (
	ActionCreate         AuditAction = "CREATE"
	ActionUpdate         AuditAction = "UPDATE"
	ActionDelete         AuditAction = "DELETE"
	ActionLogin          AuditAction = "LOGIN"
	ActionLogout         AuditAction = "LOGOUT"
	ActionAssign         AuditAction = "ASSIGN"
	ActionClear          AuditAction = "CLEAR"
	ActionResolve        AuditAction = "RESOLVE"
	ActionMaintenance    AuditAction = "MAINTENANCE"
	ActionIssue          AuditAction = "ISSUE"
	ActionPasswordChange AuditAction = "PASSWORD_CHANGE"
)

// ResourceType enumerates the resource kinds an audit entry can reference.
type ResourceType string

const (
	ResourceDevice      ResourceType = "DEVICE"
	ResourceUser        ResourceType = "USER"
	ResourceIssue       ResourceType = "ISSUE"
	ResourceMaintenance ResourceType = "MAINTENANCE"
	ResourceClearance   ResourceType = "CLEARANCE"
)

// Audit entry outcome.
const (
	AuditStatusSuccess = "SUCCESS"
	AuditStatusFailure = "FAILURE"
)

// AuditLog records every mutating action for compliance and debugging.
// Rows are append-only; only the retention job ever deletes them.
type AuditLog struct {
	ID           uint         `gorm:"primarykey" json:"id"`
	UserID       *uint        `gorm:"index" json:"user_id,omitempty"`
	User         *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action       AuditAction  `gorm:"not null;index" json:"action"`
	ResourceType ResourceType `gorm:"not null;index" json:"resource_type"`
	ResourceID   *uint        `json:"resource_id,omitempty"`
	ResourceName string       `json:"resource_name,omitempty"`
	Description  string       `json:"description"`
	Timestamp    time.Time    `gorm:"index;autoCreateTime" json:"timestamp"`
	IPAddress    string       `json:"ip_address,omitempty"`
	UserAgent    string       `json:"user_agent,omitempty"`
	Changes      string       `json:"changes,omitempty"`
	Status       string       `gorm:"not null;default:'SUCCESS'" json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// ValidAuditAction reports whether a is a declared audit action.
func ValidAuditAction(a AuditAction) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout,
		ActionAssign, ActionClear, ActionResolve, ActionMaintenance,
		ActionIssue, ActionPasswordChange:
		return true
	}
	return false
}

// ValidResourceType reports whether r is a declared resource type.
func ValidResourceType(r ResourceType) bool {
	switch r {
	case ResourceDevice, ResourceUser, ResourceIssue, ResourceMaintenance, ResourceClearance:
		return true
	}
	return false
}
