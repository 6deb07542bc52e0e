package models

import "time"

// IssuePriority represents the urgency of a reported issue.
type IssuePriority string

const (
	PriorityLow      IssuePriority = "Low"
	PriorityMedium   IssuePriority = "Medium"
	PriorityHigh     IssuePriority = "High"
	PriorityCritical IssuePriority = "Critical"
)

// IssueStatus represents the handling state of an issue.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "Pending"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
)

// Issue represents a user-reported problem with a device.
// ResolvedAt is set exactly once, on the first transition to Resolved.
type Issue struct {
	Base
	DeviceID     uint          `gorm:"not null;index" json:"device_id"`
	Device       *Device       `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	UserID       *uint         `gorm:"index" json:"user_id,omitempty"`
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Description  string        `gorm:"not null" json:"description"`
	Priority     IssuePriority `gorm:"not null;default:'Medium'" json:"priority"`
	Status       IssueStatus   `gorm:"not null;default:'Pending'" json:"status"`
	Response     string        `json:"response,omitempty"`
	AssignedToID *uint         `json:"assigned_to_id,omitempty"`
	AssignedTo   *User         `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
}

// ValidIssueStatus reports whether s is a declared issue status.
func ValidIssueStatus(s IssueStatus) bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// ValidIssuePriority reports whether p is a declared issue priority.
func ValidIssuePriority(p IssuePriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
