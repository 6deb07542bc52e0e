package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"dmts/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an employee with a hashed password and unique
// username and email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, models.RoleEmployee)
}

// CreateTestAdmin creates an admin user.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, models.RoleAdmin)
}

// CreateTestUserWithRole creates a user with the given role.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := nextID()
	user := &models.User{
		Username:   fmt.Sprintf("user%d", n),
		Email:      fmt.Sprintf("user%d@test.com", n),
		Password:   string(hash),
		Department: "Engineering",
		Role:       role,
		IsActive:   true,
		IsStaff:    role == models.RoleAdmin,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestDevice creates an active device with a unique serial number.
func CreateTestDevice(t *testing.T, db *gorm.DB) *models.Device {
	t.Helper()
	return CreateTestDeviceAssignedTo(t, db, nil)
}

// CreateTestDeviceAssignedTo creates a device assigned to the given user.
func CreateTestDeviceAssignedTo(t *testing.T, db *gorm.DB, userID *uint) *models.Device {
	t.Helper()

	n := nextID()
	device := &models.Device{
		Name:         fmt.Sprintf("Test Device %d", n),
		SerialNumber: fmt.Sprintf("SN-%06d", n),
		Type:         "Laptop",
		Status:       models.DeviceStatusActive,
		Location:     "HQ",
		AssignedToID: userID,
	}
	if err := db.Create(device).Error; err != nil {
		t.Fatalf("failed to create test device: %v", err)
	}
	return device
}

// CreateTestIssue creates a pending issue reported by the given user.
func CreateTestIssue(t *testing.T, db *gorm.DB, deviceID uint, userID *uint) *models.Issue {
	t.Helper()

	issue := &models.Issue{
		DeviceID:    deviceID,
		UserID:      userID,
		Description: fmt.Sprintf("Test issue %d", nextID()),
		Priority:    models.PriorityMedium,
		Status:      models.IssueStatusPending,
	}
	if err := db.Create(issue).Error; err != nil {
		t.Fatalf("failed to create test issue: %v", err)
	}
	return issue
}

// CreateTestMaintenance creates a scheduled maintenance record.
func CreateTestMaintenance(t *testing.T, db *gorm.DB, deviceID uint) *models.Maintenance {
	t.Helper()

	record := &models.Maintenance{
		DeviceID:        deviceID,
		MaintenanceDate: time.Now().Add(24 * time.Hour),
		Status:          models.MaintenanceScheduled,
		Notes:           fmt.Sprintf("Test maintenance %d", nextID()),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test maintenance: %v", err)
	}
	return record
}

// CreateTestNotification creates an unread notification for the given user.
func CreateTestNotification(t *testing.T, db *gorm.DB, recipientID uint) *models.Notification {
	t.Helper()

	notification := &models.Notification{
		RecipientID: recipientID,
		Type:        models.NotifyIssueUpdate,
		Title:       "Test Notification",
		Message:     fmt.Sprintf("Test message %d", nextID()),
	}
	if err := db.Create(notification).Error; err != nil {
		t.Fatalf("failed to create test notification: %v", err)
	}
	return notification
}

// CreateTestAuditLog creates an audit entry with the given age.
func CreateTestAuditLog(t *testing.T, db *gorm.DB, age time.Duration) *models.AuditLog {
	t.Helper()

	entry := &models.AuditLog{
		Action:       models.ActionUpdate,
		ResourceType: models.ResourceDevice,
		Description:  fmt.Sprintf("Test audit entry %d", nextID()),
		Status:       models.AuditStatusSuccess,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test audit log: %v", err)
	}
	if age > 0 {
		ts := time.Now().Add(-age)
		if err := db.Model(entry).Update("timestamp", ts).Error; err != nil {
			t.Fatalf("failed to backdate test audit log: %v", err)
		}
	}
	return entry
}
