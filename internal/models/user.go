package models

import "time"

// UserRole represents the role assigned to a user account.
type UserRole string

const (
	RoleAdmin      UserRole = "Admin"
	RoleEmployee   UserRole = "Employee"
	RoleOperations UserRole = "Operations"
)

// User represents a system user account.
type User struct {
	Base
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	Username           string     `gorm:"uniqueIndex;not null" json:"username"`
	Password           string     `gorm:"not null" json:"-"`
	PhoneNumber        *string    `gorm:"uniqueIndex" json:"phone_number,omitempty"`
	Department         string     `json:"department"`
	Role               UserRole   `gorm:"not null;default:'Employee'" json:"role"`
	IsActive           bool       `gorm:"default:true" json:"is_active"`
	IsStaff            bool       `gorm:"default:false" json:"is_staff"`
	MustChangePassword bool       `gorm:"default:true" json:"must_change_password"`
	LastPasswordChange *time.Time `json:"-"`
}

// Staff reports whether the user holds a staff role. Admins are always
// staff; the flag also covers legacy accounts promoted directly.
func (u *User) Staff() bool {
	return u.IsStaff || u.Role == RoleAdmin
}
