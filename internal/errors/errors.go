// Package errors provides custom error types for the DMTS API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors. Duplicate unique keys reject with 400, matching the
// contract exposed to existing clients.
var (
	ErrUserNotFound      = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUsername = &AppError{Code: "DUPLICATE_USERNAME", Message: "Username already exists", StatusCode: http.StatusBadRequest}
	ErrDuplicateEmail    = &AppError{Code: "DUPLICATE_EMAIL", Message: "Email already exists", StatusCode: http.StatusBadRequest}
	ErrDuplicatePhone    = &AppError{Code: "DUPLICATE_PHONE", Message: "Phone number already exists", StatusCode: http.StatusBadRequest}
	ErrAdminExists       = &AppError{Code: "ADMIN_EXISTS", Message: "Admin already exists. New users must be registered through the admin panel.", StatusCode: http.StatusForbidden}
	ErrWeakPassword      = &AppError{Code: "WEAK_PASSWORD", Message: "Password does not meet the strength requirements", StatusCode: http.StatusBadRequest}
	ErrPasswordMismatch  = &AppError{Code: "PASSWORD_MISMATCH", Message: "New passwords do not match", StatusCode: http.StatusBadRequest}
	ErrWrongPassword     = &AppError{Code: "WRONG_PASSWORD", Message: "Current password is incorrect", StatusCode: http.StatusBadRequest}
	ErrInvalidSetupToken = &AppError{Code: "INVALID_SETUP_TOKEN", Message: "Invalid setup token", StatusCode: http.StatusBadRequest}
)

// Device errors.
var (
	ErrDeviceNotFound  = &AppError{Code: "DEVICE_NOT_FOUND", Message: "Device not found", StatusCode: http.StatusNotFound}
	ErrDuplicateSerial = &AppError{Code: "DUPLICATE_SERIAL", Message: "A device with this serial number already exists", StatusCode: http.StatusBadRequest}
	ErrDeviceCleared   = &AppError{Code: "DEVICE_CLEARED", Message: "Device has already been cleared", StatusCode: http.StatusBadRequest}
)

// Issue & maintenance errors.
var (
	ErrIssueNotFound       = &AppError{Code: "ISSUE_NOT_FOUND", Message: "Issue not found", StatusCode: http.StatusNotFound}
	ErrNotDeviceHolder     = &AppError{Code: "NOT_DEVICE_HOLDER", Message: "You are not assigned to this device", StatusCode: http.StatusForbidden}
	ErrInvalidStatus       = &AppError{Code: "INVALID_STATUS", Message: "Invalid status value", StatusCode: http.StatusBadRequest}
	ErrMaintenanceNotFound = &AppError{Code: "MAINTENANCE_NOT_FOUND", Message: "Maintenance record not found", StatusCode: http.StatusNotFound}
)

// Notification errors.
var (
	ErrNotificationNotFound = &AppError{Code: "NOTIFICATION_NOT_FOUND", Message: "Notification not found", StatusCode: http.StatusNotFound}
	ErrNotRecipient         = &AppError{Code: "NOT_RECIPIENT", Message: "You don't have permission to modify this notification", StatusCode: http.StatusForbidden}
)
