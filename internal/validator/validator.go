// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"dmts/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("device_status", validateDeviceStatus)
		_ = v.RegisterValidation("issue_status", validateIssueStatus)
		_ = v.RegisterValidation("issue_priority", validateIssuePriority)
		_ = v.RegisterValidation("maintenance_status", validateMaintenanceStatus)
		_ = v.RegisterValidation("user_role", validateUserRole)
		_ = v.RegisterValidation("audit_action", validateAuditAction)
		_ = v.RegisterValidation("audit_resource", validateAuditResource)
	}
}

func validateDeviceStatus(fl validator.FieldLevel) bool {
	return models.ValidDeviceStatus(models.DeviceStatus(fl.Field().String()))
}

func validateIssueStatus(fl validator.FieldLevel) bool {
	return models.ValidIssueStatus(models.IssueStatus(fl.Field().String()))
}

func validateIssuePriority(fl validator.FieldLevel) bool {
	return models.ValidIssuePriority(models.IssuePriority(fl.Field().String()))
}

func validateMaintenanceStatus(fl validator.FieldLevel) bool {
	return models.ValidMaintenanceStatus(models.MaintenanceStatus(fl.Field().String()))
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.RoleAdmin, models.RoleEmployee, models.RoleOperations:
		return true
	}
	return false
}

func validateAuditAction(fl validator.FieldLevel) bool {
	return models.ValidAuditAction(models.AuditAction(fl.Field().String()))
}

func validateAuditResource(fl validator.FieldLevel) bool {
	return models.ValidResourceType(models.ResourceType(fl.Field().String()))
}
