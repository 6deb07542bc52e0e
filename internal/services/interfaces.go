package services

import (
	"io"
	"time"

	"gorm.io/gorm"

	"dmts/internal/models"
	"dmts/internal/pagination"
)

// Actor identifies the authenticated user performing an operation, along
// with the request metadata recorded in the audit trail.
type Actor struct {
	ID        uint
	Username  string
	Role      models.UserRole
	IPAddress string
	UserAgent string
}

// Staff reports whether the actor holds a staff role.
func (a Actor) Staff() bool {
	return a.Role == models.RoleAdmin
}

// AuditEntry is the input to the audit recorder.
type AuditEntry struct {
	UserID       *uint
	Action       models.AuditAction
	ResourceType models.ResourceType
	ResourceID   *uint
	ResourceName string
	Description  string
	Changes      map[string]interface{}
	Status       string
	ErrorMessage string
	IPAddress    string
	UserAgent    string
}

// AuditFilter holds optional filter parameters for listing audit logs.
type AuditFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	Action       models.AuditAction
	ResourceType models.ResourceType
	Status       string
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	// Log appends one audit row on the given gorm handle. Callers inside a
	// transaction pass their tx so the entry commits with the operation.
	// Log never returns an error; storage failures are logged and swallowed.
	Log(tx *gorm.DB, entry AuditEntry)
	List(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
	Cleanup(days int, action models.AuditAction, resourceType models.ResourceType) (int64, error)
	ExportCSV(w io.Writer, filter AuditFilter) error
}

// NotificationServicer defines the contract for notification dispatch and
// client-facing notification operations. The fan-out methods run on the
// workflow's transaction handle and are never exposed over the API.
type NotificationServicer interface {
	DeviceCleared(tx *gorm.DB, device *models.Device, previousUserID *uint, clearer Actor) error
	IssueStatusChanged(tx *gorm.DB, issue *models.Issue, device *models.Device) error

	ListForUser(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
	MarkAsRead(userID, notificationID uint) error
	MarkAllAsRead(userID uint) error
	Delete(userID, notificationID uint) error
	DeleteAll(userID uint) error
}

// DeviceInput holds the fields accepted when registering a device.
type DeviceInput struct {
	Name         string
	SerialNumber string
	Type         string
	Status       models.DeviceStatus
	Location     string
	AssignedToID *uint
}

// DeviceUpdate holds the optional fields of a device update. Nil fields are
// left untouched; Unassign clears the assignment.
type DeviceUpdate struct {
	Name         *string
	Type         *string
	Status       *models.DeviceStatus
	Location     *string
	AssignedToID *uint
	Unassign     bool
}

// DeviceFilter holds optional filter parameters for listing devices.
type DeviceFilter struct {
	Status         models.DeviceStatus
	Type           string
	IncludeCleared bool
}

// DeviceServicer defines the contract for device management and the
// clearance workflow.
type DeviceServicer interface {
	CreateDevice(actor Actor, input DeviceInput) (*models.Device, error)
	GetDeviceBySerial(serial string) (*models.Device, error)
	ListDevices(actor Actor, filter DeviceFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Device], error)
	UpdateDevice(actor Actor, serial string, update DeviceUpdate) (*models.Device, error)
	DeleteDevice(actor Actor, serial string) error
	AssignedDevices(userID uint) ([]models.Device, error)
	ClearDevice(actor Actor, serial, reason string) (*models.Device, error)
	Distribution() (map[models.DeviceStatus]int64, error)
	ListClearanceLogs(page pagination.PageRequest) (*pagination.PageResponse[models.ClearanceLog], error)
}

// IssueServicer defines the contract for the issue lifecycle.
type IssueServicer interface {
	CreateIssue(actor Actor, deviceSerial, description string, priority models.IssuePriority) (*models.Issue, error)
	GetIssue(issueID uint) (*models.Issue, error)
	ListIssues(page pagination.PageRequest) (*pagination.PageResponse[models.Issue], error)
	UpdateIssue(actor Actor, issueID uint, status *models.IssueStatus, response *string) (*models.Issue, error)
	ResolveIssue(actor Actor, issueID uint, response string) (*models.Issue, error)
	UserIssues(userID uint) ([]models.Issue, error)
	DeleteIssue(actor Actor, issueID uint) error
}

// MaintenanceInput holds the fields accepted when scheduling maintenance.
type MaintenanceInput struct {
	DeviceID        uint
	MaintenanceDate time.Time
	Status          models.MaintenanceStatus
	Notes           string
}

// MaintenanceUpdate holds the optional fields of a maintenance update.
type MaintenanceUpdate struct {
	MaintenanceDate *time.Time
	Status          *models.MaintenanceStatus
	Notes           *string
}

// MaintenanceServicer defines the contract for maintenance scheduling.
type MaintenanceServicer interface {
	CreateMaintenance(actor Actor, input MaintenanceInput) (*models.Maintenance, error)
	GetMaintenance(id uint) (*models.Maintenance, error)
	ListMaintenances(page pagination.PageRequest) (*pagination.PageResponse[models.Maintenance], error)
	UpdateMaintenance(actor Actor, id uint, update MaintenanceUpdate) (*models.Maintenance, error)
	DeleteMaintenance(actor Actor, id uint) error
}

// SignupInput holds the first-admin signup fields.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// CreateUserInput holds the admin provisioning fields.
type CreateUserInput struct {
	Username    string
	Email       string
	Department  string
	Role        models.UserRole
	PhoneNumber *string
}

// UserUpdate holds the optional fields of a user update.
type UserUpdate struct {
	Email       *string
	PhoneNumber *string
	Department  *string
	Role        *models.UserRole
}

// ProvisionResult is returned by CreateUser. TemporaryPassword is shown to
// the caller exactly once and never stored or logged.
type ProvisionResult struct {
	User              *models.User
	TemporaryPassword string
	EmailSent         bool
}

// UserServicer defines the contract for accounts, authentication, and
// provisioning.
type UserServicer interface {
	Signup(input SignupInput, ip, userAgent string) (*models.User, error)
	AttemptLogin(username, password, ip, userAgent string) (*models.User, error)
	CreateUser(actor Actor, input CreateUserInput) (*ProvisionResult, error)
	ChangePassword(actor Actor, currentPassword, newPassword, confirmPassword string) error
	SetupAccount(token, newPassword string) error
	GetUserByID(id uint) (*models.User, error)
	ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	UpdateUser(actor Actor, id uint, update UserUpdate) (*models.User, error)
	DeleteUser(actor Actor, id uint) error
}

// RetentionResult reports how many rows a retention pass removed.
type RetentionResult struct {
	AuditLogsDeleted    int64 `json:"audit_logs_deleted"`
	MaintenancesDeleted int64 `json:"maintenances_deleted"`
	IssuesDeleted       int64 `json:"issues_deleted"`
}

// RetentionServicer defines the contract for the background retention job.
type RetentionServicer interface {
	Run(days int, action models.AuditAction, resourceType models.ResourceType) (*RetentionResult, error)
}

// ReportServicer defines the contract for CSV report downloads.
type ReportServicer interface {
	DeviceReport(w io.Writer) error
	IssueReport(w io.Writer) error
	MaintenanceReport(w io.Writer) error
}
