package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dmts/internal/config"
	"dmts/internal/handlers"
	"dmts/internal/logger"
	"dmts/internal/middleware"
	"dmts/internal/models"
	"dmts/internal/services"
	"dmts/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Device{},
		&models.Issue{},
		&models.Maintenance{},
		&models.ClearanceLog{},
		&models.Notification{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	cfg := config.Get()

	// Services
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db)
	deviceService := services.NewDeviceService(db, auditService, notificationService)
	issueService := services.NewIssueService(db, auditService, notificationService)
	maintenanceService := services.NewMaintenanceService(db, auditService)
	reportService := services.NewReportService(db)
	userService := services.NewUserService(db, auditService, nil, cfg,
		middleware.GenerateSetupToken, middleware.ValidateSetupToken)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	issueHandler := handlers.NewIssueHandler(issueService)
	maintenanceHandler := handlers.NewMaintenanceHandler(maintenanceService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	auditLogHandler := handlers.NewAuditLogHandler(auditService)
	reportHandler := handlers.NewReportHandler(reportService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/setup-account", authHandler.SetupAccount)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

	staffOnly := middleware.RequireRole(models.RoleAdmin, models.RoleOperations)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	devices := protected.Group("/devices")
	devices.GET("", deviceHandler.ListDevices)
	devices.POST("", adminOnly, deviceHandler.CreateDevice)
	devices.GET("/distribution", adminOnly, deviceHandler.Distribution)
	devices.GET("/assigned/:user_id", adminOnly, deviceHandler.AssignedDevices)
	devices.GET("/:serial", deviceHandler.GetDevice)
	devices.PUT("/:serial", adminOnly, deviceHandler.UpdateDevice)
	devices.DELETE("/:serial", adminOnly, deviceHandler.DeleteDevice)
	devices.POST("/:serial/clear", staffOnly, deviceHandler.ClearDevice)

	issues := protected.Group("/issues")
	issues.POST("", issueHandler.CreateIssue)
	issues.GET("", staffOnly, issueHandler.ListIssues)
	issues.GET("/:id", issueHandler.GetIssue)
	issues.PUT("/:id", staffOnly, issueHandler.UpdateIssue)
	issues.POST("/:id/resolve", staffOnly, issueHandler.ResolveIssue)
	issues.DELETE("/:id", adminOnly, issueHandler.DeleteIssue)
	protected.GET("/my-issues", issueHandler.MyIssues)
	protected.GET("/user-issues/:user_id", adminOnly, issueHandler.UserIssues)

	maintenance := protected.Group("/maintenance")
	maintenance.POST("", staffOnly, maintenanceHandler.CreateMaintenance)
	maintenance.GET("", maintenanceHandler.ListMaintenances)
	maintenance.GET("/:id", maintenanceHandler.GetMaintenance)
	maintenance.PUT("/:id", staffOnly, maintenanceHandler.UpdateMaintenance)
	maintenance.DELETE("/:id", adminOnly, maintenanceHandler.DeleteMaintenance)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.ListNotifications)
	notifications.DELETE("", notificationHandler.DeleteAllNotifications)
	notifications.PUT("/mark-all-read", notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
	notifications.DELETE("/:id", notificationHandler.DeleteNotification)

	admin := protected.Group("/")
	admin.Use(adminOnly)

	users := admin.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("", userHandler.ListUsers)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeleteUser)

	auditLogs := admin.Group("/audit-logs")
	auditLogs.GET("", auditLogHandler.ListAuditLogs)
	auditLogs.POST("/cleanup", auditLogHandler.CleanupAuditLogs)
	auditLogs.GET("/export", auditLogHandler.ExportAuditLogs)

	admin.GET("/clearance-logs", deviceHandler.ListClearanceLogs)

	reports := admin.Group("/reports")
	reports.GET("/devices", reportHandler.DeviceReport)
	reports.GET("/issues", reportHandler.IssueReport)
	reports.GET("/maintenance", reportHandler.MaintenanceReport)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// signupAdmin registers the first admin and returns the access token and user ID.
func (app *testApp) signupAdmin(t *testing.T) (accessToken string, userID float64) {
	t.Helper()
	body := `{"username":"root-admin","email":"admin@example.com","password":"kV9#mQ2!xLp8wZ"}`
	rec := app.request("POST", "/api/auth/signup", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(float64)
}

// provisionUser creates an account through the admin endpoint and logs it in
// with its temporary password. Returns the access token and user ID.
func (app *testApp) provisionUser(t *testing.T, adminToken, username string, role models.UserRole) (accessToken string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","department":"Engineering","role":%q}`,
		username, username, role)
	rec := app.request("POST", "/api/users", body, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("provisioning failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	tempPassword := result["temporary_password"].(string)
	user := result["user"].(map[string]interface{})

	loginBody := fmt.Sprintf(`{"username":%q,"password":%q}`, username, tempPassword)
	loginRec := app.request("POST", "/api/auth/login", loginBody, "")
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login with temporary password failed: %d %s", loginRec.Code, loginRec.Body.String())
	}
	return parseJSON(t, loginRec)["access_token"].(string), user["id"].(float64)
}

// createDevice registers a device as admin, optionally assigned to a user.
func (app *testApp) createDevice(t *testing.T, adminToken, serial string, assignedTo *float64) {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Test Device","serial_number":%q,"type":"Laptop","location":"HQ"`, serial)
	if assignedTo != nil {
		body += fmt.Sprintf(`,"assigned_to_id":%d`, int(*assignedTo))
	}
	body += "}"
	rec := app.request("POST", "/api/devices", body, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("device creation failed: %d %s", rec.Code, rec.Body.String())
	}
}
