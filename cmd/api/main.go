package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"dmts/internal/config"
	"dmts/internal/database"
	"dmts/internal/handlers"
	"dmts/internal/logger"
	"dmts/internal/mail"
	"dmts/internal/middleware"
	"dmts/internal/models"
	"dmts/internal/services"
	"dmts/internal/validator"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db)
	deviceService := services.NewDeviceService(db, auditService, notificationService)
	issueService := services.NewIssueService(db, auditService, notificationService)
	maintenanceService := services.NewMaintenanceService(db, auditService)
	reportService := services.NewReportService(db)
	userService := services.NewUserService(db, auditService, mail.NewSMTPSender(appConfig), appConfig,
		middleware.GenerateSetupToken, middleware.ValidateSetupToken)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	issueHandler := handlers.NewIssueHandler(issueService)
	maintenanceHandler := handlers.NewMaintenanceHandler(maintenanceService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	auditLogHandler := handlers.NewAuditLogHandler(auditService)
	reportHandler := handlers.NewReportHandler(reportService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/setup-account", authHandler.SetupAccount)

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

	staffOnly := middleware.RequireRole(models.RoleAdmin, models.RoleOperations)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Device routes
	devices := protected.Group("/devices")
	devices.GET("", deviceHandler.ListDevices)
	devices.POST("", adminOnly, deviceHandler.CreateDevice)
	devices.GET("/distribution", adminOnly, deviceHandler.Distribution)
	devices.GET("/assigned/:user_id", adminOnly, deviceHandler.AssignedDevices)
	devices.GET("/:serial", deviceHandler.GetDevice)
	devices.PUT("/:serial", adminOnly, deviceHandler.UpdateDevice)
	devices.DELETE("/:serial", adminOnly, deviceHandler.DeleteDevice)
	devices.POST("/:serial/clear", staffOnly, deviceHandler.ClearDevice)

	// Issue routes
	issues := protected.Group("/issues")
	issues.POST("", issueHandler.CreateIssue)
	issues.GET("", staffOnly, issueHandler.ListIssues)
	issues.GET("/:id", issueHandler.GetIssue)
	issues.PUT("/:id", staffOnly, issueHandler.UpdateIssue)
	issues.POST("/:id/resolve", staffOnly, issueHandler.ResolveIssue)
	issues.DELETE("/:id", adminOnly, issueHandler.DeleteIssue)
	protected.GET("/my-issues", issueHandler.MyIssues)
	protected.GET("/user-issues/:user_id", adminOnly, issueHandler.UserIssues)

	// Maintenance routes
	maintenance := protected.Group("/maintenance")
	maintenance.POST("", staffOnly, maintenanceHandler.CreateMaintenance)
	maintenance.GET("", maintenanceHandler.ListMaintenances)
	maintenance.GET("/:id", maintenanceHandler.GetMaintenance)
	maintenance.PUT("/:id", staffOnly, maintenanceHandler.UpdateMaintenance)
	maintenance.DELETE("/:id", adminOnly, maintenanceHandler.DeleteMaintenance)

	// Notification routes
	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.ListNotifications)
	notifications.DELETE("", notificationHandler.DeleteAllNotifications)
	notifications.PUT("/mark-all-read", notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
	notifications.DELETE("/:id", notificationHandler.DeleteNotification)

	// Admin routes
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

	log.Infof("Starting DMTS backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
