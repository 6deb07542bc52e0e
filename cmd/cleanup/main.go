package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"dmts/internal/config"
	"dmts/internal/database"
	"dmts/internal/logger"
	"dmts/internal/models"
	"dmts/internal/services"
)

var (
	daysFlag = &cli.IntFlag{
		Name:  "days",
		Usage: "Delete records older than this many days",
		Value: 90,
	}
	actionTypeFlag = &cli.StringFlag{
		Name:  "action-type",
		Usage: "Only delete audit logs with this action (e.g. LOGIN, UPDATE)",
	}
	resourceTypeFlag = &cli.StringFlag{
		Name:  "resource-type",
		Usage: "Only delete audit logs for this resource type (e.g. DEVICE, USER)",
	}
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	app := &cli.App{
		Name:   "cleanup",
		Usage:  "Remove audit logs and closed records older than the retention window",
		Flags:  []cli.Flag{daysFlag, actionTypeFlag, resourceTypeFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Fatalf("Cleanup error: %v", err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	days := ctx.Int(daysFlag.Name)
	if !ctx.IsSet(daysFlag.Name) && cfg.RetentionDays > 0 {
		days = cfg.RetentionDays
	}

	action := models.AuditAction(ctx.String(actionTypeFlag.Name))
	if action != "" && !models.ValidAuditAction(action) {
		return fmt.Errorf("invalid action type: %s", action)
	}
	resourceType := models.ResourceType(ctx.String(resourceTypeFlag.Name))
	if resourceType != "" && !models.ValidResourceType(resourceType) {
		return fmt.Errorf("invalid resource type: %s", resourceType)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db := dbManager.DB()
	retention := services.NewRetentionService(db, services.NewAuditService(db))

	result, err := retention.Run(days, action, resourceType)
	if err != nil {
		return fmt.Errorf("retention pass failed: %w", err)
	}

	logger.Get().Infof("Deleted %d audit log(s), %d resolved issue(s), %d completed maintenance record(s) older than %d days",
		result.AuditLogsDeleted, result.IssuesDeleted, result.MaintenancesDeleted, days)
	return nil
}
