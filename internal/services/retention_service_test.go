package services

import (
	"testing"
	"time"

	"dmts/internal/models"
	"dmts/internal/testutil"
)

func TestRetentionRun(t *testing.T) {
	t.Run("removes_expired_records", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRetentionService(db, NewAuditService(db))

		user := testutil.CreateTestUser(t, db)
		device := testutil.CreateTestDevice(t, db)

		// Audit logs on both sides of the 90-day cutoff.
		testutil.CreateTestAuditLog(t, db, 120*24*time.Hour)
		testutil.CreateTestAuditLog(t, db, 10*24*time.Hour)

		// A resolved issue last touched well past the cutoff, and a fresh one.
		oldIssue := testutil.CreateTestIssue(t, db, device.ID, &user.ID)
		db.Model(oldIssue).Updates(map[string]interface{}{
			"status":     models.IssueStatusResolved,
			"updated_at": time.Now().AddDate(0, 0, -120),
		})
		freshIssue := testutil.CreateTestIssue(t, db, device.ID, &user.ID)
		db.Model(freshIssue).Update("status", models.IssueStatusResolved)

		// Completed maintenance past the cutoff, and one still scheduled.
		oldMaint := testutil.CreateTestMaintenance(t, db, device.ID)
		db.Model(oldMaint).Updates(map[string]interface{}{
			"status":           models.MaintenanceCompleted,
			"maintenance_date": time.Now().AddDate(0, 0, -120),
		})
		staleButScheduled := testutil.CreateTestMaintenance(t, db, device.ID)
		db.Model(staleButScheduled).Update("maintenance_date", time.Now().AddDate(0, 0, -120))

		result, err := svc.Run(90, "", "")
		testutil.AssertNoError(t, err)

		if result.AuditLogsDeleted != 1 {
			t.Errorf("expected 1 audit log deleted, got %d", result.AuditLogsDeleted)
		}
		if result.IssuesDeleted != 1 {
			t.Errorf("expected 1 issue deleted, got %d", result.IssuesDeleted)
		}
		if result.MaintenancesDeleted != 1 {
			t.Errorf("expected 1 maintenance deleted, got %d", result.MaintenancesDeleted)
		}

		var issueCount, maintCount int64
		db.Model(&models.Issue{}).Count(&issueCount)
		db.Model(&models.Maintenance{}).Count(&maintCount)
		if issueCount != 1 {
			t.Errorf("fresh resolved issue should survive, got %d issues", issueCount)
		}
		if maintCount != 1 {
			t.Errorf("scheduled maintenance should survive regardless of date, got %d records", maintCount)
		}
	})

	t.Run("rejects_non_positive_days", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRetentionService(db, NewAuditService(db))

		_, err := svc.Run(0, "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
