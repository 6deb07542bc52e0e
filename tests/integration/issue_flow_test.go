package integration

import (
	"fmt"
	"net/http"
	"testing"

	"dmts/internal/models"
)

func TestIssueFlow_ReportUpdateResolve(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.signupAdmin(t)

	empToken, empID := app.provisionUser(t, adminToken, "reporter", models.RoleEmployee)
	app.createDevice(t, adminToken, "SN-ISS-001", &empID)

	// The holder reports an issue.
	rec := app.request("POST", "/api/issues",
		`{"device_serial":"SN-ISS-001","description":"Screen flickers on battery"}`, empToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue creation failed: %d %s", rec.Code, rec.Body.String())
	}
	issue := parseJSON(t, rec)["issue"].(map[string]interface{})
	issueID := issue["id"].(float64)
	if issue["status"] != "Pending" {
		t.Errorf("new issues start Pending, got %v", issue["status"])
	}
	if issue["priority"] != "Medium" {
		t.Errorf("priority should default to Medium, got %v", issue["priority"])
	}

	// A non-holder cannot report against the same device.
	otherToken, _ := app.provisionUser(t, adminToken, "bystander", models.RoleEmployee)
	rec = app.request("POST", "/api/issues",
		`{"device_serial":"SN-ISS-001","description":"not my device"}`, otherToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-holder, got %d", rec.Code)
	}

	// Employees cannot list all issues.
	rec = app.request("GET", "/api/issues", "", empToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee on issue list, got %d", rec.Code)
	}

	// Staff moves the issue to In Progress; the reporter is notified.
	rec = app.request("PUT", fmt.Sprintf("/api/issues/%d", int(issueID)),
		`{"status":"In Progress","response":"Swapping the display"}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("issue update failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/notifications", "", empToken)
	if parseJSON(t, rec)["total_items"].(float64) < 1 {
		t.Error("reporter should be notified of the status change")
	}

	// Staff resolves the issue.
	rec = app.request("POST", fmt.Sprintf("/api/issues/%d/resolve", int(issueID)),
		`{"response":"Display replaced"}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve failed: %d %s", rec.Code, rec.Body.String())
	}
	issue = parseJSON(t, rec)["issue"].(map[string]interface{})
	if issue["status"] != "Resolved" {
		t.Errorf("expected Resolved, got %v", issue["status"])
	}
	if issue["resolved_at"] == nil {
		t.Error("resolution should stamp resolved_at")
	}

	// The reporter sees it under their own issues.
	rec = app.request("GET", "/api/my-issues", "", empToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("my-issues failed: %d %s", rec.Code, rec.Body.String())
	}
	issues := parseJSON(t, rec)["issues"].([]interface{})
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for reporter, got %d", len(issues))
	}
}

func TestIssueFlow_AuditTrail(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.signupAdmin(t)

	app.createDevice(t, adminToken, "SN-AUD-001", nil)

	// Device creation and the admin signup both leave audit entries.
	rec := app.request("GET", "/api/audit-logs", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit log list failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) < 2 {
		t.Error("expected audit entries for signup and device creation")
	}

	// Filtering by resource type narrows the list.
	rec = app.request("GET", "/api/audit-logs?resource_type=DEVICE", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered audit list failed: %d %s", rec.Code, rec.Body.String())
	}
	logs := parseJSON(t, rec)
	if logs["total_items"].(float64) != 1 {
		t.Errorf("expected 1 DEVICE audit entry, got %v", logs["total_items"])
	}

	// The CSV export is reachable.
	rec = app.request("GET", "/api/audit-logs/export", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit export failed: %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("expected text/csv, got %s", rec.Header().Get("Content-Type"))
	}
}
