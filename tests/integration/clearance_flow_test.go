package integration

import (
	"net/http"
	"testing"

	"dmts/internal/models"
)

func TestClearanceFlow_EndToEnd(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.signupAdmin(t)

	// An operations user and an employee holding a device.
	opsToken, _ := app.provisionUser(t, adminToken, "ops", models.RoleOperations)
	empToken, empID := app.provisionUser(t, adminToken, "holder", models.RoleEmployee)
	app.createDevice(t, adminToken, "SN-CLR-001", &empID)

	// The holder sees the device in their list.
	rec := app.request("GET", "/api/devices", "", empToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("device list failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) != 1 {
		t.Fatal("holder should see exactly one assigned device")
	}

	// Employees cannot clear devices.
	rec = app.request("POST", "/api/devices/SN-CLR-001/clear", `{"clearance_reason":"nope"}`, empToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee clearing, got %d", rec.Code)
	}

	// Operations clears the device.
	rec = app.request("POST", "/api/devices/SN-CLR-001/clear",
		`{"clearance_reason":"Employee offboarded"}`, opsToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("clearance failed: %d %s", rec.Code, rec.Body.String())
	}
	device := parseJSON(t, rec)["device"].(map[string]interface{})
	if device["status"] != "Cleared" {
		t.Errorf("expected Cleared status, got %v", device["status"])
	}
	if device["assigned_to_id"] != nil {
		t.Error("clearance should unassign the device")
	}

	// Clearing again fails.
	rec = app.request("POST", "/api/devices/SN-CLR-001/clear", `{"clearance_reason":"again"}`, opsToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for double clearance, got %d", rec.Code)
	}

	// The previous holder was notified.
	rec = app.request("GET", "/api/notifications", "", empToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("notification list failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) < 1 {
		t.Error("previous holder should receive a clearance notification")
	}

	// The clearance is in the admin log.
	rec = app.request("GET", "/api/clearance-logs", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("clearance log list failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) != 1 {
		t.Error("expected exactly one clearance log entry")
	}

	// Cleared devices disappear from the default list.
	rec = app.request("GET", "/api/devices", "", adminToken)
	if parseJSON(t, rec)["total_items"].(float64) != 0 {
		t.Error("cleared devices should be hidden by default")
	}
	rec = app.request("GET", "/api/devices?include_cleared=true", "", adminToken)
	if parseJSON(t, rec)["total_items"].(float64) != 1 {
		t.Error("include_cleared should reveal the cleared device")
	}
}
