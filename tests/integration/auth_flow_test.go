package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAuthFlow_SignupLoginProfileRefresh(t *testing.T) {
	app := setupApp(t)

	// Step 1: First-admin signup
	accessToken, userID := app.signupAdmin(t)
	if accessToken == "" {
		t.Fatal("expected non-empty access token from signup")
	}
	if userID == 0 {
		t.Fatal("expected non-zero user ID")
	}

	// Step 2: Login with the same credentials
	rec := app.request("POST", "/api/auth/login",
		`{"username":"root-admin","password":"kV9#mQ2!xLp8wZ"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	loginAccess := result["access_token"].(string)
	loginRefresh := result["refresh_token"].(string)

	// Step 3: Access profile
	rec = app.request("GET", "/api/profile", "", loginAccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["username"] != "root-admin" {
		t.Errorf("expected root-admin, got %v", user["username"])
	}
	if user["role"] != "Admin" {
		t.Errorf("first signup should yield an Admin, got %v", user["role"])
	}

	// Step 4: Refresh
	body := fmt.Sprintf(`{"refresh_token":%q}`, loginRefresh)
	rec = app.request("POST", "/api/auth/refresh", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	newAccess := parseJSON(t, rec)["access_token"].(string)

	// Step 5: The new access token works
	rec = app.request("GET", "/api/profile", "", newAccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with refreshed token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthFlow_SignupClosedAfterFirstAdmin(t *testing.T) {
	app := setupApp(t)
	app.signupAdmin(t)

	rec := app.request("POST", "/api/auth/signup",
		`{"username":"second","email":"second@example.com","password":"kV9#mQ2!xLp8wZ"}`, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 once an admin exists, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "ADMIN_EXISTS" {
		t.Errorf("expected ADMIN_EXISTS, got %v", errObj["code"])
	}
}

func TestAuthFlow_ProvisionedAccountLifecycle(t *testing.T) {
	app := setupApp(t)
	adminToken, _ := app.signupAdmin(t)

	// Provision an employee. The temporary password is returned exactly once.
	rec := app.request("POST", "/api/users",
		`{"username":"jdoe","email":"jdoe@example.com","department":"Engineering","role":"Employee"}`,
		adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("provisioning failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	tempPassword := result["temporary_password"].(string)
	if len(tempPassword) != 10 {
		t.Errorf("expected 10-character temporary password, got %d", len(tempPassword))
	}

	// Log in with the temporary password.
	rec = app.request("POST", "/api/auth/login",
		fmt.Sprintf(`{"username":"jdoe","password":%q}`, tempPassword), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login with temporary password failed: %d %s", rec.Code, rec.Body.String())
	}
	empToken := parseJSON(t, rec)["access_token"].(string)

	// The profile shows the forced password change.
	rec = app.request("GET", "/api/profile", "", empToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["must_change_password"] != true {
		t.Error("provisioned accounts must require a password change")
	}

	// Employees cannot reach admin surfaces.
	rec = app.request("GET", "/api/users", "", empToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee on /users, got %d", rec.Code)
	}

	// Rotate the password.
	rec = app.request("POST", "/api/auth/change-password",
		fmt.Sprintf(`{"current_password":%q,"new_password":"nW4$tY7&bQe2sH","confirm_password":"nW4$tY7&bQe2sH"}`, tempPassword),
		empToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("password change failed: %d %s", rec.Code, rec.Body.String())
	}

	// The new password logs in and the flag is cleared.
	rec = app.request("POST", "/api/auth/login",
		`{"username":"jdoe","password":"nW4$tY7&bQe2sH"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login with rotated password failed: %d %s", rec.Code, rec.Body.String())
	}
	user = parseJSON(t, rec)["user"].(map[string]interface{})
	if user["must_change_password"] != false {
		t.Error("password rotation should clear must_change_password")
	}
}
