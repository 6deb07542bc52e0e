package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "dmts/internal/errors"
	"dmts/internal/middleware"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/services"
	"dmts/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	signupFn         func(input services.SignupInput, ip, userAgent string) (*models.User, error)
	attemptLoginFn   func(username, password, ip, userAgent string) (*models.User, error)
	createUserFn     func(actor services.Actor, input services.CreateUserInput) (*services.ProvisionResult, error)
	changePasswordFn func(actor services.Actor, current, newPass, confirm string) error
	setupAccountFn   func(token, newPassword string) error
	getUserByIDFn    func(id uint) (*models.User, error)
	listUsersFn      func(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	updateUserFn     func(actor services.Actor, id uint, update services.UserUpdate) (*models.User, error)
	deleteUserFn     func(actor services.Actor, id uint) error
}

var _ services.UserServicer = (*mockUserService)(nil)

func (m *mockUserService) Signup(input services.SignupInput, ip, userAgent string) (*models.User, error) {
	if m.signupFn != nil {
		return m.signupFn(input, ip, userAgent)
	}
	return &models.User{}, nil
}

func (m *mockUserService) AttemptLogin(username, password, ip, userAgent string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(username, password, ip, userAgent)
	}
	return &models.User{}, nil
}

func (m *mockUserService) CreateUser(actor services.Actor, input services.CreateUserInput) (*services.ProvisionResult, error) {
	if m.createUserFn != nil {
		return m.createUserFn(actor, input)
	}
	return &services.ProvisionResult{User: &models.User{}}, nil
}

func (m *mockUserService) ChangePassword(actor services.Actor, current, newPass, confirm string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(actor, current, newPass, confirm)
	}
	return nil
}

func (m *mockUserService) SetupAccount(token, newPassword string) error {
	if m.setupAccountFn != nil {
		return m.setupAccountFn(token, newPassword)
	}
	return nil
}

func (m *mockUserService) GetUserByID(id uint) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(page)
	}
	resp := pagination.NewPageResponse([]models.User{}, 1, 10, 0)
	return &resp, nil
}

func (m *mockUserService) UpdateUser(actor services.Actor, id uint, update services.UserUpdate) (*models.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(actor, id, update)
	}
	return &models.User{}, nil
}

func (m *mockUserService) DeleteUser(actor services.Actor, id uint) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(actor, id)
	}
	return nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

// injectActor plants the context keys AuthMiddleware would set.
func injectActor(uid uint, username string, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Set("username", username)
		c.Set("role", role)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/signup", handler.Signup)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/refresh", handler.Refresh)
	r.POST("/auth/setup-account", handler.SetupAccount)
	r.GET("/profile", injectActor(1, "admin", models.RoleAdmin), handler.GetProfile)
	r.POST("/auth/change-password", injectActor(1, "admin", models.RoleAdmin), handler.ChangePassword)
	return r
}

// --- tests ---

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("returns 201 with tokens", func(t *testing.T) {
		userSvc := &mockUserService{
			signupFn: func(input services.SignupInput, _, _ string) (*models.User, error) {
				return &models.User{
					Base:     models.Base{ID: 1},
					Username: input.Username,
					Email:    input.Email,
					Role:     models.RoleAdmin,
					IsStaff:  true,
					IsActive: true,
				}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/signup",
			`{"username":"root-admin","email":"admin@example.com","password":"kV9#mQ2!xLp8wZ"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
		if result["refresh_token"] == nil || result["refresh_token"] == "" {
			t.Error("expected non-empty refresh_token")
		}
		user := result["user"].(map[string]interface{})
		if user["username"] != "root-admin" {
			t.Errorf("expected username root-admin, got %v", user["username"])
		}
	})

	t.Run("returns 403 once an admin exists", func(t *testing.T) {
		userSvc := &mockUserService{
			signupFn: func(_ services.SignupInput, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrAdminExists
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/signup",
			`{"username":"late","email":"late@example.com","password":"kV9#mQ2!xLp8wZ"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ADMIN_EXISTS")
	})

	t.Run("returns 400 on missing email", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

		rec := doRequest(r, "POST", "/auth/signup", `{"username":"a","password":"kV9#mQ2!xLp8wZ"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on short password", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

		rec := doRequest(r, "POST", "/auth/signup",
			`{"username":"a","email":"a@example.com","password":"short"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns 200 with tokens", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(username, _, _, _ string) (*models.User, error) {
				return &models.User{
					Base:     models.Base{ID: 7},
					Username: username,
					Role:     models.RoleEmployee,
					IsActive: true,
				}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/login", `{"username":"jdoe","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
	})

	t.Run("returns 401 on invalid credentials", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(_, _, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/login", `{"username":"jdoe","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CREDENTIALS")
	})

	t.Run("returns 400 on missing fields", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

		rec := doRequest(r, "POST", "/auth/login", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("returns new pair for valid refresh token", func(t *testing.T) {
		user := &models.User{Base: models.Base{ID: 3}, Username: "jdoe", Role: models.RoleEmployee, IsActive: true}
		refresh, err := middleware.GenerateRefreshToken(user)
		if err != nil {
			t.Fatalf("failed to mint refresh token: %v", err)
		}

		userSvc := &mockUserService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				if id != 3 {
					t.Errorf("expected lookup for user 3, got %d", id)
				}
				return user, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
	})

	t.Run("rejects an access token", func(t *testing.T) {
		user := &models.User{Base: models.Base{ID: 3}, IsActive: true}
		access, err := middleware.GenerateAccessToken(user)
		if err != nil {
			t.Fatalf("failed to mint access token: %v", err)
		}
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+access+`"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects deactivated accounts", func(t *testing.T) {
		user := &models.User{Base: models.Base{ID: 3}, IsActive: false}
		refresh, err := middleware.GenerateRefreshToken(user)
		if err != nil {
			t.Fatalf("failed to mint refresh token: %v", err)
		}
		userSvc := &mockUserService{
			getUserByIDFn: func(_ uint) (*models.User, error) { return user, nil },
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	t.Run("returns 200 with user profile", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return &models.User{
					Base:     models.Base{ID: id},
					Username: "admin",
					Email:    "admin@example.com",
					Role:     models.RoleAdmin,
				}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["email"] != "admin@example.com" {
			t.Errorf("expected admin@example.com, got %v", user["email"])
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{})
		r := gin.New()
		r.GET("/profile", handler.GetProfile)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var gotActor services.Actor
		userSvc := &mockUserService{
			changePasswordFn: func(actor services.Actor, _, _, _ string) error {
				gotActor = actor
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/change-password",
			`{"current_password":"old","new_password":"kV9#mQ2!xLp8wZ","confirm_password":"kV9#mQ2!xLp8wZ"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActor.ID != 1 || gotActor.Role != models.RoleAdmin {
			t.Errorf("actor not propagated from context: %+v", gotActor)
		}
	})

	t.Run("returns 400 on confirmation mismatch", func(t *testing.T) {
		userSvc := &mockUserService{
			changePasswordFn: func(_ services.Actor, _, _, _ string) error {
				return apperrors.ErrPasswordMismatch
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/change-password",
			`{"current_password":"old","new_password":"a-new-password1!","confirm_password":"different1!"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PASSWORD_MISMATCH")
	})
}

func TestAuthHandler_SetupAccount(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var gotToken string
		userSvc := &mockUserService{
			setupAccountFn: func(token, _ string) error {
				gotToken = token
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/setup-account",
			`{"token":"the-setup-token","password":"kV9#mQ2!xLp8wZ"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotToken != "the-setup-token" {
			t.Errorf("token not passed through, got %q", gotToken)
		}
	})

	t.Run("returns 400 on invalid token", func(t *testing.T) {
		userSvc := &mockUserService{
			setupAccountFn: func(_, _ string) error {
				return apperrors.ErrInvalidSetupToken
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/setup-account",
			`{"token":"expired","password":"kV9#mQ2!xLp8wZ"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_SETUP_TOKEN")
	})
}
