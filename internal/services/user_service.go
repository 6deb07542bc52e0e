package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"dmts/internal/config"
	apperrors "dmts/internal/errors"
	"dmts/internal/logger"
	"dmts/internal/mail"
	"dmts/internal/models"
	"dmts/internal/pagination"
	"dmts/internal/password"
)

// SetupTokenIssuer mints an account-setup token for a user.
type SetupTokenIssuer func(user *models.User) (string, error)

// SetupTokenValidator resolves a setup token back to the user ID it was
// issued for.
type SetupTokenValidator func(token string) (uint, error)

// userService handles accounts, authentication, and provisioning.
type userService struct {
	db            *gorm.DB
	audit         AuditServicer
	sender        mail.Sender
	cfg           *config.Config
	issueToken    SetupTokenIssuer
	validateToken SetupTokenValidator
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, audit AuditServicer, sender mail.Sender, cfg *config.Config,
	issueToken SetupTokenIssuer, validateToken SetupTokenValidator) UserServicer {
	return &userService{
		db:            db,
		audit:         audit,
		sender:        sender,
		cfg:           cfg,
		issueToken:    issueToken,
		validateToken: validateToken,
	}
}

func (s *userService) staffExists() (bool, error) {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("is_staff = ? OR role = ?", true, models.RoleAdmin).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

func (s *userService) checkUnique(username, email string, phone *string, excludeID uint) error {
	taken := func(column, value string) (bool, error) {
		var count int64
		q := s.db.Model(&models.User{}).Where(column+" = ?", value)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return count > 0, nil
	}

	if username != "" {
		if dup, err := taken("username", username); err != nil {
			return err
		} else if dup {
			return apperrors.ErrDuplicateUsername
		}
	}
	if email != "" {
		if dup, err := taken("email", email); err != nil {
			return err
		} else if dup {
			return apperrors.ErrDuplicateEmail
		}
	}
	if phone != nil && *phone != "" {
		if dup, err := taken("phone_number", *phone); err != nil {
			return err
		} else if dup {
			return apperrors.ErrDuplicatePhone
		}
	}
	return nil
}

// Signup creates the very first admin account. Once any staff user exists
// the endpoint is closed and new accounts come from admin provisioning.
func (s *userService) Signup(input SignupInput, ip, userAgent string) (*models.User, error) {
	exists, err := s.staffExists()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrAdminExists
	}

	if err := password.Evaluate(input.Password, input.Username, input.Email); err != nil {
		return nil, err
	}
	if err := s.checkUnique(input.Username, strings.ToLower(input.Email), nil, 0); err != nil {
		return nil, err
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username:           input.Username,
		Email:              strings.ToLower(input.Email),
		Password:           hash,
		Role:               models.RoleAdmin,
		IsActive:           true,
		IsStaff:            true,
		MustChangePassword: false,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		userID := user.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &userID,
			Action:       models.ActionCreate,
			ResourceType: models.ResourceUser,
			ResourceID:   &userID,
			ResourceName: user.Username,
			Description:  "Created user " + user.Username,
			IPAddress:    ip,
			UserAgent:    userAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AttemptLogin verifies credentials and returns the user. Admin logins are
// recorded in the audit trail.
func (s *userService) AttemptLogin(username, pass, ip, userAgent string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !password.Compare(user.Password, pass) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.Role == models.RoleAdmin {
		userID := user.ID
		s.audit.Log(nil, AuditEntry{
			UserID:       &userID,
			Action:       models.ActionLogin,
			ResourceType: models.ResourceUser,
			ResourceID:   &userID,
			ResourceName: user.Username,
			Description:  fmt.Sprintf("User %s logged in", user.Username),
			IPAddress:    ip,
			UserAgent:    userAgent,
		})
	}
	return &user, nil
}

// CreateUser provisions a new account with a generated temporary password.
// The plaintext temporary password appears only in the returned result;
// it is never persisted or logged. The setup email goes out after the
// transaction commits and its failure never rolls the creation back.
func (s *userService) CreateUser(actor Actor, input CreateUserInput) (*ProvisionResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Only administrators can create new users")
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username == "" || input.Email == "" || input.Department == "" || input.Role == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username, email, department and role are required")
	}
	switch input.Role {
	case models.RoleAdmin, models.RoleEmployee, models.RoleOperations:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid role value")
	}

	if err := s.checkUnique(input.Username, input.Email, input.PhoneNumber, 0); err != nil {
		return nil, err
	}

	tempPassword, err := password.GenerateTemporary()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	hash, err := password.Hash(tempPassword)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username:           input.Username,
		Email:              input.Email,
		Password:           hash,
		PhoneNumber:        input.PhoneNumber,
		Department:         input.Department,
		Role:               input.Role,
		IsActive:           true,
		IsStaff:            input.Role == models.RoleAdmin,
		MustChangePassword: true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		userID := user.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionCreate,
			ResourceType: models.ResourceUser,
			ResourceID:   &userID,
			ResourceName: user.Username,
			Description:  "Created user " + user.Username,
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	emailSent := s.sendSetupEmail(user)
	return &ProvisionResult{User: user, TemporaryPassword: tempPassword, EmailSent: emailSent}, nil
}

// sendSetupEmail emails the account-setup link. Failures are logged and
// reported as a flag, never as an error.
func (s *userService) sendSetupEmail(user *models.User) bool {
	if s.sender == nil {
		return false
	}
	token, err := s.issueToken(user)
	if err != nil {
		logger.Get().Errorw("failed to issue setup token", "error", err, "user_id", user.ID)
		return false
	}
	setupURL := fmt.Sprintf("%s/account-setup/%s", s.cfg.FrontendURL, token)
	if err := mail.SendAccountSetup(s.sender, user.Email, user.Username, setupURL); err != nil {
		logger.Get().Errorw("failed to send account setup email", "error", err, "user_id", user.ID)
		return false
	}
	return true
}

// ChangePassword rotates the caller's password after verifying the current
// one. A rejected attempt leaves the stored hash untouched and writes no
// audit entry.
func (s *userService) ChangePassword(actor Actor, currentPassword, newPassword, confirmPassword string) error {
	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "All password fields are required")
	}
	if newPassword != confirmPassword {
		return apperrors.ErrPasswordMismatch
	}

	user, err := s.GetUserByID(actor.ID)
	if err != nil {
		return err
	}

	if !password.Compare(user.Password, currentPassword) {
		return apperrors.ErrWrongPassword
	}
	if err := password.Evaluate(newPassword, user.Username, user.Email); err != nil {
		return err
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"password":             hash,
			"must_change_password": false,
			"last_password_change": &now,
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		userID := user.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &userID,
			Action:       models.ActionPasswordChange,
			ResourceType: models.ResourceUser,
			ResourceID:   &userID,
			ResourceName: user.Username,
			Description:  fmt.Sprintf("User %s changed their password", user.Username),
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
}

// SetupAccount completes provisioning: the token identifies the user, the
// chosen password replaces the temporary one, and the must-change flag is
// cleared.
func (s *userService) SetupAccount(token, newPassword string) error {
	userID, err := s.validateToken(token)
	if err != nil {
		return apperrors.ErrInvalidSetupToken
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return apperrors.ErrInvalidSetupToken
	}

	if err := password.Evaluate(newPassword, user.Username, user.Email); err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"password":             hash,
		"must_change_password": false,
		"last_password_change": &now,
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// ListUsers returns users ordered by ID.
func (s *userService) ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	err := s.db.Order("id").Scopes(pagination.Paginate(page)).Find(&users).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(users, page.Page, page.PageSize, total)
	return &resp, nil
}

// UpdateUser applies a partial update to a user account.
func (s *userService) UpdateUser(actor Actor, id uint, update UserUpdate) (*models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	old := map[string]interface{}{
		"email":        user.Email,
		"phone_number": user.PhoneNumber,
		"department":   user.Department,
		"role":         user.Role,
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if err := s.checkUnique("", email, nil, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if update.PhoneNumber != nil {
		if err := s.checkUnique("", "", update.PhoneNumber, user.ID); err != nil {
			return nil, err
		}
		user.PhoneNumber = update.PhoneNumber
	}
	if update.Department != nil {
		user.Department = *update.Department
	}
	if update.Role != nil {
		switch *update.Role {
		case models.RoleAdmin, models.RoleEmployee, models.RoleOperations:
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid role value")
		}
		user.Role = *update.Role
		user.IsStaff = *update.Role == models.RoleAdmin
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		userID := user.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionUpdate,
			ResourceType: models.ResourceUser,
			ResourceID:   &userID,
			ResourceName: user.Username,
			Description:  "Updated user " + user.Username,
			Changes: map[string]interface{}{
				"old": old,
				"new": map[string]interface{}{
					"email":        user.Email,
					"phone_number": user.PhoneNumber,
					"department":   user.Department,
					"role":         user.Role,
				},
			},
			IPAddress: actor.IPAddress,
			UserAgent: actor.UserAgent,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user. References from devices, issues, clearance
// logs, and the audit trail are nulled out; the user's notifications are
// removed with them.
func (s *userService) DeleteUser(actor Actor, id uint) error {
	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	username := user.Username
	return s.db.Transaction(func(tx *gorm.DB) error {
		nullRefs := []struct {
			model  interface{}
			column string
		}{
			{&models.Device{}, "assigned_to_id"},
			{&models.Device{}, "cleared_by_id"},
			{&models.Issue{}, "user_id"},
			{&models.Issue{}, "assigned_to_id"},
			{&models.ClearanceLog{}, "cleared_by_id"},
			{&models.AuditLog{}, "user_id"},
		}
		for _, ref := range nullRefs {
			if err := tx.Model(ref.model).Where(ref.column+" = ?", user.ID).
				Update(ref.column, nil).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Where("recipient_id = ?", user.ID).Delete(&models.Notification{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.User{}, user.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		userID := user.ID
		s.audit.Log(tx, AuditEntry{
			UserID:       &actor.ID,
			Action:       models.ActionDelete,
			ResourceType: models.ResourceUser,
			ResourceID:   &userID,
			ResourceName: username,
			Description:  "Deleted user " + username,
			IPAddress:    actor.IPAddress,
			UserAgent:    actor.UserAgent,
		})
		return nil
	})
}
