package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/auth"
	"gatepass-backend/internal/models"
)

// UserStore is the persistence surface for accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

var errInvalidCredentials = apperrors.Validation("invalid email or password")

type UserService struct {
	store UserStore
	audit AuditStore
	jwt   *auth.JWTManager
}

func NewUserService(store UserStore, audit AuditStore, jwt *auth.JWTManager) *UserService {
	return &UserService{store: store, audit: audit, jwt: jwt}
}

// Signup registers a self-service account with the plain user role.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if err := validateAccountFields(req.Name, req.Email, req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login verifies credentials. When the account has 2FA enabled it returns a
// short-lived temp token instead of a session token; the caller must finish
// with the TOTP step.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest, ip string) (*models.AuthResponse, *models.LoginStep1Response, error) {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperrors.ErrForbidden
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, nil, errInvalidCredentials
	}

	if user.TOTPEnabled {
		tempToken, err := s.jwt.GenerateTempToken(user)
		if err != nil {
			return nil, nil, err
		}
		return nil, &models.LoginStep1Response{
			Requires2FA: true,
			TempToken:   tempToken,
			Message:     "Enter the 6-digit code from your authenticator app",
		}, nil
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, nil, err
	}

	s.writeAudit(ctx, user.ID, models.ActionUserLogin, ip, "Logged in")

	return &models.AuthResponse{Token: token, User: user}, nil, nil
}

func (s *UserService) Get(ctx context.Context, id int) (*models.User, error) {
	return s.store.Get(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.List(ctx)
}

// CreateUser provisions an account with an explicit role (admin only).
func (s *UserService) CreateUser(ctx context.Context, actorID int, req *models.CreateUserRequest, ip string) (*models.User, error) {
	if err := validateAccountFields(req.Name, req.Email, req.Password); err != nil {
		return nil, err
	}
	if !models.ValidRole(req.Role) {
		return nil, apperrors.Validation("role must be admin, security or user")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actorID, models.ActionUserCreated, ip, "Created account "+user.Email)

	return user, nil
}

// UpdateUser edits an account's profile and role (admin only).
func (s *UserService) UpdateUser(ctx context.Context, actorID, id int, req *models.UpdateUserRequest, ip string) (*models.User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := normalizeEmail(req.Email); email != "" {
		user.Email = email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = phone
	}
	if req.Role != "" {
		if !models.ValidRole(req.Role) {
			return nil, apperrors.Validation("role must be admin, security or user")
		}
		user.Role = req.Role
	}

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, apperrors.Validation("password must be at least 8 characters")
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}

	s.writeAudit(ctx, actorID, models.ActionUserUpdated, ip, "Updated account "+user.Email)

	return user, nil
}

// SetActive suspends or reinstates an account (admin only).
func (s *UserService) SetActive(ctx context.Context, actorID, id int, active bool, ip string) error {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = active
	if err := s.store.Update(ctx, user); err != nil {
		return err
	}

	detail := "Suspended account " + user.Email
	if active {
		detail = "Reinstated account " + user.Email
	}
	s.writeAudit(ctx, actorID, models.ActionUserUpdated, ip, detail)

	return nil
}

// ChangePassword is the self-service password change. The current password
// must verify first.
func (s *UserService) ChangePassword(ctx context.Context, userID int, req *models.ChangePasswordRequest, ip string) error {
	user, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		return apperrors.Validation("current password is incorrect")
	}
	if len(req.NewPassword) < 8 {
		return apperrors.Validation("new password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.writeAudit(ctx, userID, models.ActionPasswordChanged, ip, "Changed password")

	return nil
}

func (s *UserService) writeAudit(ctx context.Context, actorID int, action, ip, detail string) {
	entry := &models.AuditLogEntry{
		ActorID:    actorID,
		ActionCode: action,
		Detail:     detail,
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Printf("[User] Failed to write audit log (%s): %v", action, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateAccountFields(name, email, password string) error {
	ve := &apperrors.ValidationError{}
	if strings.TrimSpace(name) == "" {
		ve.Add("name is required")
	}
	email = normalizeEmail(email)
	if email == "" {
		ve.Add("email is required")
	} else if !strings.Contains(email, "@") {
		ve.Add("email is invalid")
	}
	if len(password) < 8 {
		ve.Add("password must be at least 8 characters")
	}
	if ve.Any() {
		return ve
	}
	return nil
}
