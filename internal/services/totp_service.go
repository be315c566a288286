package services

import (
	"context"
	"log"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/auth"
	"gatepass-backend/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "Gatepass"

// TOTPStore is the extra persistence surface for 2FA state.
type TOTPStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
	SetTOTPSecret(ctx context.Context, id int, secret string) error
	GetTOTPSecret(ctx context.Context, id int) (string, error)
	SetTOTPEnabled(ctx context.Context, id int, enabled bool) error
}

type TOTPService struct {
	store TOTPStore
	audit AuditStore
	jwt   *auth.JWTManager
}

func NewTOTPService(store TOTPStore, audit AuditStore, jwt *auth.JWTManager) *TOTPService {
	return &TOTPService{store: store, audit: audit, jwt: jwt}
}

// GenerateSetup provisions a fresh TOTP secret for the user. 2FA stays off
// until VerifyAndEnable confirms the user's authenticator produces valid
// codes from it.
func (s *TOTPService) GenerateSetup(ctx context.Context, userID int) (*models.TOTPSetupResponse, error) {
	user, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		Issuer:      totpIssuer,
		AccountName: user.Email,
		OTPAuthURL:  key.URL(),
	}, nil
}

// VerifyAndEnable turns 2FA on after the user proves they hold the secret.
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID int, code, ip string) error {
	secret, err := s.store.GetTOTPSecret(ctx, userID)
	if err != nil {
		return err
	}
	if secret == "" {
		return apperrors.Validation("2FA setup not initiated")
	}
	if !totp.Validate(code, secret) {
		return apperrors.Validation("invalid verification code")
	}

	if err := s.store.SetTOTPEnabled(ctx, userID, true); err != nil {
		return err
	}

	s.writeAudit(ctx, userID, models.ActionTOTPEnabled, ip, "Enabled two-factor authentication")

	return nil
}

// VerifyLogin finishes a 2FA login: it exchanges a valid temp token plus a
// valid TOTP code for a full session token.
func (s *TOTPService) VerifyLogin(ctx context.Context, req *models.TOTPVerifyRequest, ip string) (*models.AuthResponse, error) {
	claims, err := s.jwt.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, apperrors.Validation("invalid or expired login session")
	}

	user, err := s.store.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.TOTPEnabled {
		return nil, apperrors.Validation("2FA is not enabled")
	}

	secret, err := s.store.GetTOTPSecret(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !totp.Validate(req.Code, secret) {
		return nil, apperrors.Validation("invalid verification code")
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, user.ID, models.ActionUserLogin, ip, "Logged in with 2FA")

	return &models.AuthResponse{Token: token, User: user}, nil
}

// Disable turns 2FA off after verifying both the password and a current code.
func (s *TOTPService) Disable(ctx context.Context, userID int, req *models.TOTPDisableRequest, ip string) error {
	user, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return apperrors.Validation("invalid password")
	}

	secret, err := s.store.GetTOTPSecret(ctx, userID)
	if err != nil {
		return err
	}
	if !totp.Validate(req.Code, secret) {
		return apperrors.Validation("invalid verification code")
	}

	if err := s.store.SetTOTPEnabled(ctx, userID, false); err != nil {
		return err
	}

	s.writeAudit(ctx, userID, models.ActionTOTPDisabled, ip, "Disabled two-factor authentication")

	return nil
}

func (s *TOTPService) writeAudit(ctx context.Context, actorID int, action, ip, detail string) {
	entry := &models.AuditLogEntry{
		ActorID:    actorID,
		ActionCode: action,
		Detail:     detail,
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Printf("[TOTP] Failed to write audit log (%s): %v", action, err)
	}
}
