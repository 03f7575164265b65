package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/notifications"
	"github.com/recicar/marketplace-backend/pkg/auth"
	"github.com/recicar/marketplace-backend/pkg/config"
	"github.com/recicar/marketplace-backend/pkg/db"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/security"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = time.Hour
	resetThrottleTTL  = 5 * time.Minute
)

// RegisterInput is a customer self-signup request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
}

// Service handles account lifecycle and authentication.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}

type vendorLoader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
}

// resetThrottle caps how often a single account can request a reset email.
type resetThrottle interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ResetTokenKey(userID string) string
}

type service struct {
	repo        *Repository
	vendors     vendorLoader
	dispatcher  *notifications.Dispatcher
	throttle    resetThrottle
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
	logg        *logger.Logger
}

// NewService constructs the users service. The dispatcher and throttle are
// optional; everything else is required.
func NewService(
	repo *Repository,
	vendors vendorLoader,
	dispatcher *notifications.Dispatcher,
	throttle resetThrottle,
	jwtCfg config.JWTConfig,
	passwordCfg config.PasswordConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		vendors:     vendors,
		dispatcher:  dispatcher,
		throttle:    throttle,
		jwtCfg:      jwtCfg,
		passwordCfg: passwordCfg,
		now:         time.Now,
		logg:        logg,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	if _, err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}

	s.notify(ctx, notifications.Message{
		Kind:      enums.NotificationAccountVerification,
		Recipient: user.Email,
		Subject:   "Welcome to Recicar",
		Fields:    map[string]string{"first_name": user.FirstName},
	})

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(ctx, "user registered")

	dto := ToUserDTO(user)
	return &dto, nil
}

// Login verifies the credentials and mints an access token. Unknown email,
// wrong password and a deactivated account all come back as the same
// unauthorized error.
func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up user")
	}

	match, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !match || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	payload := auth.AccessTokenPayload{UserID: user.ID, Role: user.Role}
	if user.Role == enums.UserRoleVendor {
		vendor, err := s.vendors.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vendor profile")
		}
		if vendor != nil {
			payload.VendorID = &vendor.ID
		}
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logg.Error(ctx, "recording last login", err)
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(ctx, "user logged in")

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		User:      ToUserDTO(user),
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// RequestPasswordReset issues a single-use token. The response never reveals
// whether the email exists.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up user")
	}

	if s.throttle != nil {
		allowed, err := s.throttle.SetNX(ctx, s.throttle.ResetTokenKey(user.ID.String()), "1", resetThrottleTTL)
		if err != nil {
			s.logg.Error(ctx, "reset throttle check failed", err)
		} else if !allowed {
			return nil
		}
	}

	raw, digest, err := security.GenerateResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating reset token")
	}

	now := s.now()
	if err := s.repo.InvalidateResetTokens(ctx, user.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalidating old tokens")
	}
	token := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: digest,
		ExpiresAt: now.Add(resetTokenTTL),
	}
	if err := s.repo.CreateResetToken(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing reset token")
	}

	s.notify(ctx, notifications.Message{
		Kind:      enums.NotificationPasswordReset,
		Recipient: user.Email,
		Subject:   "Reset your Recicar password",
		Fields:    map[string]string{"token": raw},
	})

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(ctx, "password reset requested")
	return nil
}

func (s *service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if strings.TrimSpace(rawToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if len(newPassword) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	token, err := s.repo.FindResetTokenByHash(ctx, security.HashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up reset token")
	}

	now := s.now()
	if !token.Usable(now) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	if err := s.repo.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating password")
	}
	if err := s.repo.MarkResetTokenUsed(ctx, token.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consuming reset token")
	}

	ctx = s.logg.WithUserID(ctx, token.UserID.String())
	s.logg.Info(ctx, "password reset completed")
	return nil
}

func (s *service) notify(ctx context.Context, msg notifications.Message) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Enqueue(ctx, msg)
}

func validateRegisterInput(input RegisterInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if strings.TrimSpace(input.LastName) == "" {
		missing = append(missing, "last_name")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
