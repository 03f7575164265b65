package vendors

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/notifications"
	"github.com/recicar/marketplace-backend/internal/users"
	"github.com/recicar/marketplace-backend/pkg/config"
	"github.com/recicar/marketplace-backend/pkg/db"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/pagination"
	"github.com/recicar/marketplace-backend/pkg/security"
)

const minPasswordLength = 8

// defaultCommissionRate is the fraction of each sale the platform keeps,
// applied to every new seller until an admin adjusts it.
var defaultCommissionRate = decimal.NewFromFloat(0.10)

// RegisterInput is a vendor onboarding application. It creates both the
// operator account and the seller profile.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        *string
	BusinessName string
	TaxID        string
	Description  *string
	Categories   []string
	AddressLine  *string
	City         *string
	Region       *string
	PostalCode   *string
}

// Service handles vendor onboarding and moderation.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*VendorDTO, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*VendorDTO, error)
	ListByStatus(ctx context.Context, status enums.VendorStatus, params pagination.Params) (*pagination.Page[VendorDTO], error)
	Approve(ctx context.Context, id uuid.UUID) (*VendorDTO, error)
	Suspend(ctx context.Context, id uuid.UUID) (*VendorDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo        *Repository
	userRepo    *users.Repository
	dispatcher  *notifications.Dispatcher
	tx          txRunner
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs the vendors service. The dispatcher is optional.
func NewService(
	repo *Repository,
	userRepo *users.Repository,
	dispatcher *notifications.Dispatcher,
	tx txRunner,
	passwordCfg config.PasswordConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		tx:          tx,
		passwordCfg: passwordCfg,
		logg:        logg,
	}, nil
}

// Register creates the operator account and the PENDING seller profile in one
// transaction. The applicant cannot list products until an admin approves.
func (s *service) Register(ctx context.Context, input RegisterInput) (*VendorDTO, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	var vendor *models.Vendor
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userTx := s.userRepo.WithTx(tx)
		vendorTx := s.repo.WithTx(tx)

		user := &models.User{
			Email:        strings.ToLower(strings.TrimSpace(input.Email)),
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			Phone:        input.Phone,
			Role:         enums.UserRoleVendor,
			IsActive:     true,
		}
		if _, err := userTx.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return err
		}

		candidate := &models.Vendor{
			UserID:         user.ID,
			BusinessName:   strings.TrimSpace(input.BusinessName),
			TaxID:          strings.TrimSpace(input.TaxID),
			Description:    input.Description,
			Status:         enums.VendorStatusPending,
			CommissionRate: defaultCommissionRate,
			Categories:     pq.StringArray(normalizeCategories(input.Categories)),
			AddressLine:    input.AddressLine,
			City:           input.City,
			Region:         input.Region,
			PostalCode:     input.PostalCode,
		}
		if _, err := vendorTx.Create(ctx, candidate); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "business name or tax id already registered")
			}
			return err
		}
		candidate.User = user
		vendor = candidate
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "registering vendor")
	}

	ctx = s.logg.WithVendorID(ctx, vendor.ID.String())
	s.logg.Info(ctx, "vendor application received")
	return ToVendorDTO(vendor), nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*VendorDTO, error) {
	vendor, err := s.loadVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToVendorDTO(vendor), nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.VendorStatus, params pagination.Params) (*pagination.Page[VendorDTO], error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor status filter")
	}
	vendors, total, err := s.repo.ListByStatus(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing vendors")
	}
	page := pagination.NewPage(ToVendorDTOs(vendors), params, total)
	return &page, nil
}

// Approve moves a pending or suspended seller into APPROVED.
func (s *service) Approve(ctx context.Context, id uuid.UUID) (*VendorDTO, error) {
	return s.moderate(ctx, id, enums.VendorStatusApproved)
}

// Suspend pulls an approved seller off the storefront. Their listings stay in
// place but product management is blocked until reinstated.
func (s *service) Suspend(ctx context.Context, id uuid.UUID) (*VendorDTO, error) {
	return s.moderate(ctx, id, enums.VendorStatusSuspended)
}

func (s *service) moderate(ctx context.Context, id uuid.UUID, target enums.VendorStatus) (*VendorDTO, error) {
	vendor, err := s.loadVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModerate(vendor.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor status transition disallowed").
			WithDetails(map[string]any{"from": vendor.Status, "to": target})
	}

	// The operator account follows the decision: suspended sellers cannot
	// log in, reinstated ones can.
	active := target == enums.VendorStatusApproved
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, id, target); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).SetActive(ctx, vendor.UserID, active)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating vendor status")
	}
	vendor.Status = target
	if vendor.User != nil {
		vendor.User.IsActive = active
	}

	s.notifyDecision(ctx, vendor)

	ctx = s.logg.WithVendorID(ctx, vendor.ID.String())
	s.logg.Info(ctx, "vendor status updated")
	return ToVendorDTO(vendor), nil
}

func canModerate(from, to enums.VendorStatus) bool {
	switch to {
	case enums.VendorStatusApproved:
		return from == enums.VendorStatusPending || from == enums.VendorStatusSuspended
	case enums.VendorStatusSuspended:
		return from == enums.VendorStatusApproved
	default:
		return false
	}
}

func (s *service) loadVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vendor")
	}
	return vendor, nil
}

func (s *service) notifyDecision(ctx context.Context, vendor *models.Vendor) {
	if s.dispatcher == nil || vendor.User == nil {
		return
	}
	s.dispatcher.Enqueue(ctx, notifications.Message{
		Kind:      enums.NotificationVendorDecision,
		Recipient: vendor.User.Email,
		Subject:   "Your Recicar seller account",
		Fields: map[string]string{
			"business_name": vendor.BusinessName,
			"status":        vendor.Status.String(),
		},
	})
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
	if strings.TrimSpace(input.BusinessName) == "" {
		missing = append(missing, "business_name")
	}
	if strings.TrimSpace(input.TaxID) == "" {
		missing = append(missing, "tax_id")
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

func normalizeCategories(categories []string) []string {
	cleaned := make([]string, 0, len(categories))
	for _, c := range categories {
		trimmed := strings.TrimSpace(c)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
