package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

const (
	minTermLength   = 2
	maxTermLength   = 100
	minEngineLength = 2

	minFitYear = 1900
	maxFitYear = 2030
)

// MatchKind reports which branch of the search dispatch produced the page.
type MatchKind string

const (
	MatchPartNumber MatchKind = "part_number"
	MatchOEMNumber  MatchKind = "oem_number"
	MatchGeneral    MatchKind = "general"
	MatchVehicle    MatchKind = "vehicle"
)

// codeTermPattern gates the part/OEM number fast path. Shorter or punctuated
// terms go straight to the general search.
var codeTermPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{5,}$`)

var blockedFragments = []string{"<", ">", `"`, "'", "`", "script"}

// Result is one page of hits plus the branch that matched.
type Result struct {
	Products pagination.Page[catalog.ProductDTO] `json:"products"`
	Match    MatchKind                           `json:"match"`
}

// Service dispatches storefront search requests.
type Service interface {
	Search(ctx context.Context, term string, filters Filters, params pagination.Params) (*Result, error)
	SearchByVehicle(ctx context.Context, vehicle VehicleQuery, filters Filters, params pagination.Params) (*Result, error)
	Browse(ctx context.Context, filters Filters, params pagination.Params) (*Result, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService constructs a search service instance.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("search repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Search sanitizes the term and walks the dispatch chain: exact part number,
// then exact OEM number, then the general substring search. A branch only
// wins when it yields at least one hit.
func (s *service) Search(ctx context.Context, term string, filters Filters, params pagination.Params) (*Result, error) {
	cleaned, err := SanitizeTerm(term)
	if err != nil {
		return nil, err
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	if codeTermPattern.MatchString(cleaned) {
		products, total, err := s.repo.FindByPartNumber(ctx, cleaned, filters, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "part number search")
		}
		if total > 0 {
			return s.result(products, params, total, MatchPartNumber), nil
		}

		products, total, err = s.repo.FindByOEMNumber(ctx, cleaned, filters, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "oem number search")
		}
		if total > 0 {
			return s.result(products, params, total, MatchOEMNumber), nil
		}

		s.logg.Info(s.logg.WithField(ctx, "term", cleaned), "code-shaped term had no exact match, falling back to general search")
	}

	products, total, err := s.repo.FindGeneral(ctx, cleaned, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "general search")
	}
	return s.result(products, params, total, MatchGeneral), nil
}

// Browse is the filtered storefront listing: no term, filters and paging
// only.
func (s *service) Browse(ctx context.Context, filters Filters, params pagination.Params) (*Result, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	products, total, err := s.repo.FindGeneral(ctx, "", filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "product listing")
	}
	return s.result(products, params, total, MatchGeneral), nil
}

// SearchByVehicle returns products with a fitment row covering the vehicle.
func (s *service) SearchByVehicle(ctx context.Context, vehicle VehicleQuery, filters Filters, params pagination.Params) (*Result, error) {
	vehicle.Make = strings.TrimSpace(vehicle.Make)
	vehicle.Model = strings.TrimSpace(vehicle.Model)
	vehicle.Engine = strings.TrimSpace(vehicle.Engine)
	if vehicle.Make == "" || vehicle.Model == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle make and model are required")
	}
	if utf8.RuneCountInString(vehicle.Engine) < minEngineLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("vehicle engine must be at least %d characters", minEngineLength))
	}
	if vehicle.Year < minFitYear || vehicle.Year > maxFitYear {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("vehicle year must be between %d and %d", minFitYear, maxFitYear))
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	products, total, err := s.repo.FindByVehicle(ctx, vehicle, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "vehicle search")
	}
	return s.result(products, params, total, MatchVehicle), nil
}

func (s *service) result(products []models.Product, params pagination.Params, total int64, match MatchKind) *Result {
	return &Result{
		Products: pagination.NewPage(catalog.ToProductDTOs(products), params, total),
		Match:    match,
	}
}

// SanitizeTerm trims the raw term, enforces the length window and rejects
// markup fragments. Terms longer than the maximum are clamped, not rejected.
// Lengths count runes so clamping never splits a multi-byte character.
func SanitizeTerm(raw string) (string, error) {
	term := strings.TrimSpace(raw)
	if utf8.RuneCountInString(term) < minTermLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("search term must be at least %d characters", minTermLength))
	}
	if runes := []rune(term); len(runes) > maxTermLength {
		term = string(runes[:maxTermLength])
	}

	lowered := strings.ToLower(term)
	for _, fragment := range blockedFragments {
		if strings.Contains(lowered, fragment) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "search term contains forbidden characters")
		}
	}
	return term, nil
}

func validateFilters(filters Filters) error {
	if filters.MinPrice != nil && filters.MinPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum price cannot be negative")
	}
	if filters.MinPrice != nil && filters.MaxPrice != nil && filters.MinPrice.GreaterThan(*filters.MaxPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum price exceeds maximum price")
	}
	if filters.Condition != nil && !filters.Condition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product condition filter")
	}
	return nil
}
