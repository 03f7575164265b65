package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// MakeDTO is one manufacturer in the vehicle picker.
type MakeDTO struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Country *string   `json:"country,omitempty"`
}

// ModelDTO is one model line with its production window.
type ModelDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	YearFrom    int       `json:"year_from"`
	YearTo      *int      `json:"year_to,omitempty"`
	EngineCodes []string  `json:"engine_codes"`
}

// Service serves the vehicle reference data.
type Service interface {
	ListMakes(ctx context.Context) ([]MakeDTO, error)
	ListModels(ctx context.Context, makeID uuid.UUID) ([]ModelDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListMakes(ctx context.Context) ([]MakeDTO, error) {
	makes, err := s.repo.ListMakes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing makes")
	}
	dtos := make([]MakeDTO, 0, len(makes))
	for _, m := range makes {
		dtos = append(dtos, MakeDTO{ID: m.ID, Name: m.Name, Country: m.Country})
	}
	return dtos, nil
}

// ListModels returns the model lines for a make, alphabetically.
func (s *service) ListModels(ctx context.Context, makeID uuid.UUID) ([]ModelDTO, error) {
	if _, err := s.repo.FindMakeByID(ctx, makeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "make not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading make")
	}

	list, err := s.repo.ListModelsByMake(ctx, makeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing models")
	}
	dtos := make([]ModelDTO, 0, len(list))
	for _, m := range list {
		codes := []string(m.EngineCodes)
		if codes == nil {
			codes = []string{}
		}
		dtos = append(dtos, ModelDTO{
			ID:          m.ID,
			Name:        m.Name,
			YearFrom:    m.YearFrom,
			YearTo:      m.YearTo,
			EngineCodes: codes,
		})
	}
	return dtos, nil
}
