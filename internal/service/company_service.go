package service

import (
	"context"
	"fmt"
	"strings"

	"marketstock/internal/dto"
	"marketstock/internal/engine"
	"marketstock/internal/model"
	"marketstock/internal/repository"

	"github.com/google/uuid"
)

// CompanyDefaults seed the settings of a new company.
type CompanyDefaults struct {
	LastSaleDays int
	NextSaleDays int
}

// CompanyService manages tenants and their recompute windows.
type CompanyService interface {
	Create(ctx context.Context, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.CompanyResponse, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	GetSettings(ctx context.Context, companyID uuid.UUID) (*dto.SettingsResponse, error)
	UpdateSettings(ctx context.Context, companyID uuid.UUID, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
}

type companyService struct {
	repo     repository.CompanyRepository
	defaults CompanyDefaults
}

func NewCompanyService(repo repository.CompanyRepository, defaults CompanyDefaults) CompanyService {
	if defaults.LastSaleDays <= 0 {
		defaults.LastSaleDays = 30
	}
	if defaults.NextSaleDays <= 0 {
		defaults.NextSaleDays = 100
	}
	return &companyService{repo: repo, defaults: defaults}
}

func (s *companyService) Create(ctx context.Context, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("company name is required")
	}
	settings := &model.CompanySettings{
		LastSaleDays: s.defaults.LastSaleDays,
		NextSaleDays: s.defaults.NextSaleDays,
	}
	if req.LastSaleDays != nil {
		settings.LastSaleDays = *req.LastSaleDays
	}
	if req.NextSaleDays != nil {
		settings.NextSaleDays = *req.NextSaleDays
	}
	if err := validateWindows(settings.LastSaleDays, settings.NextSaleDays); err != nil {
		return nil, err
	}

	c := &model.Company{Name: name, Settings: settings}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return companyToResponse(c), nil
}

func (s *companyService) Get(ctx context.Context, id uuid.UUID) (*dto.CompanyResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "company", id)
	}
	return companyToResponse(c), nil
}

func (s *companyService) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	companies, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *companyService) GetSettings(ctx context.Context, companyID uuid.UUID) (*dto.SettingsResponse, error) {
	settings, err := s.repo.FindSettings(ctx, companyID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("company %s: %w", companyID, ErrConfiguration)
		}
		return nil, err
	}
	return settingsToResponse(settings), nil
}

func (s *companyService) UpdateSettings(ctx context.Context, companyID uuid.UUID, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	if err := validateWindows(req.LastSaleDays, req.NextSaleDays); err != nil {
		return nil, err
	}
	settings, err := s.repo.FindSettings(ctx, companyID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("company %s: %w", companyID, ErrConfiguration)
		}
		return nil, err
	}
	settings.LastSaleDays = req.LastSaleDays
	settings.NextSaleDays = req.NextSaleDays
	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return settingsToResponse(settings), nil
}

func validateWindows(last, next int) error {
	if last < 1 || next < 1 {
		return invalid("last_sale_days and next_sale_days must be positive")
	}
	return nil
}

// loadWindows reads the company's windows. A missing row is a configuration
// error; the windows are never defaulted at recompute time.
func loadWindows(ctx context.Context, repo repository.CompanyRepository, companyID uuid.UUID) (engine.Windows, error) {
	settings, err := repo.FindSettings(ctx, companyID)
	if err != nil {
		if isNotFound(err) {
			return engine.Windows{}, fmt.Errorf("company %s: %w", companyID, ErrConfiguration)
		}
		return engine.Windows{}, fmt.Errorf("load settings: %w", err)
	}
	return engine.Windows{LastSaleDays: settings.LastSaleDays, NextSaleDays: settings.NextSaleDays}, nil
}
