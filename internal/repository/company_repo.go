package repository

import (
	"context"

	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyRepository defines the data access contract for tenants and their
// settings. Services depend on this interface so they can be tested with stubs.
type CompanyRepository interface {
	// Create inserts the company and its settings row in one transaction.
	Create(ctx context.Context, c *model.Company) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	List(ctx context.Context) ([]model.Company, error)

	// FindSettings returns gorm.ErrRecordNotFound when the company has none.
	FindSettings(ctx context.Context, companyID uuid.UUID) (*model.CompanySettings, error)
	UpdateSettings(ctx context.Context, s *model.CompanySettings) error
}

type companyRepo struct{ db *gorm.DB }

func NewCompanyRepository(db *gorm.DB) CompanyRepository { return &companyRepo{db: db} }

func (r *companyRepo) Create(ctx context.Context, c *model.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings := c.Settings
		c.Settings = nil
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if settings != nil {
			settings.CompanyID = c.ID
			if err := tx.Create(settings).Error; err != nil {
				return err
			}
			c.Settings = settings
		}
		return nil
	})
}

func (r *companyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var c model.Company
	err := r.db.WithContext(ctx).Preload("Settings").First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepo) List(ctx context.Context) ([]model.Company, error) {
	var companies []model.Company
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&companies).Error
	return companies, err
}

func (r *companyRepo) FindSettings(ctx context.Context, companyID uuid.UUID) (*model.CompanySettings, error) {
	var s model.CompanySettings
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *companyRepo) UpdateSettings(ctx context.Context, s *model.CompanySettings) error {
	return r.db.WithContext(ctx).Model(&model.CompanySettings{}).
		Where("company_id = ?", s.CompanyID).
		Updates(map[string]interface{}{
			"last_sale_days": s.LastSaleDays,
			"next_sale_days": s.NextSaleDays,
		}).Error
}
