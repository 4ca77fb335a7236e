package repository

import (
	"context"

	"marketstock/internal/dto"
	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecommendationRepository stores per-product replenishment quantities.
type RecommendationRepository interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Recommendation, error)
	List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.Recommendation, int64, error)

	// Used inside transactions; callers must pass the tx instance.
	// The Find*Tx methods lock the row until the transaction ends.
	FindForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.Recommendation, error)
	FindByProductForUpdateTx(tx *gorm.DB, companyID, productID uuid.UUID) (*model.Recommendation, error)
	SaveTx(tx *gorm.DB, r *model.Recommendation) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	// DeleteExceptTx drops the company's rows whose product is not in keep.
	DeleteExceptTx(tx *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error

	DB() *gorm.DB
}

type recommendationRepo struct{ db *gorm.DB }

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepo{db: db}
}

func (r *recommendationRepo) DB() *gorm.DB { return r.db }

func (r *recommendationRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Recommendation, error) {
	var recs []model.Recommendation
	err := r.db.WithContext(ctx).Preload("Product").
		Where("company_id = ?", companyID).
		Order("quantity DESC").Find(&recs).Error
	return recs, err
}

func (r *recommendationRepo) List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.Recommendation, int64, error) {
	var recs []model.Recommendation
	q := r.db.WithContext(ctx).Model(&model.Recommendation{}).Preload("Product").
		Where("recommendations.company_id = ?", companyID)
	total, err := listPage(q, "recommendations", "quantity", f, &recs)
	return recs, total, err
}

func (r *recommendationRepo) FindForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.Recommendation, error) {
	var rec model.Recommendation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND company_id = ?", id, companyID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recommendationRepo) FindByProductForUpdateTx(tx *gorm.DB, companyID, productID uuid.UUID) (*model.Recommendation, error) {
	var rec model.Recommendation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND product_id = ?", companyID, productID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recommendationRepo) SaveTx(tx *gorm.DB, rec *model.Recommendation) error {
	return tx.Omit(clause.Associations).Save(rec).Error
}

func (r *recommendationRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Recommendation{}, "id = ?", id).Error
}

func (r *recommendationRepo) DeleteExceptTx(tx *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error {
	q := tx.Where("company_id = ?", companyID)
	if len(keep) > 0 {
		q = q.Where("product_id NOT IN ?", keep)
	}
	return q.Delete(&model.Recommendation{}).Error
}
