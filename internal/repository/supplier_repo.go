package repository

import (
	"context"

	"marketstock/internal/dto"
	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WarehouseQuantity is a summed quantity per marketplace warehouse.
type WarehouseQuantity struct {
	WarehouseID     uuid.UUID
	MarketplaceType model.MarketplaceType
	Quantity        int
}

// SupplierRepository stores per-warehouse shipment recommendations.
type SupplierRepository interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.SupplierRecommendation, error)
	List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.SupplierRecommendation, int64, error)
	// QuantityByWarehouse sums recommended quantity per (warehouse, marketplace).
	QuantityByWarehouse(ctx context.Context, companyID uuid.UUID) ([]WarehouseQuantity, error)

	FindByKeyForUpdateTx(tx *gorm.DB, companyID, warehouseID, productID uuid.UUID, mp model.MarketplaceType) (*model.SupplierRecommendation, error)
	// FindManyForUpdateTx returns the company's rows among ids, in id order.
	FindManyForUpdateTx(tx *gorm.DB, companyID uuid.UUID, ids []uuid.UUID) ([]model.SupplierRecommendation, error)
	SaveTx(tx *gorm.DB, s *model.SupplierRecommendation) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	DeleteExceptTx(tx *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error

	DB() *gorm.DB
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepository(db *gorm.DB) SupplierRepository { return &supplierRepo{db: db} }

func (r *supplierRepo) DB() *gorm.DB { return r.db }

func (r *supplierRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.SupplierRecommendation, error) {
	var recs []model.SupplierRecommendation
	err := r.db.WithContext(ctx).Preload("Product").Preload("Warehouse").
		Where("company_id = ?", companyID).
		Order("marketplace_type, quantity DESC").Find(&recs).Error
	return recs, err
}

func (r *supplierRepo) List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.SupplierRecommendation, int64, error) {
	var recs []model.SupplierRecommendation
	q := r.db.WithContext(ctx).Model(&model.SupplierRecommendation{}).
		Preload("Product").Preload("Warehouse").
		Where("supplier_recommendations.company_id = ?", companyID)
	total, err := listPage(q, "supplier_recommendations", "quantity", f, &recs)
	return recs, total, err
}

func (r *supplierRepo) QuantityByWarehouse(ctx context.Context, companyID uuid.UUID) ([]WarehouseQuantity, error) {
	var rows []WarehouseQuantity
	err := r.db.WithContext(ctx).Model(&model.SupplierRecommendation{}).
		Select("warehouse_id, marketplace_type, COALESCE(SUM(quantity), 0) AS quantity").
		Where("company_id = ?", companyID).
		Group("warehouse_id, marketplace_type").
		Scan(&rows).Error
	return rows, err
}

func (r *supplierRepo) FindByKeyForUpdateTx(tx *gorm.DB, companyID, warehouseID, productID uuid.UUID, mp model.MarketplaceType) (*model.SupplierRecommendation, error) {
	var s model.SupplierRecommendation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND warehouse_id = ? AND product_id = ? AND marketplace_type = ?",
			companyID, warehouseID, productID, mp).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *supplierRepo) FindManyForUpdateTx(tx *gorm.DB, companyID uuid.UUID, ids []uuid.UUID) ([]model.SupplierRecommendation, error) {
	var recs []model.SupplierRecommendation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Order("id").Find(&recs).Error
	return recs, err
}

func (r *supplierRepo) SaveTx(tx *gorm.DB, s *model.SupplierRecommendation) error {
	return tx.Omit(clause.Associations).Save(s).Error
}

func (r *supplierRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.SupplierRecommendation{}, "id = ?", id).Error
}

func (r *supplierRepo) DeleteExceptTx(tx *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error {
	q := tx.Where("company_id = ?", companyID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(&model.SupplierRecommendation{}).Error
}
