package repository

import (
	"context"

	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository covers listings and the two warehouse identities.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByBarcodeTx returns every marketplace listing sharing the barcode.
	FindByBarcodeTx(tx *gorm.DB, barcode string) ([]model.Product, error)
	// UpsertTx inserts the listing or refreshes its vendor code, keyed by
	// (barcode, marketplace). p.ID is filled in either way.
	UpsertTx(tx *gorm.DB, p *model.Product) error

	// EnsureWarehouseTx and EnsureStockWarehouseTx find-or-create by natural key.
	EnsureWarehouseTx(tx *gorm.DB, w *model.Warehouse) error
	EnsureStockWarehouseTx(tx *gorm.DB, w *model.WarehouseForStock) error
	FindWarehouse(ctx context.Context, id uuid.UUID) (*model.Warehouse, error)

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByBarcodeTx(tx *gorm.DB, barcode string) ([]model.Product, error) {
	var products []model.Product
	err := tx.Where("barcode = ?", barcode).Order("created_at ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) UpsertTx(tx *gorm.DB, p *model.Product) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode"}, {Name: "marketplace_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"vendor_code", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return err
	}
	// ON CONFLICT ... DO UPDATE does not always hand back the existing id.
	return tx.Where("barcode = ? AND marketplace_type = ?", p.Barcode, p.MarketplaceType).First(p).Error
}

func (r *productRepo) EnsureWarehouseTx(tx *gorm.DB, w *model.Warehouse) error {
	return tx.Where(model.Warehouse{
		Name: w.Name, Country: w.Country, Oblast: w.Oblast, Region: w.Region,
	}).FirstOrCreate(w).Error
}

func (r *productRepo) EnsureStockWarehouseTx(tx *gorm.DB, w *model.WarehouseForStock) error {
	return tx.Where(model.WarehouseForStock{
		Name: w.Name, MarketplaceType: w.MarketplaceType,
	}).FirstOrCreate(w).Error
}

func (r *productRepo) FindWarehouse(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	var w model.Warehouse
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}
