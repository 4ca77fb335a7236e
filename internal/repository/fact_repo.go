package repository

import (
	"context"
	"time"

	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FactQuery selects sale or order facts of one product. From and To are
// inclusive dates. Nil pointers are not filtered on.
type FactQuery struct {
	CompanyID   uuid.UUID
	ProductID   uuid.UUID
	From        time.Time
	To          time.Time
	WarehouseID *uuid.UUID
	Marketplace *model.MarketplaceType
}

// StockQuery selects the latest snapshot per stock warehouse at or before AsOf.
// WarehouseName matches the coarse stock warehouse identity by name.
type StockQuery struct {
	CompanyID     uuid.UUID
	ProductID     uuid.UUID
	AsOf          time.Time
	WarehouseName *string
	Marketplace   *model.MarketplaceType
}

// WarehouseSales is the sale count of one product at one marketplace warehouse.
type WarehouseSales struct {
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	WarehouseName   string
	MarketplaceType model.MarketplaceType
	Count           int
}

// WarehouseProducts is the number of distinct products sold at a warehouse.
type WarehouseProducts struct {
	WarehouseID     uuid.UUID
	MarketplaceType model.MarketplaceType
	Products        int
}

// FactReader is the read side consumed by the recompute services.
type FactReader interface {
	CountSales(ctx context.Context, q FactQuery) (int, error)
	CountOrders(ctx context.Context, q FactQuery) (int, error)
	// LatestStock sums the last known quantity of every matching stock
	// warehouse. A warehouse without a row on AsOf contributes its most
	// recent earlier row, never zero.
	LatestStock(ctx context.Context, q StockQuery) (int, error)

	// ProductsWithFacts lists every product with any sale, order or stock fact.
	ProductsWithFacts(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error)
	// SalesByWarehouse groups window sales by (product, warehouse, marketplace).
	SalesByWarehouse(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]WarehouseSales, error)
	// ProductsSoldByWarehouse counts distinct products ever sold per warehouse.
	ProductsSoldByWarehouse(ctx context.Context, companyID uuid.UUID) ([]WarehouseProducts, error)
}

// FactBatch is one marketplace's facts for a company over a date window.
type FactBatch struct {
	CompanyID   uuid.UUID
	Marketplace model.MarketplaceType
	From        time.Time
	To          time.Time
	Sales       []model.ProductSale
	Orders      []model.ProductOrder
	Stocks      []model.ProductStock
}

// FactRepository adds the ingestion write side to FactReader.
type FactRepository interface {
	FactReader

	// ReplaceWindowTx deletes the company's facts of that marketplace inside
	// the window and inserts the batch, so a re-run of the same window is a no-op.
	ReplaceWindowTx(tx *gorm.DB, b FactBatch) error
	// RepointTx moves every fact of the given products onto the canonical one.
	RepointTx(tx *gorm.DB, from []uuid.UUID, to uuid.UUID) error

	DB() *gorm.DB
}

const factInsertBatch = 500

type factRepo struct{ db *gorm.DB }

func NewFactRepository(db *gorm.DB) FactRepository { return &factRepo{db: db} }

func (r *factRepo) DB() *gorm.DB { return r.db }

func (r *factRepo) CountSales(ctx context.Context, q FactQuery) (int, error) {
	return r.count(ctx, &model.ProductSale{}, q)
}

func (r *factRepo) CountOrders(ctx context.Context, q FactQuery) (int, error) {
	return r.count(ctx, &model.ProductOrder{}, q)
}

func (r *factRepo) count(ctx context.Context, table interface{}, q FactQuery) (int, error) {
	tx := r.db.WithContext(ctx).Model(table).
		Where("company_id = ? AND product_id = ?", q.CompanyID, q.ProductID).
		Where("date >= ? AND date <= ?", dateOnly(q.From), dateOnly(q.To))
	if q.WarehouseID != nil {
		tx = tx.Where("warehouse_id = ?", *q.WarehouseID)
	}
	if q.Marketplace != nil {
		tx = tx.Where("marketplace_type = ?", *q.Marketplace)
	}
	var n int64
	err := tx.Count(&n).Error
	return int(n), err
}

func (r *factRepo) LatestStock(ctx context.Context, q StockQuery) (int, error) {
	inner := r.db.WithContext(ctx).
		Table("product_stocks AS ps").
		Select("DISTINCT ON (ps.warehouse_id) ps.quantity").
		Joins("JOIN stock_warehouses sw ON sw.id = ps.warehouse_id").
		Where("ps.company_id = ? AND ps.product_id = ? AND ps.date <= ?", q.CompanyID, q.ProductID, dateOnly(q.AsOf)).
		Order("ps.warehouse_id, ps.date DESC, ps.created_at DESC")
	if q.Marketplace != nil {
		inner = inner.Where("ps.marketplace_type = ?", *q.Marketplace)
	}
	if q.WarehouseName != nil {
		inner = inner.Where("sw.name = ?", *q.WarehouseName)
	}

	var total int64
	err := r.db.WithContext(ctx).
		Table("(?) AS latest", inner).
		Select("COALESCE(SUM(latest.quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

func (r *factRepo) ProductsWithFacts(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT product_id FROM product_sales  WHERE company_id = @c
		UNION
		SELECT product_id FROM product_orders WHERE company_id = @c
		UNION
		SELECT product_id FROM product_stocks WHERE company_id = @c
		ORDER BY product_id`, map[string]interface{}{"c": companyID}).
		Scan(&ids).Error
	return ids, err
}

func (r *factRepo) SalesByWarehouse(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]WarehouseSales, error) {
	var rows []WarehouseSales
	err := r.db.WithContext(ctx).
		Table("product_sales AS s").
		Select("s.product_id, s.warehouse_id, w.name AS warehouse_name, s.marketplace_type, COUNT(*) AS count").
		Joins("JOIN warehouses w ON w.id = s.warehouse_id").
		Where("s.company_id = ? AND s.date >= ? AND s.date <= ?", companyID, dateOnly(from), dateOnly(to)).
		Group("s.product_id, s.warehouse_id, w.name, s.marketplace_type").
		Order("s.product_id, s.marketplace_type, w.name").
		Scan(&rows).Error
	return rows, err
}

func (r *factRepo) ProductsSoldByWarehouse(ctx context.Context, companyID uuid.UUID) ([]WarehouseProducts, error) {
	var rows []WarehouseProducts
	err := r.db.WithContext(ctx).
		Model(&model.ProductSale{}).
		Select("warehouse_id, marketplace_type, COUNT(DISTINCT product_id) AS products").
		Where("company_id = ?", companyID).
		Group("warehouse_id, marketplace_type").
		Scan(&rows).Error
	return rows, err
}

func (r *factRepo) ReplaceWindowTx(tx *gorm.DB, b FactBatch) error {
	from, to := dateOnly(b.From), dateOnly(b.To)
	for _, table := range []interface{}{&model.ProductSale{}, &model.ProductOrder{}, &model.ProductStock{}} {
		err := tx.Where("company_id = ? AND marketplace_type = ? AND date >= ? AND date <= ?",
			b.CompanyID, b.Marketplace, from, to).Delete(table).Error
		if err != nil {
			return err
		}
	}
	if len(b.Sales) > 0 {
		if err := tx.CreateInBatches(b.Sales, factInsertBatch).Error; err != nil {
			return err
		}
	}
	if len(b.Orders) > 0 {
		if err := tx.CreateInBatches(b.Orders, factInsertBatch).Error; err != nil {
			return err
		}
	}
	if len(b.Stocks) > 0 {
		if err := tx.CreateInBatches(b.Stocks, factInsertBatch).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *factRepo) RepointTx(tx *gorm.DB, from []uuid.UUID, to uuid.UUID) error {
	if len(from) == 0 {
		return nil
	}
	for _, table := range []interface{}{&model.ProductSale{}, &model.ProductOrder{}, &model.ProductStock{}} {
		if err := tx.Model(table).Where("product_id IN ?", from).Update("product_id", to).Error; err != nil {
			return err
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
