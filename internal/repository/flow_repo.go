package repository

import (
	"context"
	"time"

	"marketstock/internal/dto"
	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlowStock is what a company holds of one product outside the marketplaces.
type FlowStock struct {
	Shelf        int
	Sorting      int
	InProduction int
}

// ProductTotal is a summed stock figure per product.
type ProductTotal struct {
	ProductID uuid.UUID
	Total     int
}

// FlowRepository covers the warehouse-flow tables: production, sorting,
// shelves, their history, shipments and shipment history.
type FlowRepository interface {
	// OnHand sums shelf stock, unsorted units and committed production.
	OnHand(ctx context.Context, companyID, productID uuid.UUID) (FlowStock, error)
	// ShelfTotal sums every shelf of the product.
	ShelfTotal(ctx context.Context, companyID, productID uuid.UUID) (int, error)
	SortingTotal(ctx context.Context, companyID, productID uuid.UUID) (int, error)

	// ── Production ──
	ListProduction(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.InProduction, int64, error)
	FindProductionForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.InProduction, error)
	SaveProductionTx(tx *gorm.DB, p *model.InProduction) error
	DeleteProductionTx(tx *gorm.DB, id uuid.UUID) error

	// ── Sorting ──
	ListSorting(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.SortingWarehouse, int64, error)
	FindSortingForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.SortingWarehouse, error)
	// AddUnsortedTx credits qty to the product's sorting buffer, creating it
	// when absent. Concurrent first credits do not collide.
	AddUnsortedTx(tx *gorm.DB, companyID, productID uuid.UUID, qty int) error
	SaveSortingTx(tx *gorm.DB, s *model.SortingWarehouse) error
	DeleteSortingTx(tx *gorm.DB, id uuid.UUID) error

	// ── Shelves ──
	ListShelves(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.Shelf, int64, error)
	ShelvesByProduct(ctx context.Context, companyID, productID uuid.UUID) ([]model.Shelf, error)
	FindShelfForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.Shelf, error)
	// AddShelfStockTx credits qty to the named shelf, creating it when absent,
	// and returns the shelf as stored.
	AddShelfStockTx(tx *gorm.DB, companyID, productID uuid.UUID, name string, qty int) (*model.Shelf, error)
	SaveShelfTx(tx *gorm.DB, s *model.Shelf) error
	DeleteShelfTx(tx *gorm.DB, id uuid.UUID) error

	// ── Finished-goods history ──
	// UpsertHistoryTx sets the (company, product, shelf) row to stock, stamped at date.
	UpsertHistoryTx(tx *gorm.DB, companyID, productID uuid.UUID, shelfName string, stock int, date time.Time) error
	ListHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.WarehouseHistory, int64, error)
	HistoryTotals(ctx context.Context, companyID uuid.UUID) ([]ProductTotal, error)
	ShelfTotals(ctx context.Context, companyID uuid.UUID) ([]ProductTotal, error)

	// ── Shipments ──
	ListShipments(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.Shipment, int64, error)
	FindShipment(ctx context.Context, companyID, id uuid.UUID) (*model.Shipment, error)
	HasOpenShipment(ctx context.Context, companyID, productID uuid.UUID) (bool, error)
	FindShipmentForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.Shipment, error)
	SaveShipmentTx(tx *gorm.DB, s *model.Shipment) error
	DeleteShipmentTx(tx *gorm.DB, id uuid.UUID) error
	CreateShipmentHistoryTx(tx *gorm.DB, h *model.ShipmentHistory) error
	ListShipmentHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.ShipmentHistory, int64, error)

	// RepointTx moves everything the company side holds of the given products
	// onto the canonical one. Rows that would collide on a unique key are
	// merged by summing their quantities.
	RepointTx(tx *gorm.DB, from []uuid.UUID, to uuid.UUID) error

	DB() *gorm.DB
}

type flowRepo struct{ db *gorm.DB }

func NewFlowRepository(db *gorm.DB) FlowRepository { return &flowRepo{db: db} }

func (r *flowRepo) DB() *gorm.DB { return r.db }

func (r *flowRepo) OnHand(ctx context.Context, companyID, productID uuid.UUID) (FlowStock, error) {
	var s FlowStock
	err := r.db.WithContext(ctx).Raw(`
		SELECT
		  (SELECT COALESCE(SUM(stock), 0)       FROM shelves           WHERE company_id = @c AND product_id = @p) AS shelf,
		  (SELECT COALESCE(SUM(unsorted), 0)    FROM sorting_warehouse WHERE company_id = @c AND product_id = @p) AS sorting,
		  (SELECT COALESCE(SUM(manufacture), 0) FROM in_production     WHERE company_id = @c AND product_id = @p) AS in_production`,
		map[string]interface{}{"c": companyID, "p": productID}).
		Scan(&s).Error
	return s, err
}

func (r *flowRepo) ShelfTotal(ctx context.Context, companyID, productID uuid.UUID) (int, error) {
	return r.sum(ctx, &model.Shelf{}, "stock", companyID, productID)
}

func (r *flowRepo) SortingTotal(ctx context.Context, companyID, productID uuid.UUID) (int, error) {
	return r.sum(ctx, &model.SortingWarehouse{}, "unsorted", companyID, productID)
}

func (r *flowRepo) sum(ctx context.Context, table interface{}, column string, companyID, productID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(table).
		Select("COALESCE(SUM("+column+"), 0)").
		Where("company_id = ? AND product_id = ?", companyID, productID).
		Scan(&total).Error
	return int(total), err
}

// ── Production ──────────────────────────────────────────────────────────────

func (r *flowRepo) ListProduction(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.InProduction, int64, error) {
	var rows []model.InProduction
	q := r.db.WithContext(ctx).Model(&model.InProduction{}).Preload("Product").
		Where("in_production.company_id = ?", companyID)
	total, err := listPage(q, "in_production", "manufacture", f, &rows)
	return rows, total, err
}

func (r *flowRepo) FindProductionForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.InProduction, error) {
	var p model.InProduction
	if err := lockedFirst(tx, &p, "id = ? AND company_id = ?", id, companyID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *flowRepo) SaveProductionTx(tx *gorm.DB, p *model.InProduction) error {
	return tx.Omit(clause.Associations).Save(p).Error
}

func (r *flowRepo) DeleteProductionTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.InProduction{}, "id = ?", id).Error
}

// ── Sorting ─────────────────────────────────────────────────────────────────

func (r *flowRepo) ListSorting(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.SortingWarehouse, int64, error) {
	var rows []model.SortingWarehouse
	q := r.db.WithContext(ctx).Model(&model.SortingWarehouse{}).Preload("Product").
		Where("sorting_warehouse.company_id = ?", companyID)
	total, err := listPage(q, "sorting_warehouse", "unsorted", f, &rows)
	return rows, total, err
}

func (r *flowRepo) FindSortingForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.SortingWarehouse, error) {
	var s model.SortingWarehouse
	if err := lockedFirst(tx, &s, "id = ? AND company_id = ?", id, companyID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *flowRepo) AddUnsortedTx(tx *gorm.DB, companyID, productID uuid.UUID, qty int) error {
	s := model.SortingWarehouse{CompanyID: companyID, ProductID: productID, Unsorted: qty}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"unsorted":   gorm.Expr("sorting_warehouse.unsorted + EXCLUDED.unsorted"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&s).Error
}

func (r *flowRepo) SaveSortingTx(tx *gorm.DB, s *model.SortingWarehouse) error {
	return tx.Omit(clause.Associations).Save(s).Error
}

func (r *flowRepo) DeleteSortingTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.SortingWarehouse{}, "id = ?", id).Error
}

// ── Shelves ─────────────────────────────────────────────────────────────────

func (r *flowRepo) ListShelves(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.Shelf, int64, error) {
	var rows []model.Shelf
	q := r.db.WithContext(ctx).Model(&model.Shelf{}).Preload("Product").
		Where("shelves.company_id = ?", companyID)
	total, err := listPage(q, "shelves", "stock", f, &rows)
	return rows, total, err
}

func (r *flowRepo) ShelvesByProduct(ctx context.Context, companyID, productID uuid.UUID) ([]model.Shelf, error) {
	var rows []model.Shelf
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND product_id = ?", companyID, productID).
		Order("stock DESC, shelf_name ASC").Find(&rows).Error
	return rows, err
}

func (r *flowRepo) FindShelfForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.Shelf, error) {
	var s model.Shelf
	if err := lockedFirst(tx, &s, "id = ? AND company_id = ?", id, companyID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *flowRepo) AddShelfStockTx(tx *gorm.DB, companyID, productID uuid.UUID, name string, qty int) (*model.Shelf, error) {
	s := model.Shelf{CompanyID: companyID, ProductID: productID, ShelfName: name, Stock: qty}
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "product_id"}, {Name: "shelf_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"stock":      gorm.Expr("shelves.stock + EXCLUDED.stock"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}, clause.Returning{}).Create(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *flowRepo) SaveShelfTx(tx *gorm.DB, s *model.Shelf) error {
	return tx.Omit(clause.Associations).Save(s).Error
}

func (r *flowRepo) DeleteShelfTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Shelf{}, "id = ?", id).Error
}

// ── Finished-goods history ──────────────────────────────────────────────────

func (r *flowRepo) UpsertHistoryTx(tx *gorm.DB, companyID, productID uuid.UUID, shelfName string, stock int, date time.Time) error {
	h := model.WarehouseHistory{
		CompanyID: companyID,
		ProductID: productID,
		ShelfName: shelfName,
		Stock:     stock,
		Date:      date,
	}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "product_id"}, {Name: "shelf_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock", "date"}),
	}).Create(&h).Error
}

func (r *flowRepo) ListHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.WarehouseHistory, int64, error) {
	var rows []model.WarehouseHistory
	q := r.db.WithContext(ctx).Model(&model.WarehouseHistory{}).Preload("Product").
		Where("warehouse_history.company_id = ?", companyID)
	if f.Sort == "" {
		f.Sort = dto.SortVendorAsc
	}
	total, err := listPage(q, "warehouse_history", "stock", f, &rows)
	return rows, total, err
}

func (r *flowRepo) HistoryTotals(ctx context.Context, companyID uuid.UUID) ([]ProductTotal, error) {
	return r.totals(ctx, &model.WarehouseHistory{}, companyID)
}

func (r *flowRepo) ShelfTotals(ctx context.Context, companyID uuid.UUID) ([]ProductTotal, error) {
	return r.totals(ctx, &model.Shelf{}, companyID)
}

func (r *flowRepo) totals(ctx context.Context, table interface{}, companyID uuid.UUID) ([]ProductTotal, error) {
	var rows []ProductTotal
	err := r.db.WithContext(ctx).Model(table).
		Select("product_id, COALESCE(SUM(stock), 0) AS total").
		Where("company_id = ?", companyID).
		Group("product_id").Order("product_id").
		Scan(&rows).Error
	return rows, err
}

// ── Shipments ───────────────────────────────────────────────────────────────

func (r *flowRepo) ListShipments(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.Shipment, int64, error) {
	var rows []model.Shipment
	q := r.db.WithContext(ctx).Model(&model.Shipment{}).Preload("Product").Preload("Warehouse").
		Where("shipments.company_id = ?", companyID)
	total, err := listPage(q, "shipments", "quantity", f, &rows)
	return rows, total, err
}

func (r *flowRepo) FindShipment(ctx context.Context, companyID, id uuid.UUID) (*model.Shipment, error) {
	var s model.Shipment
	err := r.db.WithContext(ctx).Preload("Product").Preload("Warehouse").
		Where("id = ? AND company_id = ?", id, companyID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *flowRepo) HasOpenShipment(ctx context.Context, companyID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Shipment{}).
		Where("company_id = ? AND product_id = ?", companyID, productID).
		Limit(1).Count(&n).Error
	return n > 0, err
}

func (r *flowRepo) FindShipmentForUpdateTx(tx *gorm.DB, companyID, id uuid.UUID) (*model.Shipment, error) {
	var s model.Shipment
	if err := lockedFirst(tx, &s, "id = ? AND company_id = ?", id, companyID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *flowRepo) SaveShipmentTx(tx *gorm.DB, s *model.Shipment) error {
	return tx.Omit(clause.Associations).Save(s).Error
}

func (r *flowRepo) DeleteShipmentTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Shipment{}, "id = ?", id).Error
}

func (r *flowRepo) CreateShipmentHistoryTx(tx *gorm.DB, h *model.ShipmentHistory) error {
	return tx.Omit(clause.Associations).Create(h).Error
}

func (r *flowRepo) ListShipmentHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.ShipmentHistory, int64, error) {
	var rows []model.ShipmentHistory
	q := r.db.WithContext(ctx).Model(&model.ShipmentHistory{}).Preload("Product").
		Where("shipment_history.company_id = ?", companyID)
	total, err := listPage(q, "shipment_history", "quantity", f, &rows)
	return rows, total, err
}

// ── Canonical re-pointing ───────────────────────────────────────────────────

// repointMerges fold keyed rows of the sibling listings into the canonical
// product. Each runs before the sibling rows are deleted.
var repointMerges = []string{
	`INSERT INTO sorting_warehouse (company_id, product_id, unsorted, created_at, updated_at)
	 SELECT company_id, @to, SUM(unsorted), MIN(created_at), NOW()
	   FROM sorting_warehouse WHERE product_id IN @from GROUP BY company_id
	 ON CONFLICT (company_id, product_id)
	 DO UPDATE SET unsorted = sorting_warehouse.unsorted + EXCLUDED.unsorted, updated_at = NOW()`,

	`INSERT INTO shelves (company_id, product_id, shelf_name, stock, created_at, updated_at)
	 SELECT company_id, @to, shelf_name, SUM(stock), MIN(created_at), NOW()
	   FROM shelves WHERE product_id IN @from GROUP BY company_id, shelf_name
	 ON CONFLICT (company_id, product_id, shelf_name)
	 DO UPDATE SET stock = shelves.stock + EXCLUDED.stock, updated_at = NOW()`,

	`INSERT INTO warehouse_history (company_id, product_id, shelf_name, stock, date)
	 SELECT company_id, @to, shelf_name, SUM(stock), MAX(date)
	   FROM warehouse_history WHERE product_id IN @from GROUP BY company_id, shelf_name
	 ON CONFLICT (company_id, product_id, shelf_name)
	 DO UPDATE SET stock = warehouse_history.stock + EXCLUDED.stock,
	               date = GREATEST(warehouse_history.date, EXCLUDED.date)`,

	`INSERT INTO recommendations (company_id, product_id, quantity, days_left, created_at, updated_at)
	 SELECT company_id, @to, SUM(quantity), MIN(days_left), MIN(created_at), NOW()
	   FROM recommendations WHERE product_id IN @from GROUP BY company_id
	 ON CONFLICT (company_id, product_id)
	 DO UPDATE SET quantity = recommendations.quantity + EXCLUDED.quantity, updated_at = NOW()`,

	`INSERT INTO supplier_recommendations (company_id, warehouse_id, product_id, marketplace_type, quantity, days_left, created_at, updated_at)
	 SELECT company_id, warehouse_id, @to, marketplace_type, SUM(quantity), MIN(days_left), MIN(created_at), NOW()
	   FROM supplier_recommendations WHERE product_id IN @from
	  GROUP BY company_id, warehouse_id, marketplace_type
	 ON CONFLICT (company_id, warehouse_id, product_id, marketplace_type)
	 DO UPDATE SET quantity = supplier_recommendations.quantity + EXCLUDED.quantity, updated_at = NOW()`,

	// Production keeps pointing at a live recommendation.
	`UPDATE in_production p SET recommendation_id = t.id
	   FROM recommendations s JOIN recommendations t ON t.company_id = s.company_id AND t.product_id = @to
	  WHERE p.recommendation_id = s.id AND s.product_id IN @from`,
}

// repointMoves retarget rows that carry no product-level unique key.
// Shipments stay unique because their supplier recommendation ids differ.
var repointMoves = []string{
	`UPDATE in_production SET product_id = @to WHERE product_id IN @from`,
	`UPDATE shipments SET product_id = @to WHERE product_id IN @from`,
	`UPDATE shipment_history SET product_id = @to WHERE product_id IN @from`,
}

var repointDeletes = []string{
	`DELETE FROM sorting_warehouse WHERE product_id IN @from`,
	`DELETE FROM shelves WHERE product_id IN @from`,
	`DELETE FROM warehouse_history WHERE product_id IN @from`,
	`DELETE FROM recommendations WHERE product_id IN @from`,
	`DELETE FROM supplier_recommendations WHERE product_id IN @from`,
}

func (r *flowRepo) RepointTx(tx *gorm.DB, from []uuid.UUID, to uuid.UUID) error {
	if len(from) == 0 {
		return nil
	}
	args := map[string]interface{}{"from": from, "to": to}
	for _, group := range [][]string{repointMerges, repointMoves, repointDeletes} {
		for _, stmt := range group {
			if err := tx.Exec(stmt, args).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// lockedFirst loads the first matching row with SELECT ... FOR UPDATE.
func lockedFirst(tx *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, args...).First(dest).Error
}
