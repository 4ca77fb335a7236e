package infra

import (
	"fmt"
	"time"

	"marketstock/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection, runs AutoMigrate for every
// entity, then applies the idempotent SQL patches that GORM tags cannot
// express (CHECK constraints, composite fact indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Company{},
		&model.CompanySettings{},
		&model.Product{},
		&model.Warehouse{},
		&model.WarehouseForStock{},
		&model.ProductSale{},
		&model.ProductOrder{},
		&model.ProductStock{},
		&model.Recommendation{},
		&model.SupplierRecommendation{},
		&model.PriorityShipment{},
		&model.InProduction{},
		&model.SortingWarehouse{},
		&model.Shelf{},
		&model.WarehouseHistory{},
		&model.Shipment{},
		&model.ShipmentHistory{},
	}
}

// RunMigrations creates or updates every table and applies the schema
// patches. Safe to run on every start and from integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	log.Info().Int("tables", len(Models())).Msg("database: schema up to date")
	return nil
}

// applySchemaPatches runs idempotent DDL. Each statement is guarded so
// re-running on an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Quantity-bearing rows are deleted at zero; a zero row is a bug.
		{"recommendations quantity > 0", checkConstraint("recommendations", "chk_recommendations_quantity", "quantity > 0")},
		{"in_production manufacture > 0", checkConstraint("in_production", "chk_in_production_manufacture", "manufacture > 0 AND produced >= 0")},
		{"sorting_warehouse unsorted > 0", checkConstraint("sorting_warehouse", "chk_sorting_unsorted", "unsorted > 0")},
		{"shelves stock > 0", checkConstraint("shelves", "chk_shelves_stock", "stock > 0")},
		{"shipments quantity > 0", checkConstraint("shipments", "chk_shipments_quantity", "quantity > 0")},
		{"warehouse_history stock >= 0", checkConstraint("warehouse_history", "chk_warehouse_history_stock", "stock >= 0")},
		{"product_stocks quantity >= 0", checkConstraint("product_stocks", "chk_product_stocks_quantity", "quantity >= 0")},

		// Window counts and latest-stock lookups.
		{"idx_product_sales_window",
			`CREATE INDEX IF NOT EXISTS idx_product_sales_window ON product_sales (company_id, product_id, date)`},
		{"idx_product_orders_window",
			`CREATE INDEX IF NOT EXISTS idx_product_orders_window ON product_orders (company_id, product_id, date)`},
		{"idx_product_stocks_latest",
			`CREATE INDEX IF NOT EXISTS idx_product_stocks_latest ON product_stocks (company_id, product_id, warehouse_id, marketplace_type, date DESC)`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

func checkConstraint(table, name, expr string) string {
	return fmt.Sprintf(`
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint
                 WHERE conrelid = to_regclass('%[1]s') AND conname = '%[2]s') THEN
    ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
  END IF;
END $$`, table, name, expr)
}
