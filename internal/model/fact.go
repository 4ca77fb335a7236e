package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductSale is one sold unit. Aggregation counts rows; there is no quantity column.
type ProductSale struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_sales_company_product_date"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_sales_company_product_date"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_sales_company_product_date"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time
}

func (ProductSale) TableName() string { return "product_sales" }

// ProductOrder is one ordered unit, same granularity as ProductSale.
type ProductOrder struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_orders_company_product_date"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_orders_company_product_date"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_orders_company_product_date"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time
}

func (ProductOrder) TableName() string { return "product_orders" }

// ProductStock is a point-in-time snapshot of quantity at a marketplace
// warehouse. The latest row at or before a date is the current quantity.
type ProductStock struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stocks_company_product_date"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_stocks_company_product_date"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_stocks_company_product_date"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;index"` // stock_warehouses.id
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null"`
	Quantity        int             `gorm:"not null;default:0"`
	CreatedAt       time.Time
}

func (ProductStock) TableName() string { return "product_stocks" }
