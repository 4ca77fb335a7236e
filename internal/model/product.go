package model

import (
	"time"

	"github.com/google/uuid"
)

// MarketplaceType identifies the marketplace a listing or fact comes from.
type MarketplaceType string

const (
	MarketplaceWildberries  MarketplaceType = "wildberries"
	MarketplaceOzon         MarketplaceType = "ozon"
	MarketplaceYandexMarket MarketplaceType = "yandexmarket"
)

// Marketplaces lists every supported marketplace in ingestion order.
var Marketplaces = []MarketplaceType{MarketplaceWildberries, MarketplaceOzon, MarketplaceYandexMarket}

// Valid reports whether m is one of the supported marketplaces.
func (m MarketplaceType) Valid() bool {
	switch m {
	case MarketplaceWildberries, MarketplaceOzon, MarketplaceYandexMarket:
		return true
	}
	return false
}

// Product is one marketplace listing. Listings that share a barcode are the
// same physical item; facts are attributed to the canonical listing.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VendorCode      string          `gorm:"not null;index"`
	Barcode         string          `gorm:"not null;uniqueIndex:idx_products_barcode_marketplace"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_products_barcode_marketplace"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Product) TableName() string { return "products" }

// Warehouse is a marketplace fulfilment location at region granularity.
type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null;uniqueIndex:idx_warehouses_location"`
	Country   string    `gorm:"not null;default:'';uniqueIndex:idx_warehouses_location"`
	Oblast    string    `gorm:"not null;default:'';uniqueIndex:idx_warehouses_location"`
	Region    string    `gorm:"not null;default:'';uniqueIndex:idx_warehouses_location"`
	CreatedAt time.Time
}

func (Warehouse) TableName() string { return "warehouses" }

// WarehouseForStock is the coarser identity used by stock snapshots only.
// It is matched to a Warehouse by name, never merged with it.
type WarehouseForStock struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string          `gorm:"not null;uniqueIndex:idx_stock_warehouses_name_marketplace"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_stock_warehouses_name_marketplace"`
	CreatedAt       time.Time
}

func (WarehouseForStock) TableName() string { return "stock_warehouses" }
