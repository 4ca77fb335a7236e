package model

import (
	"time"

	"github.com/google/uuid"
)

// InProduction is one production commitment taken from a Recommendation.
// It is retired once Produced >= Manufacture, or when Manufacture is zero.
type InProduction struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	RecommendationID *uuid.UUID `gorm:"type:uuid;index"`
	Manufacture      int        `gorm:"not null"`
	Produced         int        `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (InProduction) TableName() string { return "in_production" }

// SortingWarehouse is the produced-but-unshelved buffer of a product.
type SortingWarehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sorting_company_product"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sorting_company_product"`
	Unsorted  int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (SortingWarehouse) TableName() string { return "sorting_warehouse" }

// Shelf is finished-goods stock at a named location.
type Shelf struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shelves_key"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shelves_key"`
	ShelfName string    `gorm:"not null;uniqueIndex:idx_shelves_key"`
	Stock     int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (Shelf) TableName() string { return "shelves" }

// WarehouseHistory mirrors a shelf's stock level, updated in place and
// stamped on every change. It is kept at zero when the shelf is removed.
type WarehouseHistory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_history_key"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_history_key"`
	ShelfName string    `gorm:"not null;uniqueIndex:idx_warehouse_history_key"`
	Stock     int       `gorm:"not null;default:0"`
	Date      time.Time `gorm:"not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (WarehouseHistory) TableName() string { return "warehouse_history" }

// Shipment is quantity committed to a marketplace warehouse, awaiting dispatch.
type Shipment struct {
	ID                       uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_shipments_key"`
	ProductID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_shipments_key"`
	SupplierRecommendationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_shipments_key"`
	WarehouseID              uuid.UUID       `gorm:"type:uuid;not null"`
	MarketplaceType          MarketplaceType `gorm:"type:varchar(20);not null"`
	Quantity                 int             `gorm:"not null"`
	CreatedAt                time.Time
	UpdatedAt                time.Time

	Product   *Product   `gorm:"foreignKey:ProductID"`
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
}

func (Shipment) TableName() string { return "shipments" }

// ShipmentHistory is an append-only record of quantity shipped from shelves.
type ShipmentHistory struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ShipmentID      uuid.UUID       `gorm:"type:uuid;not null"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null"`
	Quantity        int             `gorm:"not null"`
	Date            time.Time       `gorm:"type:date;not null"`
	CreatedAt       time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (ShipmentHistory) TableName() string { return "shipment_history" }
