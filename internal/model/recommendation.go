package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recommendation is the quantity still to request or produce for a product.
// The row is deleted when Quantity reaches zero.
type Recommendation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recommendations_company_product"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recommendations_company_product"`
	Quantity  int       `gorm:"not null"`
	DaysLeft  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (Recommendation) TableName() string { return "recommendations" }

// SupplierRecommendation is the shortfall to ship to one marketplace warehouse.
type SupplierRecommendation struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_recs_key"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_recs_key"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_recs_key"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_supplier_recs_key"`
	Quantity        int             `gorm:"not null;default:0"`
	DaysLeft        int             `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Product   *Product   `gorm:"foreignKey:ProductID"`
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
}

func (SupplierRecommendation) TableName() string { return "supplier_recommendations" }

// PriorityShipment ranks a warehouse by shipment share over sales share.
// TravelDays and ArriveDays are operator-edited and survive recomputes.
type PriorityShipment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_priority_key"`
	WarehouseID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_priority_key"`
	MarketplaceType  MarketplaceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_priority_key"`
	Sales            int             `gorm:"not null;default:0"`
	Shipments        int             `gorm:"not null;default:0"`
	SalesShare       decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	ShipmentsShare   decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	ShippingPriority decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	TravelDays       int             `gorm:"not null;default:0"`
	ArriveDays       int             `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
}

func (PriorityShipment) TableName() string { return "priority_shipments" }
