package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CommitToProductionRequest struct {
	RecommendationID string `json:"recommendation_id" validate:"required,uuid"`
	Quantity         int    `json:"quantity"          validate:"required,min=1"`
}

type RecordProductionRequest struct {
	ProducedDelta int `json:"produced_delta" validate:"required,min=1"`
}

// AdjustProductionRequest overwrites the committed quantity. Zero retires the row.
type AdjustProductionRequest struct {
	Manufacture int `json:"manufacture" validate:"min=0"`
}

type AllocateToShelfRequest struct {
	SortingID string `json:"sorting_id" validate:"required,uuid"`
	ShelfName string `json:"shelf_name" validate:"required,min=1,max=64"`
	Quantity  int    `json:"quantity"   validate:"required,min=1"`
}

// CorrectShelfRequest sets a shelf's stock after a physical count. Zero removes the shelf.
type CorrectShelfRequest struct {
	Stock int `json:"stock" validate:"min=0"`
}

type CreateShipmentRequest struct {
	SupplierRecommendationIDs []string `json:"supplier_recommendation_ids" validate:"required,min=1,dive,uuid"`
}

// FulfillShipmentRequest consumes shelves in the given order. Quantity 0 ships
// the whole remaining shipment.
type FulfillShipmentRequest struct {
	ShelfIDs []string `json:"shelf_ids" validate:"required,min=1,dive,uuid"`
	Quantity int      `json:"quantity"  validate:"min=0"`
}

type UpdatePriorityRequest struct {
	TravelDays *int `json:"travel_days" validate:"omitempty,min=0,max=365"`
	ArriveDays *int `json:"arrive_days" validate:"omitempty,min=0,max=365"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ProductRef is the listing a row belongs to.
type ProductRef struct {
	ID          string `json:"id"`
	VendorCode  string `json:"vendor_code"`
	Barcode     string `json:"barcode"`
	Marketplace string `json:"marketplace_type"`
}

type WarehouseRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Oblast  string `json:"oblast"`
	Region  string `json:"region"`
}

type RecommendationResponse struct {
	ID       string      `json:"id"`
	Product  *ProductRef `json:"product"`
	Quantity int         `json:"quantity"`
	DaysLeft int         `json:"days_left"`
}

type InProductionResponse struct {
	ID               string      `json:"id"`
	Product          *ProductRef `json:"product"`
	RecommendationID *string     `json:"recommendation_id"`
	Manufacture      int         `json:"manufacture"`
	Produced         int         `json:"produced"`
	// Retired is true when the operation completed or removed the row.
	Retired bool `json:"retired"`
}

type SortingResponse struct {
	ID       string      `json:"id"`
	Product  *ProductRef `json:"product"`
	Unsorted int         `json:"unsorted"`
}

type ShelfResponse struct {
	ID        string      `json:"id"`
	Product   *ProductRef `json:"product"`
	ShelfName string      `json:"shelf_name"`
	Stock     int         `json:"stock"`
	Retired   bool        `json:"retired"`
}

type SupplierRecommendationResponse struct {
	ID          string        `json:"id"`
	Product     *ProductRef   `json:"product"`
	Warehouse   *WarehouseRef `json:"warehouse"`
	Marketplace string        `json:"marketplace_type"`
	Quantity    int           `json:"quantity"`
	DaysLeft    int           `json:"days_left"`
}

type ShipmentResponse struct {
	ID                       string        `json:"id"`
	Product                  *ProductRef   `json:"product"`
	Warehouse                *WarehouseRef `json:"warehouse"`
	SupplierRecommendationID string        `json:"supplier_recommendation_id"`
	Marketplace              string        `json:"marketplace_type"`
	Quantity                 int           `json:"quantity"`
}

type ShipmentHistoryResponse struct {
	ID          string      `json:"id"`
	Product     *ProductRef `json:"product"`
	ShipmentID  string      `json:"shipment_id"`
	WarehouseID string      `json:"warehouse_id"`
	Marketplace string      `json:"marketplace_type"`
	Quantity    int         `json:"quantity"`
	Date        string      `json:"date"`
	// ShipmentRetired is true when the shipment was fully consumed.
	ShipmentRetired bool `json:"shipment_retired"`
}

type PriorityResponse struct {
	ID               string          `json:"id"`
	Warehouse        *WarehouseRef   `json:"warehouse"`
	Marketplace      string          `json:"marketplace_type"`
	Sales            int             `json:"sales"`
	Shipments        int             `json:"shipments"`
	SalesShare       decimal.Decimal `json:"sales_share"`
	ShipmentsShare   decimal.Decimal `json:"shipments_share"`
	ShippingPriority decimal.Decimal `json:"shipping_priority"`
	TravelDays       int             `json:"travel_days"`
	ArriveDays       int             `json:"arrive_days"`
}
