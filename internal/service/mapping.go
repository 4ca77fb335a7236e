package service

import (
	"marketstock/internal/dto"
	"marketstock/internal/model"
)

const dateLayout = "2006-01-02"

func productRef(p *model.Product) *dto.ProductRef {
	if p == nil {
		return nil
	}
	return &dto.ProductRef{
		ID:          p.ID.String(),
		VendorCode:  p.VendorCode,
		Barcode:     p.Barcode,
		Marketplace: string(p.MarketplaceType),
	}
}

func warehouseRef(w *model.Warehouse) *dto.WarehouseRef {
	if w == nil {
		return nil
	}
	return &dto.WarehouseRef{
		ID:      w.ID.String(),
		Name:    w.Name,
		Country: w.Country,
		Oblast:  w.Oblast,
		Region:  w.Region,
	}
}

func recommendationToResponse(r *model.Recommendation) dto.RecommendationResponse {
	return dto.RecommendationResponse{
		ID:       r.ID.String(),
		Product:  productRef(r.Product),
		Quantity: r.Quantity,
		DaysLeft: r.DaysLeft,
	}
}

func productionToResponse(p *model.InProduction, retired bool) dto.InProductionResponse {
	resp := dto.InProductionResponse{
		ID:          p.ID.String(),
		Product:     productRef(p.Product),
		Manufacture: p.Manufacture,
		Produced:    p.Produced,
		Retired:     retired,
	}
	if p.RecommendationID != nil {
		id := p.RecommendationID.String()
		resp.RecommendationID = &id
	}
	return resp
}

func sortingToResponse(s *model.SortingWarehouse) dto.SortingResponse {
	return dto.SortingResponse{
		ID:       s.ID.String(),
		Product:  productRef(s.Product),
		Unsorted: s.Unsorted,
	}
}

func shelfToResponse(s *model.Shelf, retired bool) dto.ShelfResponse {
	return dto.ShelfResponse{
		ID:        s.ID.String(),
		Product:   productRef(s.Product),
		ShelfName: s.ShelfName,
		Stock:     s.Stock,
		Retired:   retired,
	}
}

func supplierToResponse(s *model.SupplierRecommendation) dto.SupplierRecommendationResponse {
	return dto.SupplierRecommendationResponse{
		ID:          s.ID.String(),
		Product:     productRef(s.Product),
		Warehouse:   warehouseRef(s.Warehouse),
		Marketplace: string(s.MarketplaceType),
		Quantity:    s.Quantity,
		DaysLeft:    s.DaysLeft,
	}
}

func shipmentToResponse(s *model.Shipment) dto.ShipmentResponse {
	return dto.ShipmentResponse{
		ID:                       s.ID.String(),
		Product:                  productRef(s.Product),
		Warehouse:                warehouseRef(s.Warehouse),
		SupplierRecommendationID: s.SupplierRecommendationID.String(),
		Marketplace:              string(s.MarketplaceType),
		Quantity:                 s.Quantity,
	}
}

func shipmentHistoryToResponse(h *model.ShipmentHistory, retired bool) dto.ShipmentHistoryResponse {
	return dto.ShipmentHistoryResponse{
		ID:              h.ID.String(),
		Product:         productRef(h.Product),
		ShipmentID:      h.ShipmentID.String(),
		WarehouseID:     h.WarehouseID.String(),
		Marketplace:     string(h.MarketplaceType),
		Quantity:        h.Quantity,
		Date:            h.Date.Format(dateLayout),
		ShipmentRetired: retired,
	}
}

func priorityToResponse(p *model.PriorityShipment) dto.PriorityResponse {
	return dto.PriorityResponse{
		ID:               p.ID.String(),
		Warehouse:        warehouseRef(p.Warehouse),
		Marketplace:      string(p.MarketplaceType),
		Sales:            p.Sales,
		Shipments:        p.Shipments,
		SalesShare:       p.SalesShare,
		ShipmentsShare:   p.ShipmentsShare,
		ShippingPriority: p.ShippingPriority,
		TravelDays:       p.TravelDays,
		ArriveDays:       p.ArriveDays,
	}
}

func historyToResponse(h *model.WarehouseHistory) dto.WarehouseHistoryResponse {
	return dto.WarehouseHistoryResponse{
		ID:        h.ID.String(),
		Product:   productRef(h.Product),
		ShelfName: h.ShelfName,
		Stock:     h.Stock,
		Date:      h.Date.Format(dateLayout),
	}
}

func settingsToResponse(s *model.CompanySettings) *dto.SettingsResponse {
	if s == nil {
		return nil
	}
	return &dto.SettingsResponse{
		CompanyID:    s.CompanyID.String(),
		LastSaleDays: s.LastSaleDays,
		NextSaleDays: s.NextSaleDays,
	}
}

func companyToResponse(c *model.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Settings:  settingsToResponse(c.Settings),
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
