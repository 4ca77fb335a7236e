package handler

import (
	"context"
	"net/http"

	"marketstock/internal/dto"
	"marketstock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FlowHandler exposes the warehouse-flow transitions and their listings.
type FlowHandler struct{ svc service.FlowService }

func NewFlowHandler(svc service.FlowService) *FlowHandler {
	return &FlowHandler{svc: svc}
}

// ── Transitions ──

// Commit POST /v1/production
func (h *FlowHandler) Commit(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	var req dto.CommitToProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CommitToProduction(c.Request.Context(), companyID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RecordProduction POST /v1/production/:id/produced
func (h *FlowHandler) RecordProduction(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordProduction(c.Request.Context(), companyID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdjustProduction PATCH /v1/production/:id
func (h *FlowHandler) AdjustProduction(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustProduction(c.Request.Context(), companyID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Allocate POST /v1/shelves
func (h *FlowHandler) Allocate(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	var req dto.AllocateToShelfRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AllocateToShelf(c.Request.Context(), companyID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CorrectShelf PATCH /v1/shelves/:id
func (h *FlowHandler) CorrectShelf(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CorrectShelfRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CorrectShelf(c.Request.Context(), companyID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateShipments POST /v1/shipments
func (h *FlowHandler) CreateShipments(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	var req dto.CreateShipmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateShipments(c.Request.Context(), companyID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// Fulfill POST /v1/shipments/:id/fulfill
func (h *FlowHandler) Fulfill(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.FulfillShipmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.FulfillShipment(c.Request.Context(), companyID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Listings ──

func (h *FlowHandler) ListProduction(c *gin.Context) { list(c, h.svc.ListProduction) }
func (h *FlowHandler) ListSorting(c *gin.Context)    { list(c, h.svc.ListSorting) }
func (h *FlowHandler) ListShelves(c *gin.Context)    { list(c, h.svc.ListShelves) }
func (h *FlowHandler) ListShipments(c *gin.Context)  { list(c, h.svc.ListShipments) }
func (h *FlowHandler) ListShipped(c *gin.Context)    { list(c, h.svc.ListShipmentHistory) }

// list serves any company-scoped paginated listing.
func list[T any](c *gin.Context, fetch func(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[T], error)) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	page, err := fetch(c.Request.Context(), companyID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
