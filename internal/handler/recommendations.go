package handler

import (
	"net/http"

	"marketstock/internal/dto"
	"marketstock/internal/service"

	"github.com/gin-gonic/gin"
)

// RecommendationsHandler lists the recompute outputs and takes the manual
// priority edits.
type RecommendationsHandler struct {
	recs     service.RecommendationService
	supplier service.SupplierService
	priority service.PriorityService
}

func NewRecommendationsHandler(recs service.RecommendationService, supplier service.SupplierService, priority service.PriorityService) *RecommendationsHandler {
	return &RecommendationsHandler{recs: recs, supplier: supplier, priority: priority}
}

func (h *RecommendationsHandler) ListRecommendations(c *gin.Context) { list(c, h.recs.List) }
func (h *RecommendationsHandler) ListSupplier(c *gin.Context)        { list(c, h.supplier.List) }
func (h *RecommendationsHandler) ListPriority(c *gin.Context)        { list(c, h.priority.List) }

// UpdatePriority PATCH /v1/priority/:id
func (h *RecommendationsHandler) UpdatePriority(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePriorityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.priority.UpdateManual(c.Request.Context(), companyID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
