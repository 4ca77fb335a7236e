package handler

import (
	"net/http"

	"marketstock/internal/dto"
	"marketstock/internal/service"

	"github.com/gin-gonic/gin"
)

type CompaniesHandler struct{ svc service.CompanyService }

func NewCompaniesHandler(svc service.CompanyService) *CompaniesHandler {
	return &CompaniesHandler{svc: svc}
}

// Create POST /v1/companies (admin)
func (h *CompaniesHandler) Create(c *gin.Context) {
	var req dto.CreateCompanyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Current GET /v1/company
func (h *CompaniesHandler) Current(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSettings GET /v1/company/settings
func (h *CompaniesHandler) GetSettings(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetSettings(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateSettings PUT /v1/company/settings
func (h *CompaniesHandler) UpdateSettings(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateSettings(c.Request.Context(), companyID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
