package handler

import (
	"net/http"

	"marketstock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves the finished-goods report and file exports.
type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

func (h *ReportsHandler) ListHistory(c *gin.Context) { list(c, h.svc.ListHistory) }

// Reconcile GET /v1/reports/reconciliation
func (h *ReportsHandler) Reconcile(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Reconcile(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportRecommendations GET /v1/exports/recommendations.xlsx
func (h *ReportsHandler) ExportRecommendations(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	f, filename, err := h.svc.ExportRecommendations(c.Request.Context(), companyID)
	writeXLSX(c, f, filename, err)
}

// ExportSupplier GET /v1/exports/supplier-recommendations.xlsx
func (h *ReportsHandler) ExportSupplier(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	f, filename, err := h.svc.ExportSupplierRecommendations(c.Request.Context(), companyID)
	writeXLSX(c, f, filename, err)
}

func writeXLSX(c *gin.Context, f *excelize.File, filename string, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// PickList GET /v1/shipments/:id/pick-list.pdf
func (h *ReportsHandler) PickList(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	body, filename, err := h.svc.PickList(c.Request.Context(), companyID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "application/pdf", body)
}
