package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketstock/internal/dto"
	"marketstock/internal/infra"
	"marketstock/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	recommendationExportHeaders = []string{"Vendor code", "Barcode", "Marketplace", "Quantity", "Days left"}
	supplierExportHeaders       = []string{"Vendor code", "Barcode", "Marketplace", "Warehouse", "Region", "Quantity", "Days left"}
)

// ReportService serves the finished-goods report and the file exports.
type ReportService interface {
	ListHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.WarehouseHistoryResponse], error)
	// Reconcile compares each product's shelf stock with its history total.
	// The two match whenever every shelf change went through the flow.
	Reconcile(ctx context.Context, companyID uuid.UUID) (*dto.ReconciliationResponse, error)

	ExportRecommendations(ctx context.Context, companyID uuid.UUID) (*excelize.File, string, error)
	ExportSupplierRecommendations(ctx context.Context, companyID uuid.UUID) (*excelize.File, string, error)
	PickList(ctx context.Context, companyID, shipmentID uuid.UUID) ([]byte, string, error)
}

type reportService struct {
	flow     repository.FlowRepository
	recs     repository.RecommendationRepository
	supplier repository.SupplierRepository
	now      func() time.Time
}

func NewReportService(
	flow repository.FlowRepository,
	recs repository.RecommendationRepository,
	supplier repository.SupplierRepository,
	now func() time.Time,
) ReportService {
	if now == nil {
		now = time.Now
	}
	return &reportService{flow: flow, recs: recs, supplier: supplier, now: now}
}

func (s *reportService) ListHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.WarehouseHistoryResponse], error) {
	f.Normalize()
	rows, total, err := s.flow.ListHistory(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.WarehouseHistoryResponse]{}, err
	}
	out := make([]dto.WarehouseHistoryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, historyToResponse(&rows[i]))
	}
	return dto.NewPage(out, total, f), nil
}

func (s *reportService) Reconcile(ctx context.Context, companyID uuid.UUID) (*dto.ReconciliationResponse, error) {
	shelves, err := s.flow.ShelfTotals(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("shelf totals: %w", err)
	}
	history, err := s.flow.HistoryTotals(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("history totals: %w", err)
	}

	type pair struct{ shelf, history int }
	byProduct := make(map[uuid.UUID]*pair)
	get := func(id uuid.UUID) *pair {
		p, ok := byProduct[id]
		if !ok {
			p = &pair{}
			byProduct[id] = p
		}
		return p
	}
	for _, t := range shelves {
		get(t.ProductID).shelf += t.Total
	}
	for _, t := range history {
		get(t.ProductID).history += t.Total
	}

	resp := &dto.ReconciliationResponse{Rows: make([]dto.ReconciliationRow, 0, len(byProduct)), Balanced: true}
	for id, p := range byProduct {
		row := dto.ReconciliationRow{
			ProductID:    id.String(),
			ShelfStock:   p.shelf,
			HistoryStock: p.history,
			Balanced:     p.shelf == p.history,
		}
		if !row.Balanced {
			resp.Balanced = false
		}
		resp.Rows = append(resp.Rows, row)
	}
	sort.Slice(resp.Rows, func(i, j int) bool { return resp.Rows[i].ProductID < resp.Rows[j].ProductID })
	return resp, nil
}

// ── Exports ─────────────────────────────────────────────────────────────────

func (s *reportService) ExportRecommendations(ctx context.Context, companyID uuid.UUID) (*excelize.File, string, error) {
	rows, err := s.recs.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, "", fmt.Errorf("list recommendations: %w", err)
	}

	f, sheet, err := newExportFile("Recommendations", recommendationExportHeaders)
	if err != nil {
		return nil, "", err
	}
	for i, r := range rows {
		line := i + 2
		if r.Product != nil {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", line), r.Product.VendorCode)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", line), r.Product.Barcode)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", line), string(r.Product.MarketplaceType))
		}
		f.SetCellValue(sheet, fmt.Sprintf("D%d", line), r.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", line), r.DaysLeft)
	}
	setColWidths(f, sheet, []float64{20, 18, 14, 10, 10})

	return f, fmt.Sprintf("recommendations_%s.xlsx", s.now().Format(dateLayout)), nil
}

func (s *reportService) ExportSupplierRecommendations(ctx context.Context, companyID uuid.UUID) (*excelize.File, string, error) {
	rows, err := s.supplier.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, "", fmt.Errorf("list supplier recommendations: %w", err)
	}

	f, sheet, err := newExportFile("Supplier shipments", supplierExportHeaders)
	if err != nil {
		return nil, "", err
	}
	for i, r := range rows {
		line := i + 2
		if r.Product != nil {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", line), r.Product.VendorCode)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", line), r.Product.Barcode)
		}
		f.SetCellValue(sheet, fmt.Sprintf("C%d", line), string(r.MarketplaceType))
		if r.Warehouse != nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", line), r.Warehouse.Name)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", line), r.Warehouse.Region)
		}
		f.SetCellValue(sheet, fmt.Sprintf("F%d", line), r.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", line), r.DaysLeft)
	}
	setColWidths(f, sheet, []float64{20, 18, 14, 24, 20, 10, 10})

	return f, fmt.Sprintf("supplier_shipments_%s.xlsx", s.now().Format(dateLayout)), nil
}

func newExportFile(sheet string, headers []string) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("export: %w", err)
	}
	bold, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, bold)
	}
	return f, sheet, nil
}

func setColWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

// PickList renders the shelves an operator picks a shipment from.
func (s *reportService) PickList(ctx context.Context, companyID, shipmentID uuid.UUID) ([]byte, string, error) {
	shipment, err := s.flow.FindShipment(ctx, companyID, shipmentID)
	if err != nil {
		return nil, "", lookup(err, "shipment", shipmentID)
	}
	shelves, err := s.flow.ShelvesByProduct(ctx, companyID, shipment.ProductID)
	if err != nil {
		return nil, "", fmt.Errorf("shelves: %w", err)
	}

	pl := infra.PickList{
		ShipmentID:  shipment.ID.String(),
		Marketplace: string(shipment.MarketplaceType),
		Quantity:    shipment.Quantity,
		PrintedAt:   s.now(),
	}
	if shipment.Product != nil {
		pl.VendorCode = shipment.Product.VendorCode
		pl.Barcode = shipment.Product.Barcode
	}
	if shipment.Warehouse != nil {
		pl.Warehouse = shipment.Warehouse.Name
	}
	for _, sh := range shelves {
		pl.Shelves = append(pl.Shelves, infra.PickListShelf{Name: sh.ShelfName, Stock: sh.Stock})
	}

	body, err := infra.RenderPickList(pl)
	if err != nil {
		return nil, "", err
	}
	return body, fmt.Sprintf("pick_list_%s.pdf", shipment.ID), nil
}
