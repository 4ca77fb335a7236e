package infra

// pdf.go: shipment pick list rendered with go-pdf/fpdf.
// One A5 page per shipment:
//   - shipment header (product, destination warehouse, quantity)
//   - the shelves holding the product, with their current stock
//   - a picked/checked column for the operator

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// PickListShelf is one shelf the product can be picked from.
type PickListShelf struct {
	Name  string
	Stock int
}

// PickList is everything printed on a shipment pick list.
type PickList struct {
	ShipmentID  string
	VendorCode  string
	Barcode     string
	Marketplace string
	Warehouse   string
	Quantity    int
	Shelves     []PickListShelf
	PrintedAt   time.Time
}

// RenderPickList returns the PDF bytes of the pick list.
func RenderPickList(pl PickList) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(8, 8, 8)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 16

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Pick list", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Shipment "+pl.ShipmentID, "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Shipment info ────────────────────────────────────────────────────────
	labelW := contentW * 0.35
	info := [][2]string{
		{"Vendor code", pl.VendorCode},
		{"Barcode", pl.Barcode},
		{"Marketplace", pl.Marketplace},
		{"Destination", pl.Warehouse},
		{"Quantity", fmt.Sprintf("%d", pl.Quantity)},
	}
	for _, row := range info {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(labelW, 6, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW-labelW, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(8, pdf.GetY(), pageW-8, pdf.GetY())
	pdf.Ln(3)

	// ── Shelves ──────────────────────────────────────────────────────────────
	col1 := contentW * 0.50
	col2 := contentW * 0.25
	col3 := contentW * 0.25

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Shelf", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Stock", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "Picked", "B", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	total := 0
	for _, s := range pl.Shelves {
		pdf.CellFormat(col1, 6, s.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("%d", s.Stock), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "____", "", 1, "C", false, 0, "")
		total += s.Stock
	}
	if len(pl.Shelves) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 6, "No shelf holds this product", "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(8, pdf.GetY(), pageW-8, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "On shelves:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, fmt.Sprintf("%d", total), "", 1, "C", false, 0, "")
	if total < pl.Quantity {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Short by %d", pl.Quantity-total), "", 1, "L", false, 0, "")
	}

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Printed "+pl.PrintedAt.Format("02.01.2006 15:04"), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render pick list: %w", err)
	}
	return buf.Bytes(), nil
}
