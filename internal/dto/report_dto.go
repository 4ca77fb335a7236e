package dto

// IngestRequest asks for a fact pull over an inclusive date window (YYYY-MM-DD).
type IngestRequest struct {
	DateFrom string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `json:"date_to"   validate:"required,datetime=2006-01-02"`
}

type IngestResponse struct {
	Marketplaces map[string]IngestResult `json:"marketplaces"`
}

// IngestResult reports one marketplace's pull. Error is set when it was skipped.
type IngestResult struct {
	Sales  int    `json:"sales"`
	Orders int    `json:"orders"`
	Stocks int    `json:"stocks"`
	Error  string `json:"error,omitempty"`
}

type RecomputeResponse struct {
	Queued bool   `json:"queued"`
	Queue  string `json:"queue"`
}

type WarehouseHistoryResponse struct {
	ID        string      `json:"id"`
	Product   *ProductRef `json:"product"`
	ShelfName string      `json:"shelf_name"`
	Stock     int         `json:"stock"`
	Date      string      `json:"date"`
}

// ReconciliationRow compares a product's shelf stock with its history total.
type ReconciliationRow struct {
	ProductID    string `json:"product_id"`
	ShelfStock   int    `json:"shelf_stock"`
	HistoryStock int    `json:"history_stock"`
	Balanced     bool   `json:"balanced"`
}

type ReconciliationResponse struct {
	Rows     []ReconciliationRow `json:"rows"`
	Balanced bool                `json:"balanced"`
}
