package service_test

import (
	"context"
	"sort"
	"time"

	"marketstock/internal/dto"
	"marketstock/internal/model"
	"marketstock/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stubs return copies so that an aborted call leaves the stored rows untouched,
// as a rolled-back transaction would.

// ── CompanyRepository stub ───────────────────────────────────────────────────

type stubCompanyRepo struct {
	companies map[uuid.UUID]*model.Company
	settings  map[uuid.UUID]*model.CompanySettings
}

var _ repository.CompanyRepository = (*stubCompanyRepo)(nil)

func newStubCompanyRepo() *stubCompanyRepo {
	return &stubCompanyRepo{
		companies: make(map[uuid.UUID]*model.Company),
		settings:  make(map[uuid.UUID]*model.CompanySettings),
	}
}

// seed registers a company with the given windows; last < 0 omits the settings row.
func (r *stubCompanyRepo) seed(last, next int) uuid.UUID {
	id := uuid.New()
	r.companies[id] = &model.Company{ID: id, Name: "acme"}
	if last >= 0 {
		r.settings[id] = &model.CompanySettings{ID: uuid.New(), CompanyID: id, LastSaleDays: last, NextSaleDays: next}
	}
	return id
}

func (r *stubCompanyRepo) Create(_ context.Context, c *model.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.companies[c.ID] = c
	if c.Settings != nil {
		c.Settings.CompanyID = c.ID
		if c.Settings.ID == uuid.Nil {
			c.Settings.ID = uuid.New()
		}
		r.settings[c.ID] = c.Settings
	}
	return nil
}

func (r *stubCompanyRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Settings = r.settings[id]
	return &cp, nil
}

func (r *stubCompanyRepo) List(_ context.Context) ([]model.Company, error) {
	out := make([]model.Company, 0, len(r.companies))
	for _, c := range r.companies {
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubCompanyRepo) FindSettings(_ context.Context, companyID uuid.UUID) (*model.CompanySettings, error) {
	s, ok := r.settings[companyID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubCompanyRepo) UpdateSettings(_ context.Context, s *model.CompanySettings) error {
	cp := *s
	r.settings[s.CompanyID] = &cp
	return nil
}

// ── FactRepository stub ──────────────────────────────────────────────────────

type stubFactRepo struct {
	sales    map[uuid.UUID]int // product → sales in any window
	orders   map[uuid.UUID]int
	stock    map[uuid.UUID]int // product → latest marketplace stock, all warehouses
	whStock  map[string]int    // warehouse name → latest stock of any product
	products []uuid.UUID
	byWh     []repository.WarehouseSales
	sold     []repository.WarehouseProducts

	replaced   []repository.FactBatch
	replaceErr error
	repoints   map[uuid.UUID]uuid.UUID
	lastSQ     repository.StockQuery
}

var _ repository.FactRepository = (*stubFactRepo)(nil)

func newStubFactRepo() *stubFactRepo {
	return &stubFactRepo{
		sales:    make(map[uuid.UUID]int),
		orders:   make(map[uuid.UUID]int),
		stock:    make(map[uuid.UUID]int),
		whStock:  make(map[string]int),
		repoints: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *stubFactRepo) CountSales(_ context.Context, q repository.FactQuery) (int, error) {
	return r.sales[q.ProductID], nil
}

func (r *stubFactRepo) CountOrders(_ context.Context, q repository.FactQuery) (int, error) {
	return r.orders[q.ProductID], nil
}

func (r *stubFactRepo) LatestStock(_ context.Context, q repository.StockQuery) (int, error) {
	r.lastSQ = q
	if q.WarehouseName != nil {
		return r.whStock[*q.WarehouseName], nil
	}
	return r.stock[q.ProductID], nil
}

func (r *stubFactRepo) ProductsWithFacts(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return r.products, nil
}

func (r *stubFactRepo) SalesByWarehouse(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]repository.WarehouseSales, error) {
	return r.byWh, nil
}

func (r *stubFactRepo) ProductsSoldByWarehouse(_ context.Context, _ uuid.UUID) ([]repository.WarehouseProducts, error) {
	return r.sold, nil
}

func (r *stubFactRepo) ReplaceWindowTx(_ *gorm.DB, b repository.FactBatch) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.replaced = append(r.replaced, b)
	return nil
}

func (r *stubFactRepo) RepointTx(_ *gorm.DB, from []uuid.UUID, to uuid.UUID) error {
	for _, id := range from {
		r.repoints[id] = to
	}
	return nil
}

func (r *stubFactRepo) DB() *gorm.DB { return nil }

// ── ProductRepository stub ───────────────────────────────────────────────────

type stubProductRepo struct {
	products   map[uuid.UUID]*model.Product
	warehouses map[uuid.UUID]*model.Warehouse
	stockWhs   map[uuid.UUID]*model.WarehouseForStock
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		products:   make(map[uuid.UUID]*model.Product),
		warehouses: make(map[uuid.UUID]*model.Warehouse),
		stockWhs:   make(map[uuid.UUID]*model.WarehouseForStock),
	}
}

func (r *stubProductRepo) add(barcode, vendor string, mp model.MarketplaceType) *model.Product {
	p := &model.Product{ID: uuid.New(), Barcode: barcode, VendorCode: vendor, MarketplaceType: mp, CreatedAt: time.Now()}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) FindByBarcodeTx(_ *gorm.DB, barcode string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		if p.Barcode == barcode {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *stubProductRepo) UpsertTx(_ *gorm.DB, p *model.Product) error {
	for _, existing := range r.products {
		if existing.Barcode == p.Barcode && existing.MarketplaceType == p.MarketplaceType {
			existing.VendorCode = p.VendorCode
			*p = *existing
			return nil
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) EnsureWarehouseTx(_ *gorm.DB, w *model.Warehouse) error {
	for _, existing := range r.warehouses {
		if existing.Name == w.Name && existing.Country == w.Country && existing.Oblast == w.Oblast && existing.Region == w.Region {
			*w = *existing
			return nil
		}
	}
	w.ID = uuid.New()
	cp := *w
	r.warehouses[w.ID] = &cp
	return nil
}

func (r *stubProductRepo) EnsureStockWarehouseTx(_ *gorm.DB, w *model.WarehouseForStock) error {
	for _, existing := range r.stockWhs {
		if existing.Name == w.Name && existing.MarketplaceType == w.MarketplaceType {
			*w = *existing
			return nil
		}
	}
	w.ID = uuid.New()
	cp := *w
	r.stockWhs[w.ID] = &cp
	return nil
}

func (r *stubProductRepo) FindWarehouse(_ context.Context, id uuid.UUID) (*model.Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

// ── RecommendationRepository stub ────────────────────────────────────────────

type stubRecommendationRepo struct {
	rows map[uuid.UUID]*model.Recommendation
}

var _ repository.RecommendationRepository = (*stubRecommendationRepo)(nil)

func newStubRecommendationRepo() *stubRecommendationRepo {
	return &stubRecommendationRepo{rows: make(map[uuid.UUID]*model.Recommendation)}
}

func (r *stubRecommendationRepo) byProduct(productID uuid.UUID) *model.Recommendation {
	for _, rec := range r.rows {
		if rec.ProductID == productID {
			return rec
		}
	}
	return nil
}

func (r *stubRecommendationRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]model.Recommendation, error) {
	var out []model.Recommendation
	for _, rec := range r.rows {
		if rec.CompanyID == companyID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *stubRecommendationRepo) List(ctx context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.Recommendation, int64, error) {
	out, _ := r.ListByCompany(ctx, companyID)
	return out, int64(len(out)), nil
}

func (r *stubRecommendationRepo) FindForUpdateTx(_ *gorm.DB, companyID, id uuid.UUID) (*model.Recommendation, error) {
	rec, ok := r.rows[id]
	if !ok || rec.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *stubRecommendationRepo) FindByProductForUpdateTx(_ *gorm.DB, companyID, productID uuid.UUID) (*model.Recommendation, error) {
	for _, rec := range r.rows {
		if rec.CompanyID == companyID && rec.ProductID == productID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRecommendationRepo) SaveTx(_ *gorm.DB, rec *model.Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	r.rows[rec.ID] = &cp
	return nil
}

func (r *stubRecommendationRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.rows, id)
	return nil
}

func (r *stubRecommendationRepo) DeleteExceptTx(_ *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error {
	kept := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	for id, rec := range r.rows {
		if rec.CompanyID == companyID && !kept[rec.ProductID] {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *stubRecommendationRepo) DB() *gorm.DB { return nil }

// ── SupplierRepository stub ──────────────────────────────────────────────────

type stubSupplierRepo struct {
	rows map[uuid.UUID]*model.SupplierRecommendation
}

var _ repository.SupplierRepository = (*stubSupplierRepo)(nil)

func newStubSupplierRepo() *stubSupplierRepo {
	return &stubSupplierRepo{rows: make(map[uuid.UUID]*model.SupplierRecommendation)}
}

func (r *stubSupplierRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]model.SupplierRecommendation, error) {
	var out []model.SupplierRecommendation
	for _, s := range r.rows {
		if s.CompanyID == companyID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubSupplierRepo) List(ctx context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.SupplierRecommendation, int64, error) {
	out, _ := r.ListByCompany(ctx, companyID)
	return out, int64(len(out)), nil
}

func (r *stubSupplierRepo) QuantityByWarehouse(_ context.Context, companyID uuid.UUID) ([]repository.WarehouseQuantity, error) {
	sums := make(map[repository.WarehouseQuantity]int)
	for _, s := range r.rows {
		if s.CompanyID != companyID {
			continue
		}
		sums[repository.WarehouseQuantity{WarehouseID: s.WarehouseID, MarketplaceType: s.MarketplaceType}] += s.Quantity
	}
	out := make([]repository.WarehouseQuantity, 0, len(sums))
	for k, q := range sums {
		k.Quantity = q
		out = append(out, k)
	}
	return out, nil
}

func (r *stubSupplierRepo) FindByKeyForUpdateTx(_ *gorm.DB, companyID, warehouseID, productID uuid.UUID, mp model.MarketplaceType) (*model.SupplierRecommendation, error) {
	for _, s := range r.rows {
		if s.CompanyID == companyID && s.WarehouseID == warehouseID && s.ProductID == productID && s.MarketplaceType == mp {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSupplierRepo) FindManyForUpdateTx(_ *gorm.DB, companyID uuid.UUID, ids []uuid.UUID) ([]model.SupplierRecommendation, error) {
	var out []model.SupplierRecommendation
	for _, id := range ids {
		if s, ok := r.rows[id]; ok && s.CompanyID == companyID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *stubSupplierRepo) SaveTx(_ *gorm.DB, s *model.SupplierRecommendation) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.rows, id)
	return nil
}

func (r *stubSupplierRepo) DeleteExceptTx(_ *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error {
	kept := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	for id, s := range r.rows {
		if s.CompanyID == companyID && !kept[id] {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *stubSupplierRepo) DB() *gorm.DB { return nil }

// ── PriorityRepository stub ──────────────────────────────────────────────────

type stubPriorityRepo struct {
	rows map[uuid.UUID]*model.PriorityShipment
}

var _ repository.PriorityRepository = (*stubPriorityRepo)(nil)

func newStubPriorityRepo() *stubPriorityRepo {
	return &stubPriorityRepo{rows: make(map[uuid.UUID]*model.PriorityShipment)}
}

func (r *stubPriorityRepo) byWarehouse(warehouseID uuid.UUID) *model.PriorityShipment {
	for _, p := range r.rows {
		if p.WarehouseID == warehouseID {
			return p
		}
	}
	return nil
}

func (r *stubPriorityRepo) List(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.PriorityShipment, int64, error) {
	var out []model.PriorityShipment
	for _, p := range r.rows {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubPriorityRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*model.PriorityShipment, error) {
	p, ok := r.rows[id]
	if !ok || p.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubPriorityRepo) UpdateManual(_ context.Context, companyID, id uuid.UUID, travel, arrive *int) error {
	p, ok := r.rows[id]
	if !ok || p.CompanyID != companyID {
		return gorm.ErrRecordNotFound
	}
	if travel != nil {
		p.TravelDays = *travel
	}
	if arrive != nil {
		p.ArriveDays = *arrive
	}
	return nil
}

func (r *stubPriorityRepo) FindByKeyForUpdateTx(_ *gorm.DB, companyID, warehouseID uuid.UUID, mp model.MarketplaceType) (*model.PriorityShipment, error) {
	for _, p := range r.rows {
		if p.CompanyID == companyID && p.WarehouseID == warehouseID && p.MarketplaceType == mp {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPriorityRepo) SaveTx(_ *gorm.DB, p *model.PriorityShipment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *stubPriorityRepo) DeleteExceptTx(_ *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error {
	kept := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	for id, p := range r.rows {
		if p.CompanyID == companyID && !kept[id] {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *stubPriorityRepo) DB() *gorm.DB { return nil }

// ── FlowRepository stub ──────────────────────────────────────────────────────

type historyKey struct {
	companyID, productID uuid.UUID
	shelf                string
}

type stubFlowRepo struct {
	production map[uuid.UUID]*model.InProduction
	sorting    map[uuid.UUID]*model.SortingWarehouse
	shelves    map[uuid.UUID]*model.Shelf
	history    map[historyKey]*model.WarehouseHistory
	shipments  map[uuid.UUID]*model.Shipment
	shipped    []model.ShipmentHistory
}

var _ repository.FlowRepository = (*stubFlowRepo)(nil)

func newStubFlowRepo() *stubFlowRepo {
	return &stubFlowRepo{
		production: make(map[uuid.UUID]*model.InProduction),
		sorting:    make(map[uuid.UUID]*model.SortingWarehouse),
		shelves:    make(map[uuid.UUID]*model.Shelf),
		history:    make(map[historyKey]*model.WarehouseHistory),
		shipments:  make(map[uuid.UUID]*model.Shipment),
	}
}

func (r *stubFlowRepo) OnHand(ctx context.Context, companyID, productID uuid.UUID) (repository.FlowStock, error) {
	var fs repository.FlowStock
	fs.Shelf, _ = r.ShelfTotal(ctx, companyID, productID)
	fs.Sorting, _ = r.SortingTotal(ctx, companyID, productID)
	for _, p := range r.production {
		if p.CompanyID == companyID && p.ProductID == productID {
			fs.InProduction += p.Manufacture
		}
	}
	return fs, nil
}

func (r *stubFlowRepo) ShelfTotal(_ context.Context, companyID, productID uuid.UUID) (int, error) {
	total := 0
	for _, s := range r.shelves {
		if s.CompanyID == companyID && s.ProductID == productID {
			total += s.Stock
		}
	}
	return total, nil
}

func (r *stubFlowRepo) SortingTotal(_ context.Context, companyID, productID uuid.UUID) (int, error) {
	total := 0
	for _, s := range r.sorting {
		if s.CompanyID == companyID && s.ProductID == productID {
			total += s.Unsorted
		}
	}
	return total, nil
}

// ── Production ──

func (r *stubFlowRepo) ListProduction(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.InProduction, int64, error) {
	var out []model.InProduction
	for _, p := range r.production {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFlowRepo) FindProductionForUpdateTx(_ *gorm.DB, companyID, id uuid.UUID) (*model.InProduction, error) {
	p, ok := r.production[id]
	if !ok || p.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubFlowRepo) SaveProductionTx(_ *gorm.DB, p *model.InProduction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.production[p.ID] = &cp
	return nil
}

func (r *stubFlowRepo) DeleteProductionTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.production, id)
	return nil
}

// ── Sorting ──

func (r *stubFlowRepo) ListSorting(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.SortingWarehouse, int64, error) {
	var out []model.SortingWarehouse
	for _, s := range r.sorting {
		if s.CompanyID == companyID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFlowRepo) FindSortingForUpdateTx(_ *gorm.DB, companyID, id uuid.UUID) (*model.SortingWarehouse, error) {
	s, ok := r.sorting[id]
	if !ok || s.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubFlowRepo) sortingOf(companyID, productID uuid.UUID) *model.SortingWarehouse {
	for _, s := range r.sorting {
		if s.CompanyID == companyID && s.ProductID == productID {
			return s
		}
	}
	return nil
}

func (r *stubFlowRepo) AddUnsortedTx(_ *gorm.DB, companyID, productID uuid.UUID, qty int) error {
	if s := r.sortingOf(companyID, productID); s != nil {
		s.Unsorted += qty
		return nil
	}
	return r.SaveSortingTx(nil, &model.SortingWarehouse{CompanyID: companyID, ProductID: productID, Unsorted: qty})
}

func (r *stubFlowRepo) SaveSortingTx(_ *gorm.DB, s *model.SortingWarehouse) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sorting[s.ID] = &cp
	return nil
}

func (r *stubFlowRepo) DeleteSortingTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.sorting, id)
	return nil
}

// ── Shelves ──

func (r *stubFlowRepo) ListShelves(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.Shelf, int64, error) {
	var out []model.Shelf
	for _, s := range r.shelves {
		if s.CompanyID == companyID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFlowRepo) ShelvesByProduct(_ context.Context, companyID, productID uuid.UUID) ([]model.Shelf, error) {
	var out []model.Shelf
	for _, s := range r.shelves {
		if s.CompanyID == companyID && s.ProductID == productID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShelfName < out[j].ShelfName })
	return out, nil
}

func (r *stubFlowRepo) FindShelfForUpdateTx(_ *gorm.DB, companyID, id uuid.UUID) (*model.Shelf, error) {
	s, ok := r.shelves[id]
	if !ok || s.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubFlowRepo) shelfOf(companyID, productID uuid.UUID, name string) *model.Shelf {
	for _, s := range r.shelves {
		if s.CompanyID == companyID && s.ProductID == productID && s.ShelfName == name {
			return s
		}
	}
	return nil
}

func (r *stubFlowRepo) AddShelfStockTx(_ *gorm.DB, companyID, productID uuid.UUID, name string, qty int) (*model.Shelf, error) {
	s := r.shelfOf(companyID, productID, name)
	if s == nil {
		s = &model.Shelf{ID: uuid.New(), CompanyID: companyID, ProductID: productID, ShelfName: name}
		r.shelves[s.ID] = s
	}
	s.Stock += qty
	cp := *s
	return &cp, nil
}

func (r *stubFlowRepo) SaveShelfTx(_ *gorm.DB, s *model.Shelf) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.shelves[s.ID] = &cp
	return nil
}

func (r *stubFlowRepo) DeleteShelfTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.shelves, id)
	return nil
}

func (r *stubFlowRepo) shelfByName(name string) *model.Shelf {
	for _, s := range r.shelves {
		if s.ShelfName == name {
			return s
		}
	}
	return nil
}

// ── History ──

func (r *stubFlowRepo) UpsertHistoryTx(_ *gorm.DB, companyID, productID uuid.UUID, shelfName string, stock int, date time.Time) error {
	k := historyKey{companyID, productID, shelfName}
	h, ok := r.history[k]
	if !ok {
		h = &model.WarehouseHistory{ID: uuid.New(), CompanyID: companyID, ProductID: productID, ShelfName: shelfName}
		r.history[k] = h
	}
	h.Stock = stock
	h.Date = date
	return nil
}

func (r *stubFlowRepo) ListHistory(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.WarehouseHistory, int64, error) {
	var out []model.WarehouseHistory
	for _, h := range r.history {
		if h.CompanyID == companyID {
			out = append(out, *h)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFlowRepo) HistoryTotals(_ context.Context, companyID uuid.UUID) ([]repository.ProductTotal, error) {
	sums := make(map[uuid.UUID]int)
	for _, h := range r.history {
		if h.CompanyID == companyID {
			sums[h.ProductID] += h.Stock
		}
	}
	return totals(sums), nil
}

func (r *stubFlowRepo) ShelfTotals(_ context.Context, companyID uuid.UUID) ([]repository.ProductTotal, error) {
	sums := make(map[uuid.UUID]int)
	for _, s := range r.shelves {
		if s.CompanyID == companyID {
			sums[s.ProductID] += s.Stock
		}
	}
	return totals(sums), nil
}

func totals(sums map[uuid.UUID]int) []repository.ProductTotal {
	out := make([]repository.ProductTotal, 0, len(sums))
	for id, t := range sums {
		out = append(out, repository.ProductTotal{ProductID: id, Total: t})
	}
	return out
}

// ── Shipments ──

func (r *stubFlowRepo) ListShipments(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.Shipment, int64, error) {
	var out []model.Shipment
	for _, s := range r.shipments {
		if s.CompanyID == companyID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFlowRepo) FindShipment(_ context.Context, companyID, id uuid.UUID) (*model.Shipment, error) {
	s, ok := r.shipments[id]
	if !ok || s.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubFlowRepo) HasOpenShipment(_ context.Context, companyID, productID uuid.UUID) (bool, error) {
	for _, s := range r.shipments {
		if s.CompanyID == companyID && s.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubFlowRepo) FindShipmentForUpdateTx(_ *gorm.DB, companyID, id uuid.UUID) (*model.Shipment, error) {
	return r.FindShipment(context.Background(), companyID, id)
}

func (r *stubFlowRepo) SaveShipmentTx(_ *gorm.DB, s *model.Shipment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.shipments[s.ID] = &cp
	return nil
}

func (r *stubFlowRepo) DeleteShipmentTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.shipments, id)
	return nil
}

func (r *stubFlowRepo) CreateShipmentHistoryTx(_ *gorm.DB, h *model.ShipmentHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	r.shipped = append(r.shipped, *h)
	return nil
}

func (r *stubFlowRepo) ListShipmentHistory(_ context.Context, companyID uuid.UUID, _ dto.ListFilter) ([]model.ShipmentHistory, int64, error) {
	var out []model.ShipmentHistory
	for _, h := range r.shipped {
		if h.CompanyID == companyID {
			out = append(out, h)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFlowRepo) RepointTx(_ *gorm.DB, from []uuid.UUID, to uuid.UUID) error {
	moved := make(map[uuid.UUID]bool, len(from))
	for _, id := range from {
		moved[id] = true
	}
	for id, s := range r.sorting {
		if !moved[s.ProductID] {
			continue
		}
		delete(r.sorting, id)
		if target := r.sortingOf(s.CompanyID, to); target != nil {
			target.Unsorted += s.Unsorted
			continue
		}
		s.ProductID = to
		r.sorting[id] = s
	}
	for id, s := range r.shelves {
		if !moved[s.ProductID] {
			continue
		}
		delete(r.shelves, id)
		if target := r.shelfOf(s.CompanyID, to, s.ShelfName); target != nil {
			target.Stock += s.Stock
			continue
		}
		s.ProductID = to
		r.shelves[id] = s
	}
	for k, h := range r.history {
		if !moved[k.productID] {
			continue
		}
		delete(r.history, k)
		tk := historyKey{k.companyID, to, k.shelf}
		if target, ok := r.history[tk]; ok {
			target.Stock += h.Stock
			continue
		}
		h.ProductID = to
		r.history[tk] = h
	}
	for _, p := range r.production {
		if moved[p.ProductID] {
			p.ProductID = to
		}
	}
	for _, s := range r.shipments {
		if moved[s.ProductID] {
			s.ProductID = to
		}
	}
	return nil
}

func (r *stubFlowRepo) DB() *gorm.DB { return nil }

// fixedNow returns a clock pinned at t.
func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }
