package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"marketstock/internal/dto"
	"marketstock/internal/model"
	"marketstock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FlowService moves quantity through the warehouse flow:
// recommendation → production → sorting → shelf → shipment → shipment history.
//
// Every transition runs in one transaction, locks its source rows and checks
// the available quantity under the lock. Rows whose quantity reaches zero are
// deleted.
type FlowService interface {
	CommitToProduction(ctx context.Context, companyID uuid.UUID, req dto.CommitToProductionRequest) (*dto.InProductionResponse, error)
	RecordProduction(ctx context.Context, companyID, productionID uuid.UUID, req dto.RecordProductionRequest) (*dto.InProductionResponse, error)
	AdjustProduction(ctx context.Context, companyID, productionID uuid.UUID, req dto.AdjustProductionRequest) (*dto.InProductionResponse, error)
	AllocateToShelf(ctx context.Context, companyID uuid.UUID, req dto.AllocateToShelfRequest) (*dto.ShelfResponse, error)
	CorrectShelf(ctx context.Context, companyID, shelfID uuid.UUID, req dto.CorrectShelfRequest) (*dto.ShelfResponse, error)
	CreateShipments(ctx context.Context, companyID uuid.UUID, req dto.CreateShipmentRequest) ([]dto.ShipmentResponse, error)
	FulfillShipment(ctx context.Context, companyID, shipmentID uuid.UUID, req dto.FulfillShipmentRequest) (*dto.ShipmentHistoryResponse, error)

	ListProduction(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.InProductionResponse], error)
	ListSorting(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.SortingResponse], error)
	ListShelves(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.ShelfResponse], error)
	ListShipments(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.ShipmentResponse], error)
	ListShipmentHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.ShipmentHistoryResponse], error)
}

type flowService struct {
	flow     repository.FlowRepository
	recs     repository.RecommendationRepository
	supplier repository.SupplierRepository
	now      func() time.Time
}

func NewFlowService(
	flow repository.FlowRepository,
	recs repository.RecommendationRepository,
	supplier repository.SupplierRepository,
	now func() time.Time,
) FlowService {
	if now == nil {
		now = time.Now
	}
	return &flowService{flow: flow, recs: recs, supplier: supplier, now: now}
}

// ── Recommended → InProduction ──────────────────────────────────────────────

func (s *flowService) CommitToProduction(ctx context.Context, companyID uuid.UUID, req dto.CommitToProductionRequest) (*dto.InProductionResponse, error) {
	recID, err := parseID("recommendation_id", req.RecommendationID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}

	var prod model.InProduction
	err = runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		rec, err := s.recs.FindForUpdateTx(tx, companyID, recID)
		if err != nil {
			return lookup(err, "recommendation", recID)
		}
		if req.Quantity > rec.Quantity {
			return fmt.Errorf("commit %d of recommendation %s holding %d: %w",
				req.Quantity, recID, rec.Quantity, ErrInsufficientStock)
		}

		prod = model.InProduction{
			CompanyID:   companyID,
			ProductID:   rec.ProductID,
			Manufacture: req.Quantity,
		}
		rec.Quantity -= req.Quantity
		if rec.Quantity == 0 {
			if err := s.recs.DeleteTx(tx, rec.ID); err != nil {
				return err
			}
		} else {
			prod.RecommendationID = &rec.ID
			if err := s.recs.SaveTx(tx, rec); err != nil {
				return err
			}
		}
		return s.flow.SaveProductionTx(tx, &prod)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("company_id", companyID.String()).
		Str("product_id", prod.ProductID.String()).
		Int("quantity", prod.Manufacture).
		Msg("flow: committed to production")
	resp := productionToResponse(&prod, false)
	return &resp, nil
}

// ── InProduction → Sorting ──────────────────────────────────────────────────

func (s *flowService) RecordProduction(ctx context.Context, companyID, productionID uuid.UUID, req dto.RecordProductionRequest) (*dto.InProductionResponse, error) {
	if req.ProducedDelta <= 0 {
		return nil, invalid("produced_delta must be positive")
	}
	var prod *model.InProduction
	retired := false
	err := runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		var err error
		prod, err = s.flow.FindProductionForUpdateTx(tx, companyID, productionID)
		if err != nil {
			return lookup(err, "production", productionID)
		}
		prod.Produced += req.ProducedDelta
		if prod.Produced < prod.Manufacture {
			return s.flow.SaveProductionTx(tx, prod)
		}
		retired = true
		return s.completeProduction(tx, prod)
	})
	if err != nil {
		return nil, err
	}
	resp := productionToResponse(prod, retired)
	return &resp, nil
}

// AdjustProduction overwrites the committed quantity. A quantity at or below
// what was already produced completes the row; zero with nothing produced
// cancels it.
func (s *flowService) AdjustProduction(ctx context.Context, companyID, productionID uuid.UUID, req dto.AdjustProductionRequest) (*dto.InProductionResponse, error) {
	if req.Manufacture < 0 {
		return nil, invalid("manufacture must not be negative")
	}
	var prod *model.InProduction
	retired := false
	err := runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		var err error
		prod, err = s.flow.FindProductionForUpdateTx(tx, companyID, productionID)
		if err != nil {
			return lookup(err, "production", productionID)
		}
		prod.Manufacture = req.Manufacture
		switch {
		case prod.Manufacture == 0 && prod.Produced == 0:
			retired = true
			return s.flow.DeleteProductionTx(tx, prod.ID)
		case prod.Produced >= prod.Manufacture:
			retired = true
			return s.completeProduction(tx, prod)
		default:
			return s.flow.SaveProductionTx(tx, prod)
		}
	})
	if err != nil {
		return nil, err
	}
	resp := productionToResponse(prod, retired)
	return &resp, nil
}

// completeProduction retires prod and credits its output to the sorting buffer.
func (s *flowService) completeProduction(tx *gorm.DB, prod *model.InProduction) error {
	if err := s.flow.DeleteProductionTx(tx, prod.ID); err != nil {
		return err
	}
	if prod.Produced == 0 {
		return nil
	}
	return s.flow.AddUnsortedTx(tx, prod.CompanyID, prod.ProductID, prod.Produced)
}

// ── Sorting → Shelf ─────────────────────────────────────────────────────────

func (s *flowService) AllocateToShelf(ctx context.Context, companyID uuid.UUID, req dto.AllocateToShelfRequest) (*dto.ShelfResponse, error) {
	sortingID, err := parseID("sorting_id", req.SortingID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.ShelfName)
	if name == "" {
		return nil, invalid("shelf_name is required")
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}

	var shelf *model.Shelf
	err = runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		sorting, err := s.flow.FindSortingForUpdateTx(tx, companyID, sortingID)
		if err != nil {
			return lookup(err, "sorting", sortingID)
		}
		if req.Quantity > sorting.Unsorted {
			return fmt.Errorf("allocate %d of %d unsorted: %w", req.Quantity, sorting.Unsorted, ErrInsufficientStock)
		}

		sorting.Unsorted -= req.Quantity
		if sorting.Unsorted == 0 {
			err = s.flow.DeleteSortingTx(tx, sorting.ID)
		} else {
			err = s.flow.SaveSortingTx(tx, sorting)
		}
		if err != nil {
			return err
		}

		shelf, err = s.flow.AddShelfStockTx(tx, companyID, sorting.ProductID, name, req.Quantity)
		if err != nil {
			return err
		}
		return s.flow.UpsertHistoryTx(tx, companyID, shelf.ProductID, shelf.ShelfName, shelf.Stock, s.now())
	})
	if err != nil {
		return nil, err
	}
	resp := shelfToResponse(shelf, false)
	return &resp, nil
}

// CorrectShelf sets a shelf's stock after a count; history follows the shelf.
func (s *flowService) CorrectShelf(ctx context.Context, companyID, shelfID uuid.UUID, req dto.CorrectShelfRequest) (*dto.ShelfResponse, error) {
	if req.Stock < 0 {
		return nil, invalid("stock must not be negative")
	}
	var shelf *model.Shelf
	err := runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		var err error
		shelf, err = s.flow.FindShelfForUpdateTx(tx, companyID, shelfID)
		if err != nil {
			return lookup(err, "shelf", shelfID)
		}
		shelf.Stock = req.Stock
		if err := s.saveOrRetireShelf(tx, shelf); err != nil {
			return err
		}
		return s.flow.UpsertHistoryTx(tx, companyID, shelf.ProductID, shelf.ShelfName, shelf.Stock, s.now())
	})
	if err != nil {
		return nil, err
	}
	resp := shelfToResponse(shelf, shelf.Stock == 0)
	return &resp, nil
}

func (s *flowService) saveOrRetireShelf(tx *gorm.DB, shelf *model.Shelf) error {
	if shelf.Stock == 0 {
		return s.flow.DeleteShelfTx(tx, shelf.ID)
	}
	return s.flow.SaveShelfTx(tx, shelf)
}

// ── SupplierRecommendation → Shipment ───────────────────────────────────────

// CreateShipments converts the selected supplier recommendations into
// shipments. The recommendations are consumed; all or none are converted.
func (s *flowService) CreateShipments(ctx context.Context, companyID uuid.UUID, req dto.CreateShipmentRequest) ([]dto.ShipmentResponse, error) {
	ids, err := parseIDs("supplier_recommendation_ids", req.SupplierRecommendationIDs)
	if err != nil {
		return nil, err
	}

	var shipments []model.Shipment
	err = runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		recs, err := s.supplier.FindManyForUpdateTx(tx, companyID, ids)
		if err != nil {
			return err
		}
		if missing := missingIDs(ids, recs); len(missing) > 0 {
			return lookup(gorm.ErrRecordNotFound, "supplier recommendation", missing[0])
		}
		for _, rec := range recs {
			if rec.Quantity <= 0 {
				return invalid("supplier recommendation %s has nothing to ship", rec.ID)
			}
		}

		shipments = make([]model.Shipment, 0, len(recs))
		for _, rec := range recs {
			sh := model.Shipment{
				CompanyID:                companyID,
				ProductID:                rec.ProductID,
				SupplierRecommendationID: rec.ID,
				WarehouseID:              rec.WarehouseID,
				MarketplaceType:          rec.MarketplaceType,
				Quantity:                 rec.Quantity,
			}
			if err := s.flow.SaveShipmentTx(tx, &sh); err != nil {
				return err
			}
			if err := s.supplier.DeleteTx(tx, rec.ID); err != nil {
				return err
			}
			sh.Product, sh.Warehouse = rec.Product, rec.Warehouse
			shipments = append(shipments, sh)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]dto.ShipmentResponse, 0, len(shipments))
	for i := range shipments {
		out = append(out, shipmentToResponse(&shipments[i]))
	}
	log.Info().Str("company_id", companyID.String()).Int("count", len(out)).Msg("flow: shipments created")
	return out, nil
}

// ── Shelf → ShipmentHistory ─────────────────────────────────────────────────

// FulfillShipment ships req.Quantity (the whole shipment when zero) from the
// given shelves, drained in the order listed. The call is rejected before any
// change when the shelves together hold less than the quantity.
func (s *flowService) FulfillShipment(ctx context.Context, companyID, shipmentID uuid.UUID, req dto.FulfillShipmentRequest) (*dto.ShipmentHistoryResponse, error) {
	shelfIDs, err := parseIDs("shelf_ids", req.ShelfIDs)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}

	var hist model.ShipmentHistory
	retired := false
	err = runTx(ctx, s.flow.DB(), func(tx *gorm.DB) error {
		sh, err := s.flow.FindShipmentForUpdateTx(tx, companyID, shipmentID)
		if err != nil {
			return lookup(err, "shipment", shipmentID)
		}
		qty := req.Quantity
		if qty == 0 {
			qty = sh.Quantity
		}
		if qty > sh.Quantity {
			return invalid("quantity %d exceeds shipment %s remaining %d", qty, shipmentID, sh.Quantity)
		}

		// Lock in id order; drain in request order.
		lockOrder := append([]uuid.UUID(nil), shelfIDs...)
		sort.Slice(lockOrder, func(i, j int) bool { return lockOrder[i].String() < lockOrder[j].String() })
		shelves := make(map[uuid.UUID]*model.Shelf, len(lockOrder))
		available := 0
		for _, id := range lockOrder {
			shelf, err := s.flow.FindShelfForUpdateTx(tx, companyID, id)
			if err != nil {
				return lookup(err, "shelf", id)
			}
			if shelf.ProductID != sh.ProductID {
				return invalid("shelf %s holds another product", id)
			}
			shelves[id] = shelf
			available += shelf.Stock
		}
		if available < qty {
			return fmt.Errorf("ship %d from shelves holding %d: %w", qty, available, ErrInsufficientStock)
		}

		now := s.now()
		remaining := qty
		for _, id := range shelfIDs {
			if remaining == 0 {
				break
			}
			shelf := shelves[id]
			take := min(remaining, shelf.Stock)
			if take == 0 {
				continue
			}
			shelf.Stock -= take
			remaining -= take
			if err := s.saveOrRetireShelf(tx, shelf); err != nil {
				return err
			}
			if err := s.flow.UpsertHistoryTx(tx, companyID, shelf.ProductID, shelf.ShelfName, shelf.Stock, now); err != nil {
				return err
			}
		}

		hist = model.ShipmentHistory{
			CompanyID:       companyID,
			ProductID:       sh.ProductID,
			ShipmentID:      sh.ID,
			WarehouseID:     sh.WarehouseID,
			MarketplaceType: sh.MarketplaceType,
			Quantity:        qty,
			Date:            now,
		}
		if err := s.flow.CreateShipmentHistoryTx(tx, &hist); err != nil {
			return err
		}

		sh.Quantity -= qty
		if sh.Quantity == 0 {
			retired = true
			return s.flow.DeleteShipmentTx(tx, sh.ID)
		}
		return s.flow.SaveShipmentTx(tx, sh)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("company_id", companyID.String()).
		Str("shipment_id", shipmentID.String()).
		Int("quantity", hist.Quantity).
		Bool("retired", retired).
		Msg("flow: shipment fulfilled")
	resp := shipmentHistoryToResponse(&hist, retired)
	return &resp, nil
}

// ── Listings ────────────────────────────────────────────────────────────────

func (s *flowService) ListProduction(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.InProductionResponse], error) {
	f.Normalize()
	rows, total, err := s.flow.ListProduction(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.InProductionResponse]{}, err
	}
	out := make([]dto.InProductionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, productionToResponse(&rows[i], false))
	}
	return dto.NewPage(out, total, f), nil
}

func (s *flowService) ListSorting(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.SortingResponse], error) {
	f.Normalize()
	rows, total, err := s.flow.ListSorting(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.SortingResponse]{}, err
	}
	out := make([]dto.SortingResponse, 0, len(rows))
	for i := range rows {
		out = append(out, sortingToResponse(&rows[i]))
	}
	return dto.NewPage(out, total, f), nil
}

func (s *flowService) ListShelves(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.ShelfResponse], error) {
	f.Normalize()
	rows, total, err := s.flow.ListShelves(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.ShelfResponse]{}, err
	}
	out := make([]dto.ShelfResponse, 0, len(rows))
	for i := range rows {
		out = append(out, shelfToResponse(&rows[i], false))
	}
	return dto.NewPage(out, total, f), nil
}

func (s *flowService) ListShipments(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.ShipmentResponse], error) {
	f.Normalize()
	rows, total, err := s.flow.ListShipments(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.ShipmentResponse]{}, err
	}
	out := make([]dto.ShipmentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, shipmentToResponse(&rows[i]))
	}
	return dto.NewPage(out, total, f), nil
}

func (s *flowService) ListShipmentHistory(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.ShipmentHistoryResponse], error) {
	f.Normalize()
	rows, total, err := s.flow.ListShipmentHistory(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.ShipmentHistoryResponse]{}, err
	}
	out := make([]dto.ShipmentHistoryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, shipmentHistoryToResponse(&rows[i], false))
	}
	return dto.NewPage(out, total, f), nil
}

// parseIDs parses and de-duplicates ids, keeping their first-seen order.
func parseIDs(field string, raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, invalid("%s must not be empty", field)
	}
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(field, r)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func missingIDs(want []uuid.UUID, got []model.SupplierRecommendation) []uuid.UUID {
	found := make(map[uuid.UUID]bool, len(got))
	for _, r := range got {
		found[r.ID] = true
	}
	var missing []uuid.UUID
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
