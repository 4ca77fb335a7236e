package service

import (
	"context"
	"fmt"

	"marketstock/internal/dto"
	"marketstock/internal/engine"
	"marketstock/internal/model"
	"marketstock/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriorityService ranks marketplace warehouses for replenishment.
type PriorityService interface {
	RecomputePriority(ctx context.Context, companyID uuid.UUID) (RecomputeStats, error)
	List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.PriorityResponse], error)
	// UpdateManual edits travel and arrive days, which recomputes never touch.
	UpdateManual(ctx context.Context, companyID, id uuid.UUID, req dto.UpdatePriorityRequest) (*dto.PriorityResponse, error)
}

type priorityService struct {
	repo     repository.PriorityRepository
	facts    repository.FactReader
	supplier repository.SupplierRepository
	policy   UpdatePolicy
}

func NewPriorityService(
	repo repository.PriorityRepository,
	facts repository.FactReader,
	supplier repository.SupplierRepository,
	policy UpdatePolicy,
) PriorityService {
	if policy == "" {
		policy = PolicyAccumulate
	}
	return &priorityService{repo: repo, facts: facts, supplier: supplier, policy: policy}
}

// RecomputePriority compares each warehouse's share of products sold with its
// share of recommended shipment quantity. It reads this cycle's supplier
// recommendations and must run after them.
func (s *priorityService) RecomputePriority(ctx context.Context, companyID uuid.UUID) (RecomputeStats, error) {
	var stats RecomputeStats
	sold, err := s.facts.ProductsSoldByWarehouse(ctx, companyID)
	if err != nil {
		return stats, fmt.Errorf("products sold by warehouse: %w", err)
	}
	shipped, err := s.supplier.QuantityByWarehouse(ctx, companyID)
	if err != nil {
		return stats, fmt.Errorf("shipments by warehouse: %w", err)
	}

	sales := make(map[engine.WarehouseKey]int, len(sold))
	for _, r := range sold {
		sales[engine.WarehouseKey{WarehouseID: r.WarehouseID, Marketplace: r.MarketplaceType}] += r.Products
	}
	shipments := make(map[engine.WarehouseKey]int, len(shipped))
	for _, r := range shipped {
		shipments[engine.WarehouseKey{WarehouseID: r.WarehouseID, Marketplace: r.MarketplaceType}] += r.Quantity
	}

	ranked := engine.RankPriorities(sales, shipments)
	keep := make([]uuid.UUID, 0, len(ranked))
	for _, p := range ranked {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Products++
		id, written, err := s.store(ctx, companyID, p)
		if err != nil {
			return stats, fmt.Errorf("store priority: %w", err)
		}
		keep = append(keep, id)
		if written {
			stats.Written++
		}
	}

	if s.policy == PolicyReplace {
		if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.DeleteExceptTx(tx, companyID, keep)
		}); err != nil {
			return stats, fmt.Errorf("prune priorities: %w", err)
		}
	}
	return stats, nil
}

func (s *priorityService) store(ctx context.Context, companyID uuid.UUID, p engine.Priority) (uuid.UUID, bool, error) {
	var id uuid.UUID
	written := false
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		row, err := s.repo.FindByKeyForUpdateTx(tx, companyID, p.Key.WarehouseID, p.Key.Marketplace)
		if err != nil && !isNotFound(err) {
			return err
		}
		if row == nil {
			row = &model.PriorityShipment{
				CompanyID:       companyID,
				WarehouseID:     p.Key.WarehouseID,
				MarketplaceType: p.Key.Marketplace,
			}
		} else if s.policy == PolicyAccumulate && p.Sales <= row.Sales && p.Shipments <= row.Shipments {
			// Overwrite only when sales or shipments grew.
			id = row.ID
			return nil
		}
		row.Sales = p.Sales
		row.Shipments = p.Shipments
		row.SalesShare = p.SalesShare
		row.ShipmentsShare = p.ShipmentsShare
		row.ShippingPriority = p.ShippingPriority
		if err := s.repo.SaveTx(tx, row); err != nil {
			return err
		}
		id = row.ID
		written = true
		return nil
	})
	return id, written, err
}

func (s *priorityService) List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.PriorityResponse], error) {
	f.Normalize()
	rows, total, err := s.repo.List(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.PriorityResponse]{}, err
	}
	out := make([]dto.PriorityResponse, 0, len(rows))
	for i := range rows {
		out = append(out, priorityToResponse(&rows[i]))
	}
	return dto.NewPage(out, total, f), nil
}

func (s *priorityService) UpdateManual(ctx context.Context, companyID, id uuid.UUID, req dto.UpdatePriorityRequest) (*dto.PriorityResponse, error) {
	if (req.TravelDays != nil && *req.TravelDays < 0) || (req.ArriveDays != nil && *req.ArriveDays < 0) {
		return nil, invalid("travel_days and arrive_days must not be negative")
	}
	if err := s.repo.UpdateManual(ctx, companyID, id, req.TravelDays, req.ArriveDays); err != nil {
		return nil, lookup(err, "priority", id)
	}
	row, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, lookup(err, "priority", id)
	}
	resp := priorityToResponse(row)
	return &resp, nil
}
