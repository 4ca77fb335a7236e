package service

import (
	"context"
	"fmt"
	"time"

	"marketstock/internal/dto"
	"marketstock/internal/engine"
	"marketstock/internal/model"
	"marketstock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// UpdatePolicy decides how a recompute merges with rows of earlier cycles.
type UpdatePolicy string

const (
	// PolicyAccumulate only ever grows stored figures between cycles.
	PolicyAccumulate UpdatePolicy = "accumulate"
	// PolicyReplace makes every cycle's output the whole stored set.
	PolicyReplace UpdatePolicy = "replace"
)

// ParseUpdatePolicy validates a configured policy name; empty means accumulate.
func ParseUpdatePolicy(s string) (UpdatePolicy, error) {
	switch UpdatePolicy(s) {
	case "", PolicyAccumulate:
		return PolicyAccumulate, nil
	case PolicyReplace:
		return PolicyReplace, nil
	}
	return "", fmt.Errorf("unknown update policy %q", s)
}

// SupplierConfig tunes the shipment recommender.
type SupplierConfig struct {
	Policy UpdatePolicy
	Now    func() time.Time
}

// SupplierService recomputes per-warehouse shipment recommendations.
type SupplierService interface {
	RecomputeSupplierShipments(ctx context.Context, companyID uuid.UUID) (RecomputeStats, error)
	List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.SupplierRecommendationResponse], error)
}

type supplierService struct {
	repo      repository.SupplierRepository
	companies repository.CompanyRepository
	facts     repository.FactReader
	flow      repository.FlowRepository
	cfg       SupplierConfig
}

func NewSupplierService(
	repo repository.SupplierRepository,
	companies repository.CompanyRepository,
	facts repository.FactReader,
	flow repository.FlowRepository,
	cfg SupplierConfig,
) SupplierService {
	if cfg.Policy == "" {
		cfg.Policy = PolicyAccumulate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &supplierService{repo: repo, companies: companies, facts: facts, flow: flow, cfg: cfg}
}

// productStock is the company-held stock of a product shared by all its warehouses.
type productStock struct {
	sorting, shelf int
	inFlight       bool
}

// RecomputeSupplierShipments walks every (product, warehouse, marketplace)
// with sales in the window and records the warehouse's shortfall. Products
// with a shipment in flight are skipped.
func (s *supplierService) RecomputeSupplierShipments(ctx context.Context, companyID uuid.UUID) (RecomputeStats, error) {
	var stats RecomputeStats
	w, err := loadWindows(ctx, s.companies, companyID)
	if err != nil {
		return stats, err
	}
	asOf := s.cfg.Now()
	sales, err := s.facts.SalesByWarehouse(ctx, companyID, windowStart(asOf, w.LastSaleDays), asOf)
	if err != nil {
		return stats, fmt.Errorf("sales by warehouse: %w", err)
	}

	held := make(map[uuid.UUID]productStock)
	var keep []uuid.UUID
	for _, row := range sales {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Products++

		ps, ok := held[row.ProductID]
		if !ok {
			if ps, err = s.loadProductStock(ctx, companyID, row.ProductID); err != nil {
				return stats, err
			}
			held[row.ProductID] = ps
		}
		if ps.inFlight {
			stats.Skipped++
			continue
		}

		name, mp := row.WarehouseName, row.MarketplaceType
		atWarehouse, err := s.facts.LatestStock(ctx, repository.StockQuery{
			CompanyID:     companyID,
			ProductID:     row.ProductID,
			AsOf:          asOf,
			WarehouseName: &name,
			Marketplace:   &mp,
		})
		if err != nil {
			return stats, fmt.Errorf("warehouse stock: %w", err)
		}

		shortfall := engine.ComputeShortfall(row.Count, engine.Availability{
			Sorting:        ps.sorting,
			WarehouseStock: atWarehouse,
			Shelf:          ps.shelf,
		}, w)
		if !shortfall.Short() {
			continue
		}

		id, written, err := s.store(ctx, companyID, row, shortfall)
		if err != nil {
			return stats, fmt.Errorf("store supplier recommendation: %w", err)
		}
		keep = append(keep, id)
		if written {
			stats.Written++
		}
	}

	if s.cfg.Policy == PolicyReplace {
		if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.DeleteExceptTx(tx, companyID, keep)
		}); err != nil {
			return stats, fmt.Errorf("prune supplier recommendations: %w", err)
		}
	}

	log.Debug().
		Str("company_id", companyID.String()).
		Int("rows", stats.Products).
		Int("written", stats.Written).
		Int("skipped_in_flight", stats.Skipped).
		Msg("supplier: recompute done")
	return stats, nil
}

func (s *supplierService) loadProductStock(ctx context.Context, companyID, productID uuid.UUID) (productStock, error) {
	var ps productStock
	var err error
	if ps.inFlight, err = s.flow.HasOpenShipment(ctx, companyID, productID); err != nil {
		return ps, fmt.Errorf("open shipments: %w", err)
	}
	if ps.sorting, err = s.flow.SortingTotal(ctx, companyID, productID); err != nil {
		return ps, fmt.Errorf("sorting total: %w", err)
	}
	if ps.shelf, err = s.flow.ShelfTotal(ctx, companyID, productID); err != nil {
		return ps, fmt.Errorf("shelf total: %w", err)
	}
	return ps, nil
}

func (s *supplierService) store(ctx context.Context, companyID uuid.UUID, row repository.WarehouseSales, sf engine.Shortfall) (uuid.UUID, bool, error) {
	var id uuid.UUID
	written := false
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		existing, err := s.repo.FindByKeyForUpdateTx(tx, companyID, row.WarehouseID, row.ProductID, row.MarketplaceType)
		if err != nil && !isNotFound(err) {
			return err
		}
		if existing == nil {
			existing = &model.SupplierRecommendation{
				CompanyID:       companyID,
				WarehouseID:     row.WarehouseID,
				ProductID:       row.ProductID,
				MarketplaceType: row.MarketplaceType,
				Quantity:        sf.Difference,
				DaysLeft:        sf.DaysLeft,
			}
		} else {
			switch s.cfg.Policy {
			case PolicyReplace:
				if existing.Quantity == sf.Difference && existing.DaysLeft == sf.DaysLeft {
					id = existing.ID
					return nil
				}
				existing.Quantity, existing.DaysLeft = sf.Difference, sf.DaysLeft
			default:
				q, d, changed := engine.Accumulate(existing.Quantity, existing.DaysLeft, sf)
				if !changed {
					id = existing.ID
					return nil
				}
				existing.Quantity, existing.DaysLeft = q, d
			}
		}
		if err := s.repo.SaveTx(tx, existing); err != nil {
			return err
		}
		id = existing.ID
		written = true
		return nil
	})
	return id, written, err
}

func (s *supplierService) List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.SupplierRecommendationResponse], error) {
	f.Normalize()
	rows, total, err := s.repo.List(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.SupplierRecommendationResponse]{}, err
	}
	out := make([]dto.SupplierRecommendationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, supplierToResponse(&rows[i]))
	}
	return dto.NewPage(out, total, f), nil
}
