package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketstock/internal/dto"
	"marketstock/internal/engine"
	"marketstock/internal/infra"
	"marketstock/internal/model"
	"marketstock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FeedSource fetches normalized facts for one marketplace.
type FeedSource interface {
	Fetch(ctx context.Context, companyID, marketplace string, from, to time.Time) (*infra.FeedBatch, error)
}

// RecomputeEnqueuer schedules an asynchronous recompute of a company.
type RecomputeEnqueuer interface {
	EnqueueRecompute(ctx context.Context, companyID uuid.UUID) error
}

// IngestionService pulls marketplace facts into the fact tables.
type IngestionService interface {
	// Ingest replaces the company's facts in [from, to] for every marketplace
	// the feed answers for. A marketplace whose feed fails or sends malformed
	// facts is skipped and reported; the others are still stored. Storage
	// errors abort the call. A recompute is enqueued when anything was stored.
	Ingest(ctx context.Context, companyID uuid.UUID, from, to time.Time) (*dto.IngestResponse, error)
}

type ingestionService struct {
	feed      FeedSource
	breakers  map[model.MarketplaceType]*infra.CircuitBreaker
	products  repository.ProductRepository
	facts     repository.FactRepository
	flow      repository.FlowRepository
	companies repository.CompanyRepository
	enqueuer  RecomputeEnqueuer
}

func NewIngestionService(
	feed FeedSource,
	breakers map[model.MarketplaceType]*infra.CircuitBreaker,
	products repository.ProductRepository,
	facts repository.FactRepository,
	flow repository.FlowRepository,
	companies repository.CompanyRepository,
	enqueuer RecomputeEnqueuer,
) IngestionService {
	if breakers == nil {
		breakers = make(map[model.MarketplaceType]*infra.CircuitBreaker)
	}
	for _, mp := range model.Marketplaces {
		if breakers[mp] == nil {
			cfg := infra.DefaultCBConfig()
			cfg.Name = string(mp)
			breakers[mp] = infra.NewCircuitBreaker(cfg)
		}
	}
	return &ingestionService{
		feed:      feed,
		breakers:  breakers,
		products:  products,
		facts:     facts,
		flow:      flow,
		companies: companies,
		enqueuer:  enqueuer,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, companyID uuid.UUID, from, to time.Time) (*dto.IngestResponse, error) {
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		return nil, invalid("date_to is before date_from")
	}
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, lookup(err, "company", companyID)
	}

	resp := &dto.IngestResponse{Marketplaces: make(map[string]dto.IngestResult, len(model.Marketplaces))}
	stored := 0
	for _, mp := range model.Marketplaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		result, err := s.ingestMarketplace(ctx, companyID, mp, from, to)
		if err != nil && !errors.Is(err, ErrExternalFeed) {
			return nil, fmt.Errorf("ingest %s: %w", mp, err)
		}
		if err != nil {
			log.Warn().
				Err(err).
				Str("company_id", companyID.String()).
				Str("marketplace", string(mp)).
				Msg("ingest: marketplace skipped")
			resp.Marketplaces[string(mp)] = dto.IngestResult{Error: err.Error()}
			continue
		}
		stored++
		resp.Marketplaces[string(mp)] = result
		log.Info().
			Str("company_id", companyID.String()).
			Str("marketplace", string(mp)).
			Int("sales", result.Sales).
			Int("orders", result.Orders).
			Int("stocks", result.Stocks).
			Dur("duration", time.Since(start)).
			Msg("ingest: marketplace stored")
	}

	if stored > 0 && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueRecompute(ctx, companyID); err != nil {
			log.Error().Err(err).Str("company_id", companyID.String()).Msg("ingest: enqueue recompute failed")
		}
	}
	return resp, nil
}

func (s *ingestionService) ingestMarketplace(ctx context.Context, companyID uuid.UUID, mp model.MarketplaceType, from, to time.Time) (dto.IngestResult, error) {
	var batch *infra.FeedBatch
	err := s.breakers[mp].Execute(func() error {
		b, err := s.feed.Fetch(ctx, companyID.String(), string(mp), from, to)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dto.IngestResult{}, ctxErr
		}
		return dto.IngestResult{}, fmt.Errorf("%s: %w: %w", mp, err, ErrExternalFeed)
	}

	var result dto.IngestResult
	err = runTx(ctx, s.facts.DB(), func(tx *gorm.DB) error {
		r := newFactResolver(tx, s.products, s.facts, s.flow, companyID, mp)
		fb := repository.FactBatch{CompanyID: companyID, Marketplace: mp, From: from, To: to}

		for _, f := range batch.Sales {
			date, ok, err := r.date(f, from, to)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			productID, warehouseID, err := r.sale(f)
			if err != nil {
				return err
			}
			fb.Sales = append(fb.Sales, model.ProductSale{
				ProductID: productID, CompanyID: companyID, Date: date,
				WarehouseID: warehouseID, MarketplaceType: mp,
			})
		}
		for _, f := range batch.Orders {
			date, ok, err := r.date(f, from, to)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			productID, warehouseID, err := r.sale(f)
			if err != nil {
				return err
			}
			fb.Orders = append(fb.Orders, model.ProductOrder{
				ProductID: productID, CompanyID: companyID, Date: date,
				WarehouseID: warehouseID, MarketplaceType: mp,
			})
		}
		for _, f := range batch.Stocks {
			date, ok, err := r.date(f, from, to)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if f.Quantity < 0 {
				return malformed(mp, "negative stock for barcode %s", f.Barcode)
			}
			productID, warehouseID, err := r.stock(f)
			if err != nil {
				return err
			}
			fb.Stocks = append(fb.Stocks, model.ProductStock{
				ProductID: productID, CompanyID: companyID, Date: date,
				WarehouseID: warehouseID, MarketplaceType: mp, Quantity: f.Quantity,
			})
		}

		if err := s.facts.ReplaceWindowTx(tx, fb); err != nil {
			return err
		}
		result = dto.IngestResult{Sales: len(fb.Sales), Orders: len(fb.Orders), Stocks: len(fb.Stocks)}
		return nil
	})
	if err != nil {
		return dto.IngestResult{}, err
	}
	return result, nil
}

// malformed tags a fact the feed should not have sent. It skips the
// marketplace like an unreachable feed does.
func malformed(mp model.MarketplaceType, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", mp, fmt.Sprintf(format, args...), ErrExternalFeed)
}

// factResolver maps feed identities to ids inside one ingestion transaction.
type factResolver struct {
	tx         *gorm.DB
	products   repository.ProductRepository
	facts      repository.FactRepository
	flow       repository.FlowRepository
	companyID  uuid.UUID
	mp         model.MarketplaceType
	canonical  map[string]uuid.UUID // barcode → canonical product
	warehouses map[model.Warehouse]uuid.UUID
	stockWhs   map[string]uuid.UUID
}

func newFactResolver(tx *gorm.DB, products repository.ProductRepository, facts repository.FactRepository, flow repository.FlowRepository, companyID uuid.UUID, mp model.MarketplaceType) *factResolver {
	return &factResolver{
		tx:         tx,
		products:   products,
		facts:      facts,
		flow:       flow,
		companyID:  companyID,
		mp:         mp,
		canonical:  make(map[string]uuid.UUID),
		warehouses: make(map[model.Warehouse]uuid.UUID),
		stockWhs:   make(map[string]uuid.UUID),
	}
}

// date parses the fact date; ok is false for facts outside the window.
func (r *factResolver) date(f infra.FeedFact, from, to time.Time) (time.Time, bool, error) {
	d, err := time.Parse(dateLayout, f.Date)
	if err != nil {
		return time.Time{}, false, malformed(r.mp, "bad date %q for barcode %s", f.Date, f.Barcode)
	}
	if d.Before(from) || d.After(to) {
		return time.Time{}, false, nil
	}
	return d, true, nil
}

func (r *factResolver) sale(f infra.FeedFact) (uuid.UUID, uuid.UUID, error) {
	productID, err := r.product(f)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	key := model.Warehouse{
		Name:    strings.TrimSpace(f.Warehouse.Name),
		Country: strings.TrimSpace(f.Warehouse.Country),
		Oblast:  strings.TrimSpace(f.Warehouse.Oblast),
		Region:  strings.TrimSpace(f.Warehouse.Region),
	}
	if key.Name == "" {
		return uuid.Nil, uuid.Nil, malformed(r.mp, "missing warehouse for barcode %s", f.Barcode)
	}
	if id, ok := r.warehouses[key]; ok {
		return productID, id, nil
	}
	w := key
	if err := r.products.EnsureWarehouseTx(r.tx, &w); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	r.warehouses[key] = w.ID
	return productID, w.ID, nil
}

func (r *factResolver) stock(f infra.FeedFact) (uuid.UUID, uuid.UUID, error) {
	productID, err := r.product(f)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	name := strings.TrimSpace(f.Warehouse.Name)
	if name == "" {
		return uuid.Nil, uuid.Nil, malformed(r.mp, "missing stock warehouse for barcode %s", f.Barcode)
	}
	if id, ok := r.stockWhs[name]; ok {
		return productID, id, nil
	}
	w := model.WarehouseForStock{Name: name, MarketplaceType: r.mp}
	if err := r.products.EnsureStockWarehouseTx(r.tx, &w); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	r.stockWhs[name] = w.ID
	return productID, w.ID, nil
}

// product registers the listing and returns the canonical product its facts
// are booked against. When this listing is the Wildberries one, the facts and
// company stock already held against its same-barcode siblings move onto it.
func (r *factResolver) product(f infra.FeedFact) (uuid.UUID, error) {
	barcode := strings.TrimSpace(f.Barcode)
	if barcode == "" {
		return uuid.Nil, malformed(r.mp, "missing barcode for vendor code %q", f.VendorCode)
	}
	if id, ok := r.canonical[barcode]; ok {
		return id, nil
	}

	listing := model.Product{VendorCode: strings.TrimSpace(f.VendorCode), Barcode: barcode, MarketplaceType: r.mp}
	if err := r.products.UpsertTx(r.tx, &listing); err != nil {
		return uuid.Nil, err
	}
	listings, err := r.products.FindByBarcodeTx(r.tx, barcode)
	if err != nil {
		return uuid.Nil, err
	}
	canonical, ok := engine.ResolveCanonical(listings, barcode, r.mp)
	if !ok {
		canonical = listing.ID
	}

	if canonical == listing.ID && r.mp == model.MarketplaceWildberries {
		var siblings []uuid.UUID
		for _, p := range listings {
			if p.ID != canonical {
				siblings = append(siblings, p.ID)
			}
		}
		if err := r.facts.RepointTx(r.tx, siblings, canonical); err != nil {
			return uuid.Nil, err
		}
		if err := r.flow.RepointTx(r.tx, siblings, canonical); err != nil {
			return uuid.Nil, err
		}
	}
	r.canonical[barcode] = canonical
	return canonical, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
