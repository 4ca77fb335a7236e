// Package app is the composition root shared by the server and the CLI.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
package app

import (
	"fmt"
	"time"

	"marketstock/internal/config"
	"marketstock/internal/engine"
	"marketstock/internal/infra"
	"marketstock/internal/model"
	"marketstock/internal/repository"
	"marketstock/internal/service"
	"marketstock/internal/worker"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services holds every wired service plus the job dispatcher.
type Services struct {
	Companies       service.CompanyService
	Recommendations service.RecommendationService
	Supplier        service.SupplierService
	Priority        service.PriorityService
	Flow            service.FlowService
	Recompute       service.RecomputeService
	Reports         service.ReportService
	Ingestion       service.IngestionService

	Dispatcher *worker.Dispatcher
	Breakers   map[model.MarketplaceType]*infra.CircuitBreaker
}

// Build wires repositories and services from config.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Services, error) {
	signal, err := engine.ParseSignalKind(cfg.DemandSignal)
	if err != nil {
		return nil, fmt.Errorf("DEMAND_SIGNAL: %w", err)
	}
	policy, err := service.ParseUpdatePolicy(cfg.SupplierUpdatePolicy)
	if err != nil {
		return nil, fmt.Errorf("SUPPLIER_UPDATE_POLICY: %w", err)
	}

	// ── Repositories ──
	companyRepo := repository.NewCompanyRepository(db)
	productRepo := repository.NewProductRepository(db)
	factRepo := repository.NewFactRepository(db)
	recRepo := repository.NewRecommendationRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	priorityRepo := repository.NewPriorityRepository(db)
	flowRepo := repository.NewFlowRepository(db)

	// ── Infrastructure ──
	feed := infra.NewFeedClient(infra.FeedClientConfig{
		BaseURL:    cfg.FeedBaseURL,
		MaxRetries: cfg.FeedMaxRetries,
		Timeout:    cfg.FeedTimeout,
	})
	breakers := make(map[model.MarketplaceType]*infra.CircuitBreaker, len(model.Marketplaces))
	for _, m := range model.Marketplaces {
		cb := infra.DefaultCBConfig()
		cb.Name = string(m)
		breakers[m] = infra.NewCircuitBreaker(cb)
	}
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ──
	demand := service.NewDemandService(factRepo, flowRepo)
	recs := service.NewRecommendationService(recRepo, companyRepo, factRepo, demand, service.RecommendationConfig{
		Signal:        signal,
		StockoutFloor: cfg.StockoutFloorQty,
		Now:           time.Now,
	})
	supplier := service.NewSupplierService(supplierRepo, companyRepo, factRepo, flowRepo, service.SupplierConfig{
		Policy: policy,
		Now:    time.Now,
	})
	priority := service.NewPriorityService(priorityRepo, factRepo, supplierRepo, policy)

	return &Services{
		Companies: service.NewCompanyService(companyRepo, service.CompanyDefaults{
			LastSaleDays: cfg.DefaultLastSaleDays,
			NextSaleDays: cfg.DefaultNextSaleDays,
		}),
		Recommendations: recs,
		Supplier:        supplier,
		Priority:        priority,
		Flow:            service.NewFlowService(flowRepo, recRepo, supplierRepo, time.Now),
		Recompute:       service.NewRecomputeService(recs, supplier, priority),
		Reports:         service.NewReportService(flowRepo, recRepo, supplierRepo, time.Now),
		Ingestion:       service.NewIngestionService(feed, breakers, productRepo, factRepo, flowRepo, companyRepo, dispatcher),
		Dispatcher:      dispatcher,
		Breakers:        breakers,
	}, nil
}
