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

// RecomputeStats summarises one recompute stage for logs and job results.
type RecomputeStats struct {
	Products int `json:"products"`
	Written  int `json:"written"`
	Removed  int `json:"removed"`
	Skipped  int `json:"skipped"`
}

// RecommendationConfig tunes the replenishment formula.
type RecommendationConfig struct {
	Signal        engine.SignalKind
	StockoutFloor int
	Now           func() time.Time
}

// RecommendationService recomputes and lists per-product recommendations.
type RecommendationService interface {
	RecomputeRecommendations(ctx context.Context, companyID uuid.UUID) (RecomputeStats, error)
	List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.RecommendationResponse], error)
}

type recommendationService struct {
	repo      repository.RecommendationRepository
	companies repository.CompanyRepository
	facts     repository.FactReader
	demand    DemandService
	cfg       RecommendationConfig
}

func NewRecommendationService(
	repo repository.RecommendationRepository,
	companies repository.CompanyRepository,
	facts repository.FactReader,
	demand DemandService,
	cfg RecommendationConfig,
) RecommendationService {
	if cfg.Signal == "" {
		cfg.Signal = engine.SignalSales
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &recommendationService{repo: repo, companies: companies, facts: facts, demand: demand, cfg: cfg}
}

// RecomputeRecommendations rewrites the company's recommendation set from the
// current facts. Each product is written in its own transaction, so a
// cancelled run leaves every product either fully old or fully new. Existing
// rows are updated in place to keep the production commitments linked to them.
func (s *recommendationService) RecomputeRecommendations(ctx context.Context, companyID uuid.UUID) (RecomputeStats, error) {
	var stats RecomputeStats
	w, err := loadWindows(ctx, s.companies, companyID)
	if err != nil {
		return stats, err
	}

	products, err := s.facts.ProductsWithFacts(ctx, companyID)
	if err != nil {
		return stats, fmt.Errorf("list products: %w", err)
	}
	asOf := s.cfg.Now()

	for _, productID := range products {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Products++

		demand, err := s.demand.Aggregate(ctx, companyID, productID, w, asOf)
		if err != nil {
			return stats, err
		}
		rec := engine.Recommend(demand.Units(s.cfg.Signal), demand.OnHand.Total(), w, s.cfg.StockoutFloor)
		if rec.InsufficientData {
			log.Debug().
				Str("company_id", companyID.String()).
				Str("product_id", productID.String()).
				Int("on_hand", demand.OnHand.Total()).
				Msg("recommendations: no sales rate, days_left=0")
		}

		written, removed, err := s.store(ctx, companyID, productID, rec)
		if err != nil {
			return stats, fmt.Errorf("store recommendation for %s: %w", productID, err)
		}
		if written {
			stats.Written++
		}
		if removed {
			stats.Removed++
		}
	}

	// Products without any fact left are no longer recommended.
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.DeleteExceptTx(tx, companyID, products)
	}); err != nil {
		return stats, fmt.Errorf("prune recommendations: %w", err)
	}
	return stats, nil
}

func (s *recommendationService) store(ctx context.Context, companyID, productID uuid.UUID, rec engine.Recommendation) (written, removed bool, err error) {
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		existing, err := s.repo.FindByProductForUpdateTx(tx, companyID, productID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if !rec.Emit {
			if existing == nil {
				return nil
			}
			removed = true
			return s.repo.DeleteTx(tx, existing.ID)
		}
		if existing == nil {
			existing = &model.Recommendation{CompanyID: companyID, ProductID: productID}
		}
		existing.Quantity = rec.Quantity
		existing.DaysLeft = rec.DaysLeft
		written = true
		return s.repo.SaveTx(tx, existing)
	})
	return written, removed, err
}

func (s *recommendationService) List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) (dto.Page[dto.RecommendationResponse], error) {
	f.Normalize()
	rows, total, err := s.repo.List(ctx, companyID, f)
	if err != nil {
		return dto.Page[dto.RecommendationResponse]{}, err
	}
	out := make([]dto.RecommendationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, recommendationToResponse(&rows[i]))
	}
	return dto.NewPage(out, total, f), nil
}
