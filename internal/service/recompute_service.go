package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RecomputeReport collects the per-stage stats of one company recompute.
type RecomputeReport struct {
	CompanyID       uuid.UUID      `json:"company_id"`
	Recommendations RecomputeStats `json:"recommendations"`
	Supplier        RecomputeStats `json:"supplier"`
	Priority        RecomputeStats `json:"priority"`
	Duration        time.Duration  `json:"duration"`
}

// RecomputeService runs the full recompute of one company.
type RecomputeService interface {
	// RecomputeAll runs recommendations, supplier shipments and priority in
	// that order. Priority reads the supplier rows written by the same run.
	RecomputeAll(ctx context.Context, companyID uuid.UUID) (*RecomputeReport, error)
}

type recomputeService struct {
	recommendations RecommendationService
	supplier        SupplierService
	priority        PriorityService
}

func NewRecomputeService(recs RecommendationService, supplier SupplierService, priority PriorityService) RecomputeService {
	return &recomputeService{recommendations: recs, supplier: supplier, priority: priority}
}

func (s *recomputeService) RecomputeAll(ctx context.Context, companyID uuid.UUID) (*RecomputeReport, error) {
	start := time.Now()
	report := &RecomputeReport{CompanyID: companyID}

	stages := []struct {
		name string
		run  func(context.Context, uuid.UUID) (RecomputeStats, error)
		out  *RecomputeStats
	}{
		{"recommendations", s.recommendations.RecomputeRecommendations, &report.Recommendations},
		{"supplier", s.supplier.RecomputeSupplierShipments, &report.Supplier},
		{"priority", s.priority.RecomputePriority, &report.Priority},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stageStart := time.Now()
		stats, err := st.run(ctx, companyID)
		*st.out = stats
		if err != nil {
			log.Error().
				Err(err).
				Str("company_id", companyID.String()).
				Str("stage", st.name).
				Dur("duration", time.Since(stageStart)).
				Msg("recompute: stage failed")
			return report, fmt.Errorf("recompute %s: %w", st.name, err)
		}
		log.Info().
			Str("company_id", companyID.String()).
			Str("stage", st.name).
			Int("products", stats.Products).
			Int("written", stats.Written).
			Int("removed", stats.Removed).
			Int("skipped", stats.Skipped).
			Dur("duration", time.Since(stageStart)).
			Msg("recompute: stage done")
	}

	report.Duration = time.Since(start)
	return report, nil
}
