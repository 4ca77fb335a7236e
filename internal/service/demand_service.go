package service

import (
	"context"
	"fmt"
	"time"

	"marketstock/internal/engine"
	"marketstock/internal/repository"

	"github.com/google/uuid"
)

// DemandService aggregates the demand signal of one product.
type DemandService interface {
	// Aggregate counts sales and orders over the trailing window ending at
	// asOf and composes on-hand stock from every stage that holds the product.
	Aggregate(ctx context.Context, companyID, productID uuid.UUID, w engine.Windows, asOf time.Time) (engine.Demand, error)
}

type demandService struct {
	facts repository.FactReader
	flow  repository.FlowRepository
}

func NewDemandService(facts repository.FactReader, flow repository.FlowRepository) DemandService {
	return &demandService{facts: facts, flow: flow}
}

func (s *demandService) Aggregate(ctx context.Context, companyID, productID uuid.UUID, w engine.Windows, asOf time.Time) (engine.Demand, error) {
	q := repository.FactQuery{
		CompanyID: companyID,
		ProductID: productID,
		From:      windowStart(asOf, w.LastSaleDays),
		To:        asOf,
	}
	sold, err := s.facts.CountSales(ctx, q)
	if err != nil {
		return engine.Demand{}, fmt.Errorf("count sales: %w", err)
	}
	ordered, err := s.facts.CountOrders(ctx, q)
	if err != nil {
		return engine.Demand{}, fmt.Errorf("count orders: %w", err)
	}
	marketplace, err := s.facts.LatestStock(ctx, repository.StockQuery{
		CompanyID: companyID,
		ProductID: productID,
		AsOf:      asOf,
	})
	if err != nil {
		return engine.Demand{}, fmt.Errorf("latest stock: %w", err)
	}
	held, err := s.flow.OnHand(ctx, companyID, productID)
	if err != nil {
		return engine.Demand{}, fmt.Errorf("flow stock: %w", err)
	}

	return engine.Demand{
		Sold:    sold,
		Ordered: ordered,
		OnHand: engine.OnHand{
			Marketplace:  marketplace,
			Shelf:        held.Shelf,
			Sorting:      held.Sorting,
			InProduction: held.InProduction,
		},
	}, nil
}

// windowStart is the first day of a trailing window of days ending at asOf.
func windowStart(asOf time.Time, days int) time.Time {
	if days < 0 {
		days = 0
	}
	return asOf.AddDate(0, 0, -days)
}
