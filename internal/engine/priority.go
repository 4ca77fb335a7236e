package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketstock/internal/model"
)

var hundred = decimal.NewFromInt(100)

// WarehouseKey identifies a marketplace warehouse in the ranking.
type WarehouseKey struct {
	WarehouseID uuid.UUID
	Marketplace model.MarketplaceType
}

// Priority is the ranking row of one warehouse.
type Priority struct {
	Key              WarehouseKey
	Sales            int
	Shipments        int
	SalesShare       decimal.Decimal
	ShipmentsShare   decimal.Decimal
	ShippingPriority decimal.Decimal
}

// RankPriorities compares each warehouse's share of sold products with its
// share of recommended shipment volume. Only warehouses with sales are ranked.
// Any zero share yields a zero priority instead of a division.
// The result is ordered by ascending priority: the most under-served warehouse first.
func RankPriorities(sales, shipments map[WarehouseKey]int) []Priority {
	totalSales, totalShipments := 0, 0
	for _, n := range sales {
		totalSales += n
	}
	for _, n := range shipments {
		totalShipments += n
	}

	out := make([]Priority, 0, len(sales))
	for key, sold := range sales {
		p := Priority{
			Key:            key,
			Sales:          sold,
			Shipments:      shipments[key],
			SalesShare:     share(sold, totalSales),
			ShipmentsShare: share(shipments[key], totalShipments),
		}
		if p.SalesShare.IsPositive() {
			p.ShippingPriority = p.ShipmentsShare.Div(p.SalesShare).Round(4)
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ShippingPriority.Equal(out[j].ShippingPriority) {
			return out[i].ShippingPriority.LessThan(out[j].ShippingPriority)
		}
		if out[i].Sales != out[j].Sales {
			return out[i].Sales > out[j].Sales
		}
		return out[i].Key.WarehouseID.String() < out[j].Key.WarehouseID.String()
	})
	return out
}

func share(part, total int) decimal.Decimal {
	if total <= 0 || part <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(total))).Mul(hundred).Round(4)
}
