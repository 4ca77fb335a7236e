// Package engine holds the replenishment arithmetic: canonical product
// resolution, on-hand composition, the recommendation formula, per-warehouse
// shortfalls and the shipping-priority ranking. Nothing here touches storage.
package engine

import (
	"github.com/google/uuid"

	"marketstock/internal/model"
)

// ResolveCanonical picks the listing that facts for (barcode, mp) are booked
// against. A Wildberries listing with the same barcode wins; otherwise the
// listing of the requested marketplace is its own canonical product.
// Returns false when no listing carries the barcode.
func ResolveCanonical(listings []model.Product, barcode string, mp model.MarketplaceType) (uuid.UUID, bool) {
	var own, first uuid.UUID
	for _, p := range listings {
		if p.Barcode != barcode {
			continue
		}
		if p.MarketplaceType == model.MarketplaceWildberries {
			return p.ID, true
		}
		if p.MarketplaceType == mp {
			own = p.ID
		}
		if first == uuid.Nil {
			first = p.ID
		}
	}
	if own != uuid.Nil {
		return own, true
	}
	if first != uuid.Nil {
		return first, true
	}
	return uuid.Nil, false
}
