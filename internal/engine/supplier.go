package engine

import "github.com/shopspring/decimal"

// Availability is what already covers a marketplace warehouse's need.
type Availability struct {
	Sorting        int
	WarehouseStock int // latest snapshot at the matching stock warehouse
	Shelf          int
}

// Total sums every source.
func (a Availability) Total() int { return a.Sorting + a.WarehouseStock + a.Shelf }

// Shortfall is the per-warehouse shipment need for one product.
type Shortfall struct {
	PerDay     decimal.Decimal
	Need       int
	Available  int
	DaysLeft   int
	Difference int
}

// Short reports whether the warehouse needs a shipment.
func (s Shortfall) Short() bool { return s.Difference > 0 }

// ComputeShortfall projects the warehouse's sales rate over the forward window
// (floored) and subtracts everything already available.
func ComputeShortfall(sales int, avail Availability, w Windows) Shortfall {
	perDay := PerDay(sales, w.LastSaleDays)
	s := Shortfall{
		PerDay:    perDay,
		Available: avail.Total(),
	}
	if w.NextSaleDays > 0 {
		s.Need = int(perDay.Mul(decimal.NewFromInt(int64(w.NextSaleDays))).Floor().IntPart())
	}
	s.DaysLeft = DaysLeft(s.Available, perDay)
	s.Difference = s.Need - s.Available
	return s
}

// Accumulate merges a new shortfall into a stored (quantity, daysLeft) pair
// without ever lowering it: when the stored quantity is below the new
// difference both values grow by the new figures, otherwise they are kept.
func Accumulate(quantity, daysLeft int, s Shortfall) (int, int, bool) {
	if quantity-s.Difference >= 0 {
		return quantity, daysLeft, false
	}
	return quantity + s.Difference, daysLeft + s.DaysLeft, true
}
