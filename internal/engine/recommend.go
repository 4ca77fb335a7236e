package engine

import "github.com/shopspring/decimal"

// DefaultStockoutFloor is emitted for a product with nothing on hand and no
// usable sales history.
const DefaultStockoutFloor = 30

// Windows are a company's trailing (LastSaleDays) and forward (NextSaleDays)
// windows in days.
type Windows struct {
	LastSaleDays int
	NextSaleDays int
}

// Recommendation is the outcome of the replenishment formula for one product.
type Recommendation struct {
	AvgPerDay decimal.Decimal
	DaysLeft  int
	Need      int
	Quantity  int
	// Emit is false when nothing should be stored for the product.
	Emit bool
	// InsufficientData marks a product with no sales rate; DaysLeft is 0.
	InsufficientData bool
}

// PerDay is units / days, zero when days is not positive.
func PerDay(units, days int) decimal.Decimal {
	if days <= 0 || units <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(units)).Div(decimal.NewFromInt(int64(days)))
}

// DaysLeft is floor(available / perDay), zero when the rate is zero.
func DaysLeft(available int, perDay decimal.Decimal) int {
	if !perDay.IsPositive() || available <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(available)).Div(perDay).Floor().IntPart())
}

// Recommend applies the replenishment formula:
//
//	avg  = units / L
//	days = floor(onHand / avg)
//	need = round(avg * N)
//	qty  = need - onHand
//
// A row is emitted when qty > 0 or on a total stockout. A stockout whose
// formula yields nothing (no sales history) gets the floor quantity.
func Recommend(units, onHand int, w Windows, floor int) Recommendation {
	avg := PerDay(units, w.LastSaleDays)
	r := Recommendation{
		AvgPerDay:        avg,
		DaysLeft:         DaysLeft(onHand, avg),
		InsufficientData: avg.IsZero(),
	}
	if w.NextSaleDays > 0 {
		r.Need = int(avg.Mul(decimal.NewFromInt(int64(w.NextSaleDays))).Round(0).IntPart())
	}
	r.Quantity = r.Need - onHand

	switch {
	case r.Quantity > 0:
		r.Emit = true
	case onHand == 0:
		r.Quantity = floor
		r.Emit = floor > 0
	}
	return r
}
