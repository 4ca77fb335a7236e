package engine

import "fmt"

// SignalKind selects which fact stream drives the sales rate.
type SignalKind string

const (
	SignalSales  SignalKind = "sales"
	SignalOrders SignalKind = "orders"
)

// ParseSignalKind validates a configured signal name.
func ParseSignalKind(s string) (SignalKind, error) {
	switch SignalKind(s) {
	case SignalSales, SignalOrders:
		return SignalKind(s), nil
	case "":
		return SignalSales, nil
	}
	return "", fmt.Errorf("unknown demand signal %q", s)
}

// OnHand is every unit of a product the company already holds or has coming.
type OnHand struct {
	Marketplace  int // latest stock per marketplace warehouse, summed
	Shelf        int
	Sorting      int
	InProduction int
}

// Total is the quantity netted against need.
func (o OnHand) Total() int {
	return o.Marketplace + o.Shelf + o.Sorting + o.InProduction
}

// Demand is the aggregated signal for one (company, product) over a window.
type Demand struct {
	Sold    int
	Ordered int
	OnHand  OnHand
}

// Units returns the unit count of the selected signal.
func (d Demand) Units(kind SignalKind) int {
	if kind == SignalOrders {
		return d.Ordered
	}
	return d.Sold
}
