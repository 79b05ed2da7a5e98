package orders

import "github.com/JairHAM/pos-api/internal/config"

type Placement string

const (
	// PlacementImmediate creates orders COMPLETED and decrements stock at creation.
	PlacementImmediate Placement = config.PlacementImmediate
	// PlacementKitchen creates orders PENDING and leaves stock untouched.
	PlacementKitchen Placement = config.PlacementKitchen
)

type StockMode string

const (
	// StockBestEffort commits the order first, then decrements each line on its own.
	StockBestEffort StockMode = config.StockBestEffort
	// StockAtomic writes the order and every decrement in one transaction.
	StockAtomic StockMode = config.StockAtomic
)

type Policy struct {
	Placement             Placement
	StockMode             StockMode
	AllowNegativeStock    bool
	RequireTableNumber    bool
	StrictTransitions     bool
	RestockOnCancel       bool
	DecrementOnCompletion bool
	Pricing               PricingOptions
}

// DefaultPolicy mirrors the reference behaviour.
func DefaultPolicy() Policy {
	return Policy{
		Placement:          PlacementImmediate,
		StockMode:          StockBestEffort,
		AllowNegativeStock: true,
		Pricing:            PricingOptions{HonorPriceOverride: true},
	}
}

// PolicyFromConfig maps the environment configuration onto a Policy.
func PolicyFromConfig(c config.OrdersConfig) Policy {
	return Policy{
		Placement:             Placement(c.Placement),
		StockMode:             StockMode(c.StockMode),
		AllowNegativeStock:    c.AllowNegativeStock,
		RequireTableNumber:    c.RequireTableNumber,
		StrictTransitions:     c.StrictTransitions,
		RestockOnCancel:       c.RestockOnCancel,
		DecrementOnCompletion: c.DecrementOnCompletion,
		Pricing: PricingOptions{
			HonorPriceOverride:  c.HonorPriceOverride,
			DefaultTax:          c.DefaultTax,
			RejectNegativeTotal: c.RejectNegativeTotal,
		},
	}
}

func (p Policy) initialStatus() Status {
	if p.Placement == PlacementKitchen {
		return StatusPending
	}
	return StatusCompleted
}

func (p Policy) decrementsAtCreation() bool {
	return p.Placement != PlacementKitchen
}
