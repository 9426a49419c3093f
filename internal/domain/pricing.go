package domain

// PricingConfig carries the flat pricing rules applied at order creation.
// Tax is a flat multiplier expressed in basis points; shipping is a flat
// amount waived at or above the free-shipping threshold.
type PricingConfig struct {
	TaxRateBasisPoints    int64
	ShippingFlat          int64
	FreeShippingThreshold int64
}

// LineTotal computes the extended amount for a quantity at a unit price.
func LineTotal(quantity, unitPrice int64) int64 {
	return quantity * unitPrice
}

// ComputeTotals derives order totals from frozen item snapshots. The subtotal
// is the sum of line totals, tax applies to the discounted subtotal, and the
// grand total is subtotal + shipping + tax - discount.
func ComputeTotals(items []OrderItem, discount int64, cfg PricingConfig) OrderTotals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal
	}
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	tax := taxable * cfg.TaxRateBasisPoints / 10000
	shipping := cfg.ShippingFlat
	if cfg.FreeShippingThreshold > 0 && taxable >= cfg.FreeShippingThreshold {
		shipping = 0
	}
	return OrderTotals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax - discount,
	}
}
