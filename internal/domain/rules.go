package domain

import "github.com/shopspring/decimal"

// PairRules holds the exchange's conformance rules for one trading pair.
// Fetched once at startup, read-only for the life of the trade.
type PairRules struct {
	StepSize    decimal.Decimal `json:"step_size"`
	MinQty      decimal.Decimal `json:"min_qty"`
	TickSize    decimal.Decimal `json:"tick_size"`
	MinPrice    decimal.Decimal `json:"min_price"`
	MinNotional decimal.Decimal `json:"min_notional"`
}

// NormalizeQuantity rounds raw down to the nearest multiple of StepSize.
// Fails when the rounded quantity falls below MinQty.
func (r *PairRules) NormalizeQuantity(label string, raw decimal.Decimal) (decimal.Decimal, error) {
	qty := raw
	if r.StepSize.IsPositive() {
		qty = raw.Div(r.StepSize).Floor().Mul(r.StepSize)
	}
	if qty.LessThan(r.MinQty) {
		return decimal.Zero, &ConformanceError{Label: label, Value: qty, Min: r.MinQty, Rule: "quantity"}
	}
	return qty, nil
}

// NormalizePrice rounds raw to the nearest multiple of TickSize.
// Fails when the rounded price falls below MinPrice.
func (r *PairRules) NormalizePrice(label string, raw decimal.Decimal) (decimal.Decimal, error) {
	price := raw
	if r.TickSize.IsPositive() {
		price = raw.Div(r.TickSize).Round(0).Mul(r.TickSize)
	}
	if price.LessThan(r.MinPrice) {
		return decimal.Zero, &ConformanceError{Label: label, Value: price, Min: r.MinPrice, Rule: "price"}
	}
	return price, nil
}

// CheckNotional fails when price*qty falls below MinNotional.
// Exactly equal passes.
func (r *PairRules) CheckNotional(label string, price, qty decimal.Decimal) error {
	notional := price.Mul(qty)
	if notional.LessThan(r.MinNotional) {
		return &ConformanceError{Label: label, Value: notional, Min: r.MinNotional, Rule: "notional"}
	}
	return nil
}
