package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intentRules() *PairRules {
	return &PairRules{
		StepSize:    dec("0.01"),
		MinQty:      dec("0.01"),
		TickSize:    dec("0.000001"),
		MinPrice:    dec("0.000001"),
		MinNotional: dec("0.0001"),
	}
}

func TestNormalizeRoundsEverything(t *testing.T) {
	intent := &TradeIntent{
		Pair:        "ETHBTC",
		Amount:      dec("1.23456"),
		BuyPrice:    decPtr("0.0312345678"),
		StopPrice:   decPtr("0.0299999999"),
		TargetPrice: decPtr("0.0350000004"),
	}

	if err := intent.Normalize(intentRules()); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if !intent.Amount.Equal(dec("1.23")) {
		t.Errorf("amount: expected 1.23, got %s", intent.Amount)
	}
	if !intent.BuyPrice.Equal(dec("0.031235")) {
		t.Errorf("buy price: expected 0.031235, got %s", intent.BuyPrice)
	}
	if !intent.StopPrice.Equal(dec("0.03")) {
		t.Errorf("stop price: expected 0.03, got %s", intent.StopPrice)
	}
	if !intent.TargetPrice.Equal(dec("0.035")) {
		t.Errorf("target price: expected 0.035, got %s", intent.TargetPrice)
	}
}

func TestNormalizeQuoteAmountDerivation(t *testing.T) {
	intent := &TradeIntent{
		Pair:        "ETHBTC",
		QuoteAmount: decPtr("0.1"),
		BuyPrice:    decPtr("0.04"),
		StopPrice:   decPtr("0.03"),
	}

	if err := intent.Normalize(intentRules()); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// 0.1 / 0.04 = 2.5, an exact step multiple.
	if !intent.Amount.Equal(dec("2.5")) {
		t.Errorf("expected derived amount 2.5, got %s", intent.Amount)
	}
}

func TestNormalizeRejectsTinyAmount(t *testing.T) {
	intent := &TradeIntent{
		Pair:      "ETHBTC",
		Amount:    dec("0.001"),
		StopPrice: decPtr("0.03"),
	}

	err := intent.Normalize(intentRules())
	if err == nil {
		t.Fatal("expected conformance failure")
	}
	var ce *ConformanceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConformanceError, got %T", err)
	}
}

func TestNormalizeScaleOutRemainder(t *testing.T) {
	// The 0.01 remainder left for the stop is worth less than the
	// minimum notional at the stop limit: reject up front rather than
	// failing at the stop re-placement.
	intent := &TradeIntent{
		Pair:           "ETHBTC",
		Amount:         dec("10"),
		StopPrice:      decPtr("0.005"),
		TargetPrice:    decPtr("0.04"),
		ScaleOutAmount: decPtr("9.99"),
	}

	err := intent.Normalize(intentRules())
	if err == nil {
		t.Fatal("expected remainder conformance failure")
	}
}

func TestNormalizeScaleOutValid(t *testing.T) {
	intent := &TradeIntent{
		Pair:           "ETHBTC",
		Amount:         dec("10"),
		StopPrice:      decPtr("0.03"),
		TargetPrice:    decPtr("0.04"),
		ScaleOutAmount: decPtr("4"),
	}

	if err := intent.Normalize(intentRules()); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !intent.TargetSellAmount().Equal(dec("4")) {
		t.Errorf("expected target sell amount 4, got %s", intent.TargetSellAmount())
	}
}

func TestNormalizeCancelPriceSkipsNotional(t *testing.T) {
	// The cancel price never trades. A price that would fail the
	// notional check as an order price is still a valid cancel trigger.
	intent := &TradeIntent{
		Pair:        "ETHBTC",
		Amount:      dec("0.01"),
		BuyPrice:    decPtr("0.04"),
		StopPrice:   decPtr("0.03"),
		CancelPrice: decPtr("0.000002"),
	}

	if err := intent.Normalize(intentRules()); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !intent.CancelPrice.Equal(dec("0.000002")) {
		t.Errorf("expected cancel price 0.000002, got %s", intent.CancelPrice)
	}
}

func TestEffectiveLimitDefaults(t *testing.T) {
	intent := &TradeIntent{
		BuyPrice:  decPtr("0.04"),
		StopPrice: decPtr("0.03"),
	}
	if !intent.EffectiveBuyLimit().Equal(dec("0.04")) {
		t.Errorf("buy limit should default to buy price")
	}
	if !intent.EffectiveStopLimit().Equal(dec("0.03")) {
		t.Errorf("stop limit should default to stop price")
	}

	intent.BuyLimitPrice = decPtr("0.041")
	intent.StopLimitPrice = decPtr("0.029")
	if !intent.EffectiveBuyLimit().Equal(dec("0.041")) {
		t.Errorf("explicit buy limit should win")
	}
	if !intent.EffectiveStopLimit().Equal(dec("0.029")) {
		t.Errorf("explicit stop limit should win")
	}
}
