package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testRules() *PairRules {
	return &PairRules{
		StepSize:    decimal.RequireFromString("0.001"),
		MinQty:      decimal.RequireFromString("0.001"),
		TickSize:    decimal.RequireFromString("0.000001"),
		MinPrice:    decimal.RequireFromString("0.000001"),
		MinNotional: decimal.RequireFromString("0.0001"),
	}
}

func TestNormalizeQuantity(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"exact multiple unchanged", "1.234", "1.234", false},
		{"rounds down", "1.23456", "1.234", false},
		{"never rounds up", "0.9999", "0.999", false},
		{"below min after rounding", "0.0009", "", true},
		{"exactly min passes", "0.001", "0.001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.NormalizeQuantity("amount", decimal.RequireFromString(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				var ce *ConformanceError
				if !errors.As(err, &ce) {
					t.Fatalf("expected ConformanceError, got %T", err)
				}
				if ce.Rule != "quantity" {
					t.Errorf("expected quantity rule, got %s", ce.Rule)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"exact multiple unchanged", "0.001234", "0.001234", false},
		{"rounds to nearest down", "0.0012341", "0.001234", false},
		{"rounds to nearest up", "0.0012349", "0.001235", false},
		{"below min price", "0.0000001", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.NormalizePrice("price", decimal.RequireFromString(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCheckNotional(t *testing.T) {
	rules := testRules()

	// 0.01 * 0.01 = 0.0001, exactly MinNotional. Must pass.
	price := decimal.RequireFromString("0.01")
	qty := decimal.RequireFromString("0.01")
	if err := rules.CheckNotional("amount", price, qty); err != nil {
		t.Errorf("exactly-equal notional should pass: %v", err)
	}

	// One step below must fail.
	qty = decimal.RequireFromString("0.009")
	err := rules.CheckNotional("amount", price, qty)
	if err == nil {
		t.Fatal("expected notional failure")
	}
	var ce *ConformanceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConformanceError, got %T", err)
	}
	if ce.Rule != "notional" {
		t.Errorf("expected notional rule, got %s", ce.Rule)
	}
}

func TestZeroStepSkipsQuantization(t *testing.T) {
	rules := &PairRules{}

	raw := decimal.RequireFromString("1.23456789")
	got, err := rules.NormalizeQuantity("amount", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(raw) {
		t.Errorf("expected %s unchanged, got %s", raw, got)
	}
}
