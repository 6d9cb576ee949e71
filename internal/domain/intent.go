package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TradeIntent is the declarative description of one OCO trade.
// Optional prices are nil when not requested; a non-nil zero BuyPrice
// means a market entry. Immutable once Normalize has run.
type TradeIntent struct {
	Pair           string
	Amount         decimal.Decimal
	QuoteAmount    *decimal.Decimal // Amount derived as QuoteAmount/BuyPrice when both set
	BuyPrice       *decimal.Decimal
	BuyLimitPrice  *decimal.Decimal
	StopPrice      *decimal.Decimal
	StopLimitPrice *decimal.Decimal
	TargetPrice    *decimal.Decimal
	ScaleOutAmount *decimal.Decimal
	CancelPrice    *decimal.Decimal
	NonBNBFees     bool
}

// EffectiveBuyLimit returns the limit price of a stop-entry buy,
// defaulting to the trigger price.
func (i *TradeIntent) EffectiveBuyLimit() decimal.Decimal {
	if i.BuyLimitPrice != nil {
		return *i.BuyLimitPrice
	}
	return *i.BuyPrice
}

// EffectiveStopLimit returns the limit price of the stop-loss order,
// defaulting to the trigger price.
func (i *TradeIntent) EffectiveStopLimit() decimal.Decimal {
	if i.StopLimitPrice != nil {
		return *i.StopLimitPrice
	}
	return *i.StopPrice
}

// TargetSellAmount returns the quantity the target leg sells,
// defaulting to the full amount when no scale-out is requested.
func (i *TradeIntent) TargetSellAmount() decimal.Decimal {
	if i.ScaleOutAmount != nil {
		return *i.ScaleOutAmount
	}
	return i.Amount
}

// Normalize rounds and validates every quantity and price of the intent
// against the pair's conformance rules, in place. Any failure here is
// fatal and precedes any order placement.
func (i *TradeIntent) Normalize(rules *PairRules) error {
	if i.Pair == "" {
		return errors.New("trading pair is required")
	}

	// Amount may be given in quote currency; convert before rounding.
	if i.QuoteAmount != nil && i.BuyPrice != nil && i.BuyPrice.IsPositive() {
		i.Amount = i.QuoteAmount.Div(*i.BuyPrice)
	}

	amount, err := rules.NormalizeQuantity("amount", i.Amount)
	if err != nil {
		return err
	}
	i.Amount = amount

	if i.ScaleOutAmount != nil {
		scaleOut, err := rules.NormalizeQuantity("scale-out amount", *i.ScaleOutAmount)
		if err != nil {
			return err
		}
		i.ScaleOutAmount = &scaleOut
	}

	if i.BuyPrice != nil && i.BuyPrice.IsPositive() {
		if err := i.normalizePrice(rules, "buy price", &i.BuyPrice, i.Amount); err != nil {
			return err
		}
		if i.BuyLimitPrice != nil {
			if err := i.normalizePrice(rules, "buy limit price", &i.BuyLimitPrice, i.Amount); err != nil {
				return err
			}
		}
	}

	if i.StopPrice != nil {
		if err := i.normalizePrice(rules, "stop price", &i.StopPrice, i.Amount); err != nil {
			return err
		}
		if i.StopLimitPrice != nil {
			if err := i.normalizePrice(rules, "stop limit price", &i.StopLimitPrice, i.Amount); err != nil {
				return err
			}
		}
	}

	if i.TargetPrice != nil {
		if err := i.normalizePrice(rules, "target price", &i.TargetPrice, i.TargetSellAmount()); err != nil {
			return err
		}
	}

	// The cancel price never trades; round it but skip the notional check.
	if i.CancelPrice != nil {
		cancel, err := rules.NormalizePrice("cancel price", *i.CancelPrice)
		if err != nil {
			return err
		}
		i.CancelPrice = &cancel
	}

	// A scale-out that leaves a stop-protected remainder must leave a
	// remainder the exchange will accept.
	if i.ScaleOutAmount != nil && i.StopPrice != nil {
		remainder := i.Amount.Sub(*i.ScaleOutAmount)
		if remainder.IsPositive() {
			if _, err := rules.NormalizeQuantity("stop remainder", remainder); err != nil {
				return err
			}
			if err := rules.CheckNotional("stop remainder", i.EffectiveStopLimit(), remainder); err != nil {
				return err
			}
		}
	}

	return nil
}

func (i *TradeIntent) normalizePrice(rules *PairRules, label string, price **decimal.Decimal, qty decimal.Decimal) error {
	p, err := rules.NormalizePrice(label, **price)
	if err != nil {
		return err
	}
	if err := rules.CheckNotional(label, p, qty); err != nil {
		return err
	}
	*price = &p
	return nil
}
