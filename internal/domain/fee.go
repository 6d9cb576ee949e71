package domain

import "github.com/shopspring/decimal"

// FeeAssetBNB is the exchange's fee-discount asset. Commission charged
// in BNB is deducted from the BNB balance, not from the bought quantity.
const FeeAssetBNB = "BNB"

// feeMultiplier is 1 minus the non-discounted trading fee (0.1%).
var feeMultiplier = decimal.New(999, -3)

// AdjustForFee derives the sellable quantity after a buy fill.
// When the fill's commission was charged in BNB (and the caller has not
// opted out of that assumption via nonBNBFees), the bought quantity is
// intact; otherwise the fee came out of the bought asset itself.
func AdjustForFee(feeAsset string, sellAmount decimal.Decimal, nonBNBFees bool) decimal.Decimal {
	if feeAsset == FeeAssetBNB && !nonBNBFees {
		return sellAmount
	}
	return sellAmount.Mul(feeMultiplier)
}
