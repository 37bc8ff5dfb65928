package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/deiragold/spotfeed/internal/model"
)

// Fixed business constants, not configuration.
var (
	// troyOunceGrams converts USD/troy-ounce to USD/gram.
	troyOunceGrams = decimal.RequireFromString("31.103")

	// usdToAED is the fixed USD→AED rate used by the shop.
	usdToAED = decimal.RequireFromString("3.674")
)

// weightFactors maps a weight code to its grams-equivalent multiplier.
// Unknown codes fall back to 1, not an error.
var weightFactors = map[string]decimal.Decimal{
	"GM":   decimal.NewFromInt(1),
	"KG":   decimal.NewFromInt(1000),
	"TTB":  decimal.RequireFromString("116.64"),
	"TOLA": decimal.RequireFromString("11.664"),
	"OZ":   decimal.RequireFromString("31.1034768"),
}

// BidAsk is the raw side pair taken from a symbol's quote.
type BidAsk struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// NewBidAsk converts raw float quote sides to exact decimals.
func NewBidAsk(bid, ask float64) BidAsk {
	return BidAsk{
		Bid: decimal.NewFromFloat(bid),
		Ask: decimal.NewFromFloat(ask),
	}
}

// Spread is the externally configured bid/ask offset for a metal class.
// Derive accepts it as part of the pricing contract but does not fold it
// into the formula; callers apply it independently (the spot panel does).
type Spread struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// UnitMultiplier resolves a weight code to its grams-equivalent factor.
func UnitMultiplier(weightCode string) decimal.Decimal {
	if f, ok := weightFactors[weightCode]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

// PurityPower normalizes a purity value into a scaling factor by dividing
// it by 10^(character count of its printed form): 916 → 0.916, 75 → 0.75.
// Missing, unparseable, or zero purity yields 1.
//
// The character count intentionally includes any decimal point or sign,
// reproducing the long-standing behavior the admin data was entered
// against. Do not "fix" this without a product decision.
func PurityPower(purity model.Numeric) decimal.Decimal {
	p := purity.Decimal()
	if p.IsZero() {
		return decimal.NewFromInt(1)
	}
	digits := len(p.String())
	return p.Div(decimal.New(1, int32(digits)))
}

// Derive computes the retail buy/sell price for one commodity from a raw
// quote. Pure and deterministic: identical inputs always yield identical
// outputs.
//
// Premiums adjust the raw USD/oz sides before conversion; charges are added
// in AED after conversion. GM prices round to 2 decimals, everything else
// to the nearest integer.
func Derive(q BidAsk, spec model.CommoditySpec, spread Spread) model.DerivedPrice {
	unitFactor := UnitMultiplier(spec.WeightCode)
	power := PurityPower(spec.Purity)
	unit := spec.Unit.Decimal()

	biddingValue := q.Bid.Add(spec.BuyPremium.Decimal())
	askingValue := q.Ask.Add(spec.SellPremium.Decimal())

	biddingPrice := biddingValue.Div(troyOunceGrams).Mul(usdToAED)
	askingPrice := askingValue.Div(troyOunceGrams).Mul(usdToAED)

	buy := biddingPrice.Mul(unitFactor).Mul(unit).Mul(power).Add(spec.BuyCharge.Decimal())
	sell := askingPrice.Mul(unitFactor).Mul(unit).Mul(power).Add(spec.SellCharge.Decimal())

	return model.DerivedPrice{
		Buy:  Round(buy, spec.WeightCode),
		Sell: Round(sell, spec.WeightCode),
	}
}

// Round applies the display rounding rule: 2 decimals for GM, nearest
// integer otherwise.
func Round(v decimal.Decimal, weightCode string) decimal.Decimal {
	if weightCode == "GM" {
		return v.Round(2)
	}
	return v.Round(0)
}
