package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BidDirection classifies how a symbol's bid moved relative to the
// previously stored quote. Used by the display layer for coloring.
type BidDirection string

const (
	BidUp   BidDirection = "up"
	BidDown BidDirection = "down"
	BidNone BidDirection = "none"
)

// Quote is the latest known market snapshot for one symbol. A Quote exists
// only after at least one valid feed message for that symbol; it is replaced
// wholesale on every subsequent message and never deleted while the process
// lives.
type Quote struct {
	Symbol     string
	Bid        float64
	Ask        float64
	High       float64
	Low        float64
	BidChanged BidDirection
	ReceivedAt time.Time

	// Extra carries feed fields we don't model, passed through opaquely.
	Extra map[string]json.RawMessage
}

// QuoteUpdate is one incoming feed event. Nil pointer fields were absent
// from the wire message and must not overwrite stored values.
type QuoteUpdate struct {
	Symbol     string
	Bid        *float64
	Ask        *float64
	High       *float64
	Low        *float64
	ReceivedAt time.Time
	Extra      map[string]json.RawMessage
}

// quoteUpdateWire mirrors the known feed fields for decoding.
type quoteUpdateWire struct {
	Symbol string   `json:"symbol"`
	Bid    *float64 `json:"bid"`
	Ask    *float64 `json:"ask"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
}

// UnmarshalJSON decodes the known fields and keeps everything else raw so
// unknown feed fields survive the merge.
func (u *QuoteUpdate) UnmarshalJSON(data []byte) error {
	var wire quoteUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "symbol")
	delete(all, "bid")
	delete(all, "ask")
	delete(all, "high")
	delete(all, "low")

	u.Symbol = wire.Symbol
	u.Bid = wire.Bid
	u.Ask = wire.Ask
	u.High = wire.High
	u.Low = wire.Low
	if len(all) > 0 {
		u.Extra = all
	}
	return nil
}

// Numeric is a permissively parsed number. Admin-entered commodity fields
// arrive as JSON strings or numbers; anything missing or unparseable counts
// as zero rather than failing.
type Numeric string

// UnmarshalJSON accepts a JSON number, string, null, or bool and stores the
// raw text form.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(str))
		return nil
	}
	*n = Numeric(s)
	return nil
}

// MarshalJSON renders the stored text as a JSON string.
func (n Numeric) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

// Decimal returns the parsed value, or zero when empty or unparseable.
func (n Numeric) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Float returns the parsed value as float64, or 0.
func (n Numeric) Float() float64 {
	f, _ := n.Decimal().Float64()
	return f
}

// MetalClass groups commodities by the quote symbol that prices them.
type MetalClass string

const (
	ClassGold    MetalClass = "gold"
	ClassSilver  MetalClass = "silver"
	ClassUnknown MetalClass = ""
)

// CommoditySpec is one configured sellable item, supplied by the spot-rates
// collaborator. The core only consumes it.
type CommoditySpec struct {
	Metal       string  `json:"metal"`
	Unit        Numeric `json:"unit"`
	WeightCode  string  `json:"weight"`
	Purity      Numeric `json:"purity"`
	BuyCharge   Numeric `json:"buyCharge"`
	SellCharge  Numeric `json:"sellCharge"`
	BuyPremium  Numeric `json:"buyPremium"`
	SellPremium Numeric `json:"sellPremium"`
}

// Class maps the metal name to its pricing class. Matching is
// case-insensitive and tolerates hyphen or space separators
// ("gold kilobar" and "gold-kilobar" are the same item).
func (c CommoditySpec) Class() MetalClass {
	metal := strings.ToLower(strings.TrimSpace(c.Metal))
	metal = strings.ReplaceAll(metal, "-", " ")
	switch metal {
	case "gold", "gold kilobar", "gold ten tola":
		return ClassGold
	case "silver":
		return ClassSilver
	}
	return ClassUnknown
}

// Spreads are the per-metal-class bid/ask offsets configured alongside the
// commodity list. They are display adjustments: never folded into the
// derived-price formula.
type Spreads struct {
	GoldBid   Numeric `json:"goldBidSpread"`
	GoldAsk   Numeric `json:"goldAskSpread"`
	SilverBid Numeric `json:"silverBidSpread"`
	SilverAsk Numeric `json:"silverAskSpread"`
}

// ForClass returns the bid/ask spread pair for a metal class. Unknown
// classes get zero spreads.
func (s Spreads) ForClass(class MetalClass) (bid, ask decimal.Decimal) {
	switch class {
	case ClassGold:
		return s.GoldBid.Decimal(), s.GoldAsk.Decimal()
	case ClassSilver:
		return s.SilverBid.Decimal(), s.SilverAsk.Decimal()
	}
	return decimal.Zero, decimal.Zero
}

// DerivedPrice is a computed retail price pair. Ephemeral: recomputed on
// every quote or catalog change, never stored.
type DerivedPrice struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// NewsItem is one headline from the news collaborator. Consumed only by the
// display layer.
type NewsItem struct {
	ID   string `json:"_id"`
	Text string `json:"news"`
}
