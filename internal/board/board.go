package board

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deiragold/spotfeed/internal/catalog"
	"github.com/deiragold/spotfeed/internal/model"
	"github.com/deiragold/spotfeed/internal/pricing"
)

// Quote symbols backing each metal class.
const (
	SymbolGold   = "GOLD"
	SymbolSilver = "SILVER"
)

// SpotPanel is one metal's spot display: spread-adjusted bid/ask plus the
// session high/low and the bid direction for coloring.
type SpotPanel struct {
	Metal     string             `json:"metal"`
	Bid       decimal.Decimal    `json:"bid"`
	Ask       decimal.Decimal    `json:"ask"`
	High      decimal.Decimal    `json:"high"`
	Low       decimal.Decimal    `json:"low"`
	Direction model.BidDirection `json:"direction"`
	Live      bool               `json:"live"`
}

// Row is one commodity line: display labels plus formatted retail prices.
type Row struct {
	Metal       string `json:"metal"`
	PurityLabel string `json:"purityLabel"`
	UnitText    string `json:"unitText"`
	Buy         string `json:"buy"`
	Sell        string `json:"sell"`
}

// Board is everything the display consumes in one cycle.
type Board struct {
	Gold          SpotPanel `json:"gold"`
	Silver        SpotPanel `json:"silver"`
	Rows          []Row     `json:"rows"`
	LimitExceeded bool      `json:"limitExceeded"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// Build assembles a Board from the current quotes and catalog. Pure: the
// inputs are not mutated and identical inputs yield an identical board
// (modulo GeneratedAt).
func Build(quotes map[string]model.Quote, snap catalog.Snapshot) Board {
	b := Board{
		Gold:          buildPanel("gold", quotes[SymbolGold], hasQuote(quotes, SymbolGold), snap.Spreads, model.ClassGold),
		Silver:        buildPanel("silver", quotes[SymbolSilver], hasQuote(quotes, SymbolSilver), snap.Spreads, model.ClassSilver),
		Rows:          make([]Row, 0, len(snap.Commodities)),
		LimitExceeded: snap.LimitExceeded,
		GeneratedAt:   time.Now(),
	}

	for _, spec := range snap.Commodities {
		b.Rows = append(b.Rows, buildRow(quotes, spec, snap.Spreads))
	}

	return b
}

func hasQuote(quotes map[string]model.Quote, symbol string) bool {
	_, ok := quotes[symbol]
	return ok
}

// buildPanel applies the metal's spread pair to the raw quote. This is the
// one place spreads are used; the commodity formula never sees them.
func buildPanel(metal string, q model.Quote, live bool, spreads model.Spreads, class model.MetalClass) SpotPanel {
	bidSpread, askSpread := spreads.ForClass(class)

	return SpotPanel{
		Metal:     metal,
		Bid:       decimal.NewFromFloat(q.Bid).Add(bidSpread).Round(2),
		Ask:       decimal.NewFromFloat(q.Ask).Add(askSpread).Round(2),
		High:      decimal.NewFromFloat(q.High).Round(2),
		Low:       decimal.NewFromFloat(q.Low).Round(2),
		Direction: direction(q, live),
		Live:      live,
	}
}

func direction(q model.Quote, live bool) model.BidDirection {
	if !live || q.BidChanged == "" {
		return model.BidNone
	}
	return q.BidChanged
}

// buildRow derives one commodity's retail prices from its class quote.
// Commodities of an unknown metal class price from a zero quote rather
// than being dropped, matching the permissive contract.
func buildRow(quotes map[string]model.Quote, spec model.CommoditySpec, spreads model.Spreads) Row {
	class := spec.Class()

	var raw pricing.BidAsk
	switch class {
	case model.ClassGold:
		q := quotes[SymbolGold]
		raw = pricing.NewBidAsk(q.Bid, q.Ask)
	case model.ClassSilver:
		q := quotes[SymbolSilver]
		raw = pricing.NewBidAsk(q.Bid, q.Ask)
	}

	bidSpread, askSpread := spreads.ForClass(class)
	price := pricing.Derive(raw, spec, pricing.Spread{Bid: bidSpread, Ask: askSpread})

	return Row{
		Metal:       DisplayName(spec.Metal),
		PurityLabel: PurityLabel(spec.Purity),
		UnitText:    strings.TrimSpace(string(spec.Unit) + " " + spec.WeightCode),
		Buy:         FormatPrice(price.Buy, spec.WeightCode),
		Sell:        FormatPrice(price.Sell, spec.WeightCode),
	}
}

// DisplayName collapses gold variants to "Gold" and capitalizes the rest.
func DisplayName(metal string) string {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(metal)), "-", " ") {
	case "gold", "gold kilobar", "gold ten tola":
		return "Gold"
	case "":
		return ""
	}
	m := strings.TrimSpace(metal)
	return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
}

// PurityLabel maps the common finenesses to karat labels; anything else
// shows the raw purity value.
func PurityLabel(purity model.Numeric) string {
	switch string(purity) {
	case "916":
		return "22K"
	case "875":
		return "21K"
	case "750":
		return "18K"
	}
	return string(purity)
}

// FormatPrice renders a derived price: two decimals for GM, whole AED
// otherwise.
func FormatPrice(v decimal.Decimal, weightCode string) string {
	if weightCode == "GM" {
		return v.StringFixed(2)
	}
	return v.Round(0).String()
}
