package api

import "github.com/deiragold/spotfeed/internal/model"

// SpotRates is the payload of GET /api/spot-rates/{adminID}: the commodity
// list plus the four spread values.
type SpotRates struct {
	Commodities []model.CommoditySpec
	Spreads     model.Spreads
}

// spotRatesResponse is the wire envelope. The spread fields sit flat next
// to the commodity list inside "info".
type spotRatesResponse struct {
	Info struct {
		Commodities []model.CommoditySpec `json:"commodities"`
		model.Spreads
	} `json:"info"`
}

// serverURLResponse is the wire envelope for GET /api/server-url.
type serverURLResponse struct {
	Info struct {
		ServerURL string `json:"serverURL"`
	} `json:"info"`
}

// newsResponse is the wire envelope for GET /api/news/{adminID}.
type newsResponse struct {
	News struct {
		News []model.NewsItem `json:"news"`
	} `json:"news"`
}
