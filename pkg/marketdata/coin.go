// Package marketdata fetches coin market listings from a CoinGecko-compatible
// /coins/markets endpoint.
package marketdata

import (
	"encoding/json"
	"math"
	"time"
)

// Coin is one record of the /coins/markets listing. Nullable upstream
// fields are pointers.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  string `json:"image"`

	CurrentPrice             *float64 `json:"current_price"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	PriceChange24h           *float64 `json:"price_change_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`

	MarketCap                    *float64 `json:"market_cap"`
	MarketCapRank                *int     `json:"market_cap_rank"`
	MarketCapChange24h           *float64 `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h *float64 `json:"market_cap_change_percentage_24h"`
	FullyDilutedValuation        *float64 `json:"fully_diluted_valuation"`
	TotalVolume                  *float64 `json:"total_volume"`

	CirculatingSupply *float64 `json:"circulating_supply"`
	TotalSupply       *float64 `json:"total_supply"`
	MaxSupply         *float64 `json:"max_supply"`

	ATH                 *float64        `json:"ath"`
	ATHChangePercentage *float64        `json:"ath_change_percentage"`
	ATHDate             *time.Time      `json:"ath_date"`
	ATL                 *float64        `json:"atl"`
	ATLChangePercentage *float64        `json:"atl_change_percentage"`
	ATLDate             *time.Time      `json:"atl_date"`
	ROI                 json.RawMessage `json:"roi"`
	LastUpdated         *time.Time      `json:"last_updated"`
}

// RoundedInt rounds a nullable amount to the nearest integer. Zero and nil
// both yield nil, matching how the listing reports unknown amounts.
func RoundedInt(v *float64) *int64 {
	if v == nil || *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	r := int64(math.Round(*v))
	return &r
}

// HasROI reports whether the record carries a non-null roi object.
func (c Coin) HasROI() bool {
	return len(c.ROI) > 0 && string(c.ROI) != "null"
}
