package ingest

import (
	"github.com/shopspring/decimal"

	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/marketdata"
)

// ToStoreCoin maps a market record to its stored row. Market cap, its 24h
// change, fully diluted valuation and volume are rounded to integers.
func ToStoreCoin(c marketdata.Coin) store.Coin {
	coin := store.Coin{
		ID:     c.ID,
		Symbol: c.Symbol,
		Name:   c.Name,

		CurrentPrice:             nullDecimal(c.CurrentPrice),
		High24h:                  nullDecimal(c.High24h),
		Low24h:                   nullDecimal(c.Low24h),
		PriceChange24h:           nullDecimal(c.PriceChange24h),
		PriceChangePercentage24h: nullDecimal(c.PriceChangePercentage24h),

		MarketCap:                    marketdata.RoundedInt(c.MarketCap),
		MarketCapRank:                c.MarketCapRank,
		MarketCapChange24h:           marketdata.RoundedInt(c.MarketCapChange24h),
		MarketCapChangePercentage24h: nullDecimal(c.MarketCapChangePercentage24h),
		FullyDilutedValuation:        marketdata.RoundedInt(c.FullyDilutedValuation),
		TotalVolume:                  marketdata.RoundedInt(c.TotalVolume),

		CirculatingSupply: nullDecimal(c.CirculatingSupply),
		TotalSupply:       nullDecimal(c.TotalSupply),
		MaxSupply:         nullDecimal(c.MaxSupply),

		ATH:                 nullDecimal(c.ATH),
		ATHChangePercentage: nullDecimal(c.ATHChangePercentage),
		ATHDate:             c.ATHDate,
		ATL:                 nullDecimal(c.ATL),
		ATLChangePercentage: nullDecimal(c.ATLChangePercentage),
		ATLDate:             c.ATLDate,
		LastUpdated:         c.LastUpdated,
	}
	if c.Image != "" {
		image := c.Image
		coin.Image = &image
	}
	if c.HasROI() {
		coin.ROI = store.RawJSON(c.ROI)
	}
	return coin
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}
