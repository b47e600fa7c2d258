package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"
)

// coinUpdateColumns are overwritten on conflict. created_at keeps the
// first insert time.
var coinUpdateColumns = []string{
	"symbol", "name", "image", "current_price", "market_cap", "market_cap_rank",
	"fully_diluted_valuation", "total_volume", "high_24h", "low_24h",
	"price_change_24h", "price_change_percentage_24h", "market_cap_change_24h",
	"market_cap_change_percentage_24h", "circulating_supply", "total_supply",
	"max_supply", "ath", "ath_change_percentage", "ath_date", "atl",
	"atl_change_percentage", "atl_date", "roi", "last_updated", "updated_at",
}

// UpsertCoin inserts coin or updates the existing row with the same id.
func (s *Store) UpsertCoin(ctx context.Context, coin *Coin) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(coinUpdateColumns),
	}).Create(coin).Error
	if err != nil {
		return fmt.Errorf("upsert coin %s: %w", coin.ID, err)
	}
	return nil
}

// UpsertCoins upserts each coin and returns the number stored. A failing
// coin does not stop the rest; failures are returned per coin id.
func (s *Store) UpsertCoins(ctx context.Context, coins []Coin) (int, map[string]error) {
	stored := 0
	failed := make(map[string]error)
	for i := range coins {
		if err := s.UpsertCoin(ctx, &coins[i]); err != nil {
			failed[coins[i].ID] = err
			continue
		}
		stored++
	}
	return stored, failed
}

// ListCoins returns coins ordered by market cap rank.
func (s *Store) ListCoins(ctx context.Context, offset, limit int) ([]Coin, error) {
	var coins []Coin
	err := s.db.WithContext(ctx).
		Order("market_cap_rank ASC NULLS LAST").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&coins).Error
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	return coins, nil
}

// CountCoins returns the number of stored coins.
func (s *Store) CountCoins(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Coin{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count coins: %w", err)
	}
	return n, nil
}

// TopCoins returns the coins ranked 1 to n.
func (s *Store) TopCoins(ctx context.Context, n int) ([]Coin, error) {
	var coins []Coin
	err := s.db.WithContext(ctx).
		Where("market_cap_rank BETWEEN ? AND ?", 1, n).
		Order("market_cap_rank").
		Find(&coins).Error
	if err != nil {
		return nil, fmt.Errorf("top coins: %w", err)
	}
	return coins, nil
}

// GetCoin returns the coin with id, or ErrNotFound.
func (s *Store) GetCoin(ctx context.Context, id string) (*Coin, error) {
	var coin Coin
	if err := s.db.WithContext(ctx).First(&coin, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &coin, nil
}
