package store

import (
	"context"
	"fmt"
)

// AddBookmark bookmarks coinID for userID. The coin must exist; a second
// bookmark for the same coin yields ErrDuplicate.
func (s *Store) AddBookmark(ctx context.Context, userID uint, coinID string) (*Bookmark, error) {
	coin, err := s.GetCoin(ctx, coinID)
	if err != nil {
		return nil, err
	}

	bookmark := Bookmark{UserID: userID, CoinID: coin.ID}
	if err := s.db.WithContext(ctx).Create(&bookmark).Error; err != nil {
		return nil, translate(err)
	}
	bookmark.Coin = *coin
	return &bookmark, nil
}

// RemoveBookmark deletes a bookmark, or returns ErrNotFound.
func (s *Store) RemoveBookmark(ctx context.Context, userID uint, coinID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND coin_id = ?", userID, coinID).
		Delete(&Bookmark{})
	if res.Error != nil {
		return fmt.Errorf("remove bookmark: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BookmarkedCoins returns the coins userID has bookmarked, newest first.
func (s *Store) BookmarkedCoins(ctx context.Context, userID uint) ([]Coin, error) {
	var coins []Coin
	err := s.db.WithContext(ctx).
		Joins("JOIN bookmarks ON bookmarks.coin_id = coins.id").
		Where("bookmarks.user_id = ?", userID).
		Order("bookmarks.created_at DESC").
		Find(&coins).Error
	if err != nil {
		return nil, fmt.Errorf("bookmarked coins: %w", err)
	}
	return coins, nil
}
