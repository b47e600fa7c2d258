package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sternrassler/cryptomark/pkg/pagination"
)

// History page size bounds.
const (
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 100
)

// TradeResult summarises an executed trade.
type TradeResult struct {
	CoinID       string          `json:"coin_id"`
	CoinName     string          `json:"coin_name"`
	TradeType    string          `json:"trade_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerCoin decimal.Decimal `json:"price_per_coin"`
	Total        decimal.Decimal `json:"total"`
	NewBalance   decimal.Decimal `json:"new_balance"`
}

// Portfolio is a user's cash plus holdings valued at current prices.
type Portfolio struct {
	BankBalance         decimal.Decimal `json:"bank_balance"`
	Wallets             []Wallet        `json:"wallets"`
	TotalPortfolioValue decimal.Decimal `json:"total_portfolio_value"`
	TotalAssets         decimal.Decimal `json:"total_assets"`
}

// HistoryPage is one page of trade history.
type HistoryPage struct {
	Trades     []TradeHistory
	Pagination pagination.Calculation
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func lockBalance(tx *gorm.DB, userID uint) (*BankBalance, error) {
	var balance BankBalance
	if err := tx.Clauses(forUpdate).First(&balance, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("bank balance: %w", translate(err))
	}
	return &balance, nil
}

// lockWallet returns the locked wallet row, or nil when the user holds none.
func lockWallet(tx *gorm.DB, userID uint, coinID string) (*Wallet, error) {
	var wallet Wallet
	err := tx.Clauses(forUpdate).First(&wallet, "user_id = ? AND coin_id = ?", userID, coinID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	return &wallet, nil
}

func currentPrice(tx *gorm.DB, coinID string) (*Coin, decimal.Decimal, error) {
	var coin Coin
	if err := tx.First(&coin, "id = ?", coinID).Error; err != nil {
		return nil, decimal.Zero, translate(err)
	}
	if !coin.CurrentPrice.Valid {
		return &coin, decimal.Zero, ErrPriceUnavailable
	}
	return &coin, coin.CurrentPrice.Decimal, nil
}

// Buy purchases quantity of coinID at its current price. Cash, wallet and
// history are updated in one transaction with the balance row locked.
func (s *Store) Buy(ctx context.Context, userID uint, coinID string, quantity decimal.Decimal) (*TradeResult, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	var result *TradeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, userID)
		if err != nil {
			return err
		}
		coin, price, err := currentPrice(tx, coinID)
		if err != nil {
			return err
		}
		wallet, err := lockWallet(tx, userID, coinID)
		if err != nil {
			return err
		}

		holding := decimal.Zero
		if wallet != nil {
			holding = wallet.Quantity
		}
		out, err := ApplyBuy(balance.CashBalance, holding, price, quantity)
		if err != nil {
			return err
		}

		if err := tx.Model(balance).Update("cash_balance", out.CashAfter).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		if wallet == nil {
			wallet = &Wallet{UserID: userID, CoinID: coinID, Quantity: out.HoldingNext}
			if err := tx.Create(wallet).Error; err != nil {
				return fmt.Errorf("create wallet: %w", err)
			}
		} else if err := tx.Model(wallet).Update("quantity", out.HoldingNext).Error; err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}

		trade := TradeHistory{
			UserID:             userID,
			CoinID:             coinID,
			TradeType:          TradeBuy,
			TradeQuantity:      quantity,
			TradePricePerCoin:  price,
			BalanceBeforeTrade: out.CashBefore,
			BalanceAfterTrade:  out.CashAfter,
		}
		if err := tx.Create(&trade).Error; err != nil {
			return fmt.Errorf("record trade: %w", err)
		}

		result = &TradeResult{
			CoinID:       coin.ID,
			CoinName:     coin.Name,
			TradeType:    TradeBuy,
			Quantity:     quantity,
			PricePerCoin: price,
			Total:        out.Cost,
			NewBalance:   out.CashAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("user_id", userID).
		Str("coin_id", coinID).
		Str("quantity", quantity.String()).
		Str("total", result.Total.String()).
		Msg("Buy executed")
	return result, nil
}

// Sell sells quantity of coinID at its current price. The wallet row is
// deleted when its quantity reaches zero.
func (s *Store) Sell(ctx context.Context, userID uint, coinID string, quantity decimal.Decimal) (*TradeResult, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	var result *TradeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, userID)
		if err != nil {
			return err
		}
		wallet, err := lockWallet(tx, userID, coinID)
		if err != nil {
			return err
		}
		if wallet == nil {
			var coin Coin
			if err := tx.First(&coin, "id = ?", coinID).Error; err != nil {
				return translate(err)
			}
			return ErrNotHolding
		}
		coin, price, err := currentPrice(tx, coinID)
		if err != nil {
			return err
		}

		out, err := ApplySell(balance.CashBalance, wallet.Quantity, price, quantity)
		if err != nil {
			return err
		}

		if out.HoldingNext.IsZero() {
			if err := tx.Delete(wallet).Error; err != nil {
				return fmt.Errorf("delete wallet: %w", err)
			}
		} else if err := tx.Model(wallet).Update("quantity", out.HoldingNext).Error; err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		if err := tx.Model(balance).Update("cash_balance", out.CashAfter).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		trade := TradeHistory{
			UserID:             userID,
			CoinID:             coinID,
			TradeType:          TradeSell,
			TradeQuantity:      quantity,
			TradePricePerCoin:  price,
			BalanceBeforeTrade: out.CashBefore,
			BalanceAfterTrade:  out.CashAfter,
		}
		if err := tx.Create(&trade).Error; err != nil {
			return fmt.Errorf("record trade: %w", err)
		}

		result = &TradeResult{
			CoinID:       coin.ID,
			CoinName:     coin.Name,
			TradeType:    TradeSell,
			Quantity:     quantity,
			PricePerCoin: price,
			Total:        out.Proceeds,
			NewBalance:   out.CashAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("user_id", userID).
		Str("coin_id", coinID).
		Str("quantity", quantity.String()).
		Str("total", result.Total.String()).
		Msg("Sell executed")
	return result, nil
}

// Portfolio returns the user's cash and holdings.
func (s *Store) Portfolio(ctx context.Context, userID uint) (*Portfolio, error) {
	db := s.db.WithContext(ctx)

	var balance BankBalance
	if err := db.First(&balance, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("bank balance: %w", translate(err))
	}

	var wallets []Wallet
	if err := db.Preload("Coin").Where("user_id = ?", userID).Order("coin_id").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("wallets: %w", err)
	}

	value := PortfolioValue(wallets)
	return &Portfolio{
		BankBalance:         balance.CashBalance,
		Wallets:             wallets,
		TotalPortfolioValue: value,
		TotalAssets:         balance.CashBalance.Add(value),
	}, nil
}

// TradeHistory returns one page of the user's trades, newest first.
// pageSize is clamped to [1, MaxHistoryPageSize] with DefaultHistoryPageSize
// for unset values; an out-of-range page is clamped to the last page.
func (s *Store) TradeHistory(ctx context.Context, userID uint, page, pageSize int) (*HistoryPage, error) {
	pageSize = pagination.ClampPageSize(pageSize, DefaultHistoryPageSize, MaxHistoryPageSize)
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&TradeHistory{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count trades: %w", err)
	}

	calc := pagination.Compute(page, int(total), pageSize, pagination.DefaultConfig())

	var trades []TradeHistory
	err := db.Preload("Coin").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(calc.StartIndex).
		Limit(pageSize).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	return &HistoryPage{Trades: trades, Pagination: calc}, nil
}
