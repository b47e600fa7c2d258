package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// InitialCashBalance is credited to every new account.
var InitialCashBalance = decimal.NewFromInt(500000)

// CoinsCacheNamespace is the cache namespace of rendered coin responses.
// It is cleared whenever the coins table is refreshed.
const CoinsCacheNamespace = "coins"

// Trade types.
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// User is an account identified by email.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"size:20;not null" json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

func (User) TableName() string { return "users" }

// BankBalance holds a user's cash.
type BankBalance struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	UserID        uint            `gorm:"uniqueIndex;not null" json:"-"`
	CashBalance   decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"cash_balance"`
	LastUpdatedAt time.Time       `gorm:"autoUpdateTime" json:"last_updated_at"`
}

func (BankBalance) TableName() string { return "bank_balance" }

// Coin is the stored market snapshot of one coin.
type Coin struct {
	ID     string  `gorm:"primaryKey;size:50" json:"id"`
	Symbol string  `gorm:"size:20;not null" json:"symbol"`
	Name   string  `gorm:"size:100;not null" json:"name"`
	Image  *string `json:"image"`

	CurrentPrice             decimal.NullDecimal `gorm:"type:numeric(38,18)" json:"current_price"`
	High24h                  decimal.NullDecimal `gorm:"column:high_24h;type:numeric(38,18)" json:"high_24h"`
	Low24h                   decimal.NullDecimal `gorm:"column:low_24h;type:numeric(38,18)" json:"low_24h"`
	PriceChange24h           decimal.NullDecimal `gorm:"column:price_change_24h;type:numeric(38,18)" json:"price_change_24h"`
	PriceChangePercentage24h decimal.NullDecimal `gorm:"column:price_change_percentage_24h;type:numeric(38,18)" json:"price_change_percentage_24h"`

	MarketCap                    *int64              `json:"market_cap"`
	MarketCapRank                *int                `gorm:"index" json:"market_cap_rank"`
	MarketCapChange24h           *int64              `gorm:"column:market_cap_change_24h" json:"market_cap_change_24h"`
	MarketCapChangePercentage24h decimal.NullDecimal `gorm:"column:market_cap_change_percentage_24h;type:numeric(38,18)" json:"market_cap_change_percentage_24h"`
	FullyDilutedValuation        *int64              `json:"fully_diluted_valuation"`
	TotalVolume                  *int64              `json:"total_volume"`

	CirculatingSupply decimal.NullDecimal `gorm:"type:numeric(38,18)" json:"circulating_supply"`
	TotalSupply       decimal.NullDecimal `gorm:"type:numeric(38,18)" json:"total_supply"`
	MaxSupply         decimal.NullDecimal `gorm:"type:numeric(38,18)" json:"max_supply"`

	ATH                 decimal.NullDecimal `gorm:"column:ath;type:numeric(38,18)" json:"ath"`
	ATHChangePercentage decimal.NullDecimal `gorm:"column:ath_change_percentage;type:numeric(38,18)" json:"ath_change_percentage"`
	ATHDate             *time.Time          `gorm:"column:ath_date" json:"ath_date"`
	ATL                 decimal.NullDecimal `gorm:"column:atl;type:numeric(38,18)" json:"atl"`
	ATLChangePercentage decimal.NullDecimal `gorm:"column:atl_change_percentage;type:numeric(38,18)" json:"atl_change_percentage"`
	ATLDate             *time.Time          `gorm:"column:atl_date" json:"atl_date"`
	ROI                 RawJSON             `gorm:"column:roi;type:jsonb" json:"roi"`
	LastUpdated         *time.Time          `json:"last_updated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Coin) TableName() string { return "coins" }

// Wallet is a user's holding of one coin.
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	UserID    uint            `gorm:"uniqueIndex:idx_wallet_user_coin;not null" json:"-"`
	CoinID    string          `gorm:"uniqueIndex:idx_wallet_user_coin;size:50;not null" json:"coin_id"`
	Coin      Coin            `gorm:"constraint:OnDelete:CASCADE" json:"coin"`
	Quantity  decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// TradeHistory records one executed trade.
type TradeHistory struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `gorm:"index;not null" json:"-"`
	CoinID             string          `gorm:"size:50;not null" json:"coin_id"`
	Coin               Coin            `json:"coin"`
	TradeType          string          `gorm:"size:4;not null" json:"trade_type"`
	TradeQuantity      decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"trade_quantity"`
	TradePricePerCoin  decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"trade_price_per_coin"`
	BalanceBeforeTrade decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"balance_before_trade"`
	BalanceAfterTrade  decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"balance_after_trade"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
}

func (TradeHistory) TableName() string { return "trade_history" }

// Bookmark marks a coin as a user's favourite.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_bookmark_user_coin;not null" json:"-"`
	CoinID    string    `gorm:"uniqueIndex:idx_bookmark_user_coin;size:50;not null" json:"coin_id"`
	Coin      Coin      `gorm:"constraint:OnDelete:CASCADE" json:"coin"`
	CreatedAt time.Time `json:"created_at"`
}

func (Bookmark) TableName() string { return "bookmarks" }

// Models lists every model for AutoMigrate.
func Models() []any {
	return []any{&User{}, &BankBalance{}, &Coin{}, &Wallet{}, &TradeHistory{}, &Bookmark{}}
}
