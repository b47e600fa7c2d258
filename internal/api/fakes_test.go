package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/pagination"
)

// memoryStore is an in-memory Store and auth.UserStore.
type memoryStore struct {
	mu        sync.Mutex
	pingErr   error
	coins     map[string]store.Coin
	users     map[uint]*store.User
	cash      map[uint]decimal.Decimal
	wallets   map[uint]map[string]decimal.Decimal
	bookmarks map[uint][]store.Bookmark
	trades    map[uint][]store.TradeHistory
	nextID    uint
	listCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		coins:     make(map[string]store.Coin),
		users:     make(map[uint]*store.User),
		cash:      make(map[uint]decimal.Decimal),
		wallets:   make(map[uint]map[string]decimal.Decimal),
		bookmarks: make(map[uint][]store.Bookmark),
		trades:    make(map[uint][]store.TradeHistory),
	}
}

// seedCoins adds n coins ranked 1..n with fake names.
func (m *memoryStore) seedCoins(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 1; i <= n; i++ {
		rank := i
		id := fmt.Sprintf("coin-%d", i)
		m.coins[id] = store.Coin{
			ID:            id,
			Symbol:        gofakeit.LetterN(3),
			Name:          gofakeit.Company(),
			MarketCapRank: &rank,
			CurrentPrice:  decimal.NewNullDecimal(decimal.NewFromInt(int64(1000 * (n - i + 1)))),
		}
	}
}

func (m *memoryStore) setPrice(id string, price decimal.NullDecimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.coins[id]
	c.CurrentPrice = price
	m.coins[id] = c
}

func (m *memoryStore) sortedCoins() []store.Coin {
	out := make([]store.Coin, 0, len(m.coins))
	for _, c := range m.coins {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return *out[i].MarketCapRank < *out[j].MarketCapRank
	})
	return out
}

func (m *memoryStore) ListCoins(_ context.Context, offset, limit int) ([]store.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	all := m.sortedCoins()
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return all[start:end], nil
}

func (m *memoryStore) CountCoins(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.coins)), nil
}

func (m *memoryStore) TopCoins(_ context.Context, n int) ([]store.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedCoins()
	return all[:min(n, len(all))], nil
}

func (m *memoryStore) GetCoin(_ context.Context, id string) (*store.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coins[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *memoryStore) AddBookmark(_ context.Context, userID uint, coinID string) (*store.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coin, ok := m.coins[coinID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, b := range m.bookmarks[userID] {
		if b.CoinID == coinID {
			return nil, store.ErrDuplicate
		}
	}
	m.nextID++
	b := store.Bookmark{ID: m.nextID, UserID: userID, CoinID: coinID, Coin: coin, CreatedAt: time.Now()}
	m.bookmarks[userID] = append(m.bookmarks[userID], b)
	return &b, nil
}

func (m *memoryStore) RemoveBookmark(_ context.Context, userID uint, coinID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.bookmarks[userID]
	for i, b := range list {
		if b.CoinID == coinID {
			m.bookmarks[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memoryStore) BookmarkedCoins(_ context.Context, userID uint) ([]store.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Coin
	for _, b := range m.bookmarks[userID] {
		out = append(out, m.coins[b.CoinID])
	}
	return out, nil
}

func (m *memoryStore) price(coinID string) (store.Coin, decimal.Decimal, error) {
	coin, ok := m.coins[coinID]
	if !ok {
		return coin, decimal.Zero, store.ErrNotFound
	}
	if !coin.CurrentPrice.Valid {
		return coin, decimal.Zero, store.ErrPriceUnavailable
	}
	return coin, coin.CurrentPrice.Decimal, nil
}

func (m *memoryStore) record(userID uint, coin store.Coin, side string, qty, price, before, after decimal.Decimal) {
	m.nextID++
	m.trades[userID] = append(m.trades[userID], store.TradeHistory{
		ID: m.nextID, UserID: userID, CoinID: coin.ID, Coin: coin, TradeType: side,
		TradeQuantity: qty, TradePricePerCoin: price,
		BalanceBeforeTrade: before, BalanceAfterTrade: after,
		CreatedAt: time.Now(),
	})
}

func (m *memoryStore) Buy(_ context.Context, userID uint, coinID string, qty decimal.Decimal) (*store.TradeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !qty.IsPositive() {
		return nil, store.ErrInvalidQuantity
	}
	coin, price, err := m.price(coinID)
	if err != nil {
		return nil, err
	}
	if m.wallets[userID] == nil {
		m.wallets[userID] = make(map[string]decimal.Decimal)
	}
	out, err := store.ApplyBuy(m.cash[userID], m.wallets[userID][coinID], price, qty)
	if err != nil {
		return nil, err
	}
	m.cash[userID] = out.CashAfter
	m.wallets[userID][coinID] = out.HoldingNext
	m.record(userID, coin, store.TradeBuy, qty, price, out.CashBefore, out.CashAfter)
	return &store.TradeResult{CoinID: coinID, CoinName: coin.Name, TradeType: store.TradeBuy,
		Quantity: qty, PricePerCoin: price, Total: out.Cost, NewBalance: out.CashAfter}, nil
}

func (m *memoryStore) Sell(_ context.Context, userID uint, coinID string, qty decimal.Decimal) (*store.TradeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !qty.IsPositive() {
		return nil, store.ErrInvalidQuantity
	}
	holding, ok := m.wallets[userID][coinID]
	if !ok {
		if _, exists := m.coins[coinID]; !exists {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrNotHolding
	}
	coin, price, err := m.price(coinID)
	if err != nil {
		return nil, err
	}
	out, err := store.ApplySell(m.cash[userID], holding, price, qty)
	if err != nil {
		return nil, err
	}
	m.cash[userID] = out.CashAfter
	if out.HoldingNext.IsZero() {
		delete(m.wallets[userID], coinID)
	} else {
		m.wallets[userID][coinID] = out.HoldingNext
	}
	m.record(userID, coin, store.TradeSell, qty, price, out.CashBefore, out.CashAfter)
	return &store.TradeResult{CoinID: coinID, CoinName: coin.Name, TradeType: store.TradeSell,
		Quantity: qty, PricePerCoin: price, Total: out.Proceeds, NewBalance: out.CashAfter}, nil
}

func (m *memoryStore) Portfolio(_ context.Context, userID uint) (*store.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cash, ok := m.cash[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	var wallets []store.Wallet
	for coinID, qty := range m.wallets[userID] {
		wallets = append(wallets, store.Wallet{UserID: userID, CoinID: coinID, Coin: m.coins[coinID], Quantity: qty})
	}
	value := store.PortfolioValue(wallets)
	return &store.Portfolio{BankBalance: cash, Wallets: wallets, TotalPortfolioValue: value, TotalAssets: cash.Add(value)}, nil
}

func (m *memoryStore) TradeHistory(_ context.Context, userID uint, page, pageSize int) (*store.HistoryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pageSize = pagination.ClampPageSize(pageSize, store.DefaultHistoryPageSize, store.MaxHistoryPageSize)

	all := m.trades[userID]
	newestFirst := make([]store.TradeHistory, len(all))
	for i, t := range all {
		newestFirst[len(all)-1-i] = t
	}
	calc := pagination.Compute(page, len(newestFirst), pageSize, pagination.DefaultConfig())
	return &store.HistoryPage{Trades: pagination.Slice(newestFirst, calc), Pagination: calc}, nil
}

func (m *memoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *memoryStore) CreateUser(_ context.Context, user *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.users[user.ID] = &copied
	m.cash[user.ID] = store.InitialCashBalance
	return nil
}

func (m *memoryStore) UserByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryStore) TouchLogin(_ context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

type staticStatus bool

func (s staticStatus) Status() bool { return bool(s) }

var errDatabaseDown = errors.New("connection refused")
