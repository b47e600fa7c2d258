// Package testutil provides test doubles shared by package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockMarket is a CoinGecko-like /coins/markets server. It lists Coins
// (generated by NewMockMarket) ordered by market cap rank, paginated with
// the per_page and page query parameters.
type MockMarket struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	failures map[int][]int

	// Coins is the listing served by /coins/markets.
	Coins []map[string]any

	// Tracking
	RequestCount      int
	ConditionalCount  int
	PageRequests      map[int]int
	LastRequestHeader http.Header
}

// NewMockMarket creates a server listing n synthetic coins.
func NewMockMarket(n int) *MockMarket {
	mock := &MockMarket{
		handlers:     make(map[string]http.HandlerFunc),
		failures:     make(map[int][]int),
		Coins:        GenerateCoins(n),
		PageRequests: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		if r.URL.Path == "/coins/markets" {
			mock.marketsHandler(w, r)
			return
		}
		if r.URL.Path == "/ping" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
			return
		}
		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMarket) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMarket) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockMarket) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.PageRequests = make(map[int]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockMarket) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockMarket) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// FailPage makes the next requests for page answer with the given statuses,
// one status per request, before the page is served normally again.
func (m *MockMarket) FailPage(page int, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = append(m.failures[page], statuses...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMarket) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockMarket) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetPageRequests returns how often page was requested.
func (m *MockMarket) GetPageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PageRequests[page]
}

func (m *MockMarket) marketsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	perPage := atoiDefault(query.Get("per_page"), 100)
	page := atoiDefault(query.Get("page"), 1)

	m.mu.Lock()
	m.PageRequests[page]++
	var status int
	if pending := m.failures[page]; len(pending) > 0 {
		status = pending[0]
		m.failures[page] = pending[1:]
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status != 0 {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "0")
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":"status %d"}`, status)
		return
	}

	etag := fmt.Sprintf(`"page-%d-%d"`, page, perPage)
	w.Header().Set("Cache-Control", "max-age=60")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	start := (page - 1) * perPage
	if start < 0 || start > len(m.Coins) {
		start = len(m.Coins)
	}
	end := start + perPage
	if end > len(m.Coins) {
		end = len(m.Coins)
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(m.Coins[start:end])
}

// GenerateCoins returns n coin records in /coins/markets shape, ranked 1..n
// with decreasing market caps.
func GenerateCoins(n int) []map[string]any {
	coins := make([]map[string]any, 0, n)
	updated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= n; i++ {
		price := float64(100000) / float64(i)
		coin := map[string]any{
			"id":                               fmt.Sprintf("coin-%d", i),
			"symbol":                           fmt.Sprintf("c%d", i),
			"name":                             fmt.Sprintf("Coin %d", i),
			"image":                            fmt.Sprintf("https://assets.example.com/coins/%d.png", i),
			"current_price":                    price,
			"high_24h":                         price * 1.05,
			"low_24h":                          price * 0.95,
			"price_change_24h":                 price * 0.01,
			"price_change_percentage_24h":      1.0,
			"market_cap":                       price*1e6 + 0.4,
			"market_cap_rank":                  i,
			"market_cap_change_24h":            price*1e4 + 0.6,
			"market_cap_change_percentage_24h": 1.0,
			"fully_diluted_valuation":          price * 2e6,
			"total_volume":                     price*1e5 + 0.5,
			"circulating_supply":               1e6,
			"total_supply":                     2e6,
			"max_supply":                       nil,
			"ath":                              price * 2,
			"ath_change_percentage":            -50.0,
			"ath_date":                         updated.AddDate(-1, 0, 0).Format(time.RFC3339),
			"atl":                              price / 10,
			"atl_change_percentage":            900.0,
			"atl_date":                         updated.AddDate(-5, 0, 0).Format(time.RFC3339),
			"roi":                              nil,
			"last_updated":                     updated.Format(time.RFC3339),
		}
		if i%3 == 0 {
			coin["roi"] = map[string]any{"times": 1.5, "currency": "usd", "percentage": 150.0}
		}
		coins = append(coins, coin)
	}
	return coins
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
