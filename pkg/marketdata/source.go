package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/pkg/client"
	"github.com/Sternrassler/cryptomark/pkg/logging"
	"github.com/Sternrassler/cryptomark/pkg/pagination"
	"github.com/Sternrassler/cryptomark/pkg/ratelimit"
)

// MarketsPath is the listing endpoint relative to the client's base URL.
const MarketsPath = "/coins/markets"

// Config holds the listing parameters.
type Config struct {
	// VsCurrency is the quote currency.
	VsCurrency string

	// PerPage is the number of coins per upstream page (max 250).
	PerPage int

	// Fetch controls page-level concurrency and timeouts. Fetch.Timeout is
	// raised to the retry budget when it is shorter.
	Fetch pagination.FetchConfig
}

// DefaultConfig returns the listing defaults: USD quotes, 100 coins per page.
func DefaultConfig() Config {
	return Config{
		VsCurrency: "usd",
		PerPage:    100,
		Fetch:      pagination.DefaultFetchConfig(),
	}
}

// Source reads the coin listing through the resilient client. Caching and
// the upstream cooldown are handled by the client's configuration.
type Source struct {
	client *client.Client
	config Config
	retry  client.RetryConfig
	logger zerolog.Logger
}

// NewSource creates a source. Zero config fields take their defaults.
func NewSource(c *client.Client, cfg Config) *Source {
	def := DefaultConfig()
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = def.VsCurrency
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = def.PerPage
	}
	if cfg.PerPage > 250 {
		cfg.PerPage = 250
	}

	retry := client.DefaultRetryConfig()
	retry.RetryCondition = RetryCondition

	// The page deadline wraps the whole retried fetch, so it must outlast
	// every attempt and backoff or the last retries are cut short.
	if budget := retry.Budget(c.Timeout()); cfg.Fetch.Timeout < budget {
		cfg.Fetch.Timeout = budget
	}

	return &Source{
		client: c,
		config: cfg,
		retry:  retry,
		logger: logging.NewLogger("marketdata"),
	}
}

// RetryCondition retries everything the default condition does plus 429
// responses, which the client holds back until the cooldown ends.
func RetryCondition(err error) bool {
	return client.DefaultRetryCondition(err) || ratelimit.IsRateLimited(err)
}

// PageQuery returns the query for one listing page.
func (s *Source) PageQuery(page int) url.Values {
	return url.Values{
		"vs_currency": {s.config.VsCurrency},
		"order":       {"market_cap_desc"},
		"per_page":    {strconv.Itoa(s.config.PerPage)},
		"page":        {strconv.Itoa(page)},
	}
}

// FetchPage returns the raw JSON of one listing page (1-based). It
// implements pagination.PageFetcher.
func (s *Source) FetchPage(ctx context.Context, page int) ([]byte, error) {
	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   MarketsPath,
		Query:  s.PageQuery(page),
		Retry:  &s.retry,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch markets page %d: %w", page, err)
	}

	s.logger.Debug().
		Int("page", page).
		Bool("from_cache", resp.FromCache).
		Int("bytes", len(resp.Body)).
		Msg("Fetched markets page")
	return resp.Body, nil
}

// FetchMarkets fetches pages 1..pages and returns the coins in listing
// order. On failure it returns the coins of the contiguous pages fetched
// before the first missing one, together with the error.
func (s *Source) FetchMarkets(ctx context.Context, pages int) ([]Coin, error) {
	if pages <= 0 {
		pages = 1
	}

	fetcher := pagination.NewBatchFetcher(s, s.config.Fetch)
	raw, fetchErr := fetcher.FetchPages(ctx, pages)

	numbers := make([]int, 0, len(raw))
	for page := range raw {
		numbers = append(numbers, page)
	}
	sort.Ints(numbers)

	var coins []Coin
	for i, page := range numbers {
		if page != i+1 {
			break
		}
		decoded, err := DecodePage(raw[page])
		if err != nil {
			return coins, fmt.Errorf("decode markets page %d: %w", page, err)
		}
		coins = append(coins, decoded...)
	}

	if fetchErr != nil {
		return coins, fetchErr
	}

	s.logger.Info().Int("pages", pages).Int("coins", len(coins)).Msg("Fetched market listing")
	return coins, nil
}

// DecodePage decodes one listing page.
func DecodePage(data []byte) ([]Coin, error) {
	var coins []Coin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}
