package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/cache"
	"github.com/Sternrassler/cryptomark/pkg/pagination"
)

// Coin list paging.
const (
	DefaultCoinPageSize = 50
	MaxCoinPageSize     = 250
	topCoinsCount       = 10
)

// CacheHeader reports whether a coin list came from the cache.
const CacheHeader = "X-Cache"

type coinListResponse struct {
	Data       []store.Coin           `json:"data"`
	Count      int                    `json:"count"`
	Pagination pagination.Calculation `json:"pagination"`
}

func (s *Server) cacheEnabled() bool {
	return s.deps.Cache != nil && s.config.CoinListTTL > 0
}

func coinListKey(page, size int) cache.Key {
	return cache.Key{
		Namespace: store.CoinsCacheNamespace,
		Path:      "list",
		Query: url.Values{
			"page":      {strconv.Itoa(page)},
			"page_size": {strconv.Itoa(size)},
		},
	}
}

func (s *Server) listCoins(c *gin.Context) {
	ctx := c.Request.Context()
	page := queryInt(c, "page", 1)
	size := pagination.ClampPageSize(queryInt(c, "page_size", DefaultCoinPageSize), DefaultCoinPageSize, MaxCoinPageSize)
	key := coinListKey(page, size)

	if s.cacheEnabled() {
		var cached coinListResponse
		err := s.deps.Cache.GetJSON(ctx, key, &cached)
		if err == nil {
			c.Header(CacheHeader, "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("Coin list cache read failed")
		}
	}

	total, err := s.deps.Store.CountCoins(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	calc := pagination.Compute(page, int(total), size, pagination.DefaultConfig())

	coins, err := s.deps.Store.ListCoins(ctx, calc.StartIndex, size)
	if err != nil {
		writeError(c, err)
		return
	}
	if coins == nil {
		coins = []store.Coin{}
	}
	resp := coinListResponse{Data: coins, Count: len(coins), Pagination: calc}

	if s.cacheEnabled() {
		if err := s.deps.Cache.SetJSON(ctx, key, resp, s.config.CoinListTTL); err != nil {
			s.logger.Warn().Err(err).Msg("Coin list cache write failed")
		}
		c.Header(CacheHeader, "MISS")
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) topCoins(c *gin.Context) {
	coins, err := s.deps.Store.TopCoins(c.Request.Context(), topCoinsCount)
	if err != nil {
		writeError(c, err)
		return
	}
	if coins == nil {
		coins = []store.Coin{}
	}
	c.JSON(http.StatusOK, gin.H{"data": coins, "count": len(coins)})
}

func (s *Server) coinDetail(c *gin.Context) {
	coin, err := s.deps.Store.GetCoin(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Coin not found"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": coin})
}
