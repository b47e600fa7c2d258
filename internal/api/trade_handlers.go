package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Sternrassler/cryptomark/internal/store"
)

type tradeRequest struct {
	CoinID   string          `json:"coin_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (s *Server) buy(c *gin.Context) {
	s.trade(c, store.TradeBuy)
}

func (s *Server) sell(c *gin.Context) {
	s.trade(c, store.TradeSell)
}

func (s *Server) trade(c *gin.Context, side string) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var (
		result *store.TradeResult
		err    error
	)
	if side == store.TradeBuy {
		result, err = s.deps.Store.Buy(ctx, userID, req.CoinID, req.Quantity)
	} else {
		result, err = s.deps.Store.Sell(ctx, userID, req.CoinID, req.Quantity)
	}
	if err != nil {
		// A missing coin or balance is a bad trade request, not a missing resource.
		if errors.Is(err, store.ErrNotFound) {
			badRequest(c, "Coin not found")
			return
		}
		writeError(c, err)
		return
	}

	tradesTotal.WithLabelValues(strings.ToLower(side)).Inc()

	if side == store.TradeBuy {
		c.JSON(http.StatusCreated, gin.H{"message": "Purchase complete", "trade": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale complete", "trade": result})
}

func (s *Server) portfolio(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := s.deps.Store.Portfolio(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			badRequest(c, "Bank balance not found")
			return
		}
		writeError(c, err)
		return
	}
	if p.Wallets == nil {
		p.Wallets = []store.Wallet{}
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) tradeHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	size := queryInt(c, "page_size", store.DefaultHistoryPageSize)

	history, err := s.deps.Store.TradeHistory(c.Request.Context(), userID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}

	trades := history.Trades
	if trades == nil {
		trades = []store.TradeHistory{}
	}
	state := history.Pagination.State
	c.JSON(http.StatusOK, gin.H{
		"data":        trades,
		"count":       state.TotalItems,
		"page":        state.CurrentPage,
		"page_size":   state.ItemsPerPage,
		"total_pages": state.TotalPages,
		"pagination":  history.Pagination,
	})
}
