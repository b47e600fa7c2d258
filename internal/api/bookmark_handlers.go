package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/cryptomark/internal/auth"
	"github.com/Sternrassler/cryptomark/internal/store"
)

type bookmarkRequest struct {
	CoinID string `json:"coin_id" binding:"required"`
}

func currentUser(c *gin.Context) (uint, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

func (s *Server) addBookmark(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	bookmark, err := s.deps.Store.AddBookmark(c.Request.Context(), userID, req.CoinID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		badRequest(c, "Coin not found")
		return
	case errors.Is(err, store.ErrDuplicate):
		badRequest(c, "Coin is already bookmarked")
		return
	case err != nil:
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bookmark added",
		"bookmark": gin.H{
			"id":         bookmark.ID,
			"coin_id":    bookmark.CoinID,
			"coin_name":  bookmark.Coin.Name,
			"created_at": bookmark.CreatedAt,
		},
	})
}

func (s *Server) removeBookmark(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	coinID := c.Param("coin_id")

	if err := s.deps.Store.RemoveBookmark(c.Request.Context(), userID, coinID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bookmark not found"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed", "coin_id": coinID})
}

func (s *Server) userBookmarks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	coins, err := s.deps.Store.BookmarkedCoins(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if coins == nil {
		coins = []store.Coin{}
	}
	c.JSON(http.StatusOK, gin.H{"data": coins, "count": len(coins)})
}
