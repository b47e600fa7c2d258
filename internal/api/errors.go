package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/cryptomark/internal/auth"
	"github.com/Sternrassler/cryptomark/internal/store"
)

// errorStatus maps domain errors to a status code and client message.
// Anything unrecognised is a 500 with a generic message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusBadRequest, "Already exists"
	case errors.Is(err, store.ErrInvalidQuantity),
		errors.Is(err, store.ErrPriceUnavailable),
		errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, store.ErrInsufficientHoldings),
		errors.Is(err, store.ErrNotHolding),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, capitalize(err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, capitalize(err.Error())
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// queryInt reads an integer query parameter, falling back to def when it
// is missing or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
