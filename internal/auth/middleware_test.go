package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(tokens *TokenManager) *gin.Engine {
	r := gin.New()
	r.GET("/me", RequireAuth(tokens), func(c *gin.Context) {
		id, ok := UserID(c)
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "ok": ok, "email": claims.Email})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	tokens, _ := newTestTokens(t)
	router := protectedRouter(tokens)

	valid, _, err := tokens.Issue(9, "nine@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":9,"ok":true,"email":"nine@example.com"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	tokens, _ := newTestTokens(t)
	router := protectedRouter(tokens)

	token, _, err := tokens.Issue(1, "a@example.com")
	require.NoError(t, err)
	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(context.Background(), claims))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalidated")
}

func TestUserID_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := UserID(c)
	assert.False(t, ok)
	_, ok = ClaimsFrom(c)
	assert.False(t, ok)
}
