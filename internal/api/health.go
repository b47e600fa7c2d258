package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "ok"}

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Database health check failed")
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unavailable"
	}

	if s.deps.Network != nil {
		if s.deps.Network.Status() {
			body["upstream"] = "online"
		} else {
			body["upstream"] = "offline"
		}
	}

	c.JSON(status, body)
}
