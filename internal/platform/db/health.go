package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// Pinger is the part of the pool the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsFunc returns a snapshot of pool statistics.
func StatsFunc(pool *pgxpool.Pool) func() *PoolStats {
	return func() *PoolStats {
		stat := pool.Stat()
		return &PoolStats{
			TotalConns:      stat.TotalConns(),
			IdleConns:       stat.IdleConns(),
			AcquiredConns:   stat.AcquiredConns(),
			MaxConns:        stat.MaxConns(),
			AcquireCount:    stat.AcquireCount(),
			AcquireDuration: stat.AcquireDuration().String(),
		}
	}
}

// HealthHandler pings the database and reports pool statistics.
func HealthHandler(p Pinger, stats func() *PoolStats) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		body := map[string]interface{}{"status": "healthy"}
		if stats != nil {
			body["pool"] = stats()
		}

		if err := p.Ping(ctx); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	}
}
