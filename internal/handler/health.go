package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems.  It returns "ok" when the database answers a ping.
func Health(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				return c.String(http.StatusServiceUnavailable, "database unavailable")
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				return c.String(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
