package middleware

import (
	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger logs one line per request through logger.  Server errors
// are logged at error level, client errors at warn, the rest at info.
func RequestLogger(logger hclog.Logger) echo.MiddlewareFunc {
	logger = logger.Named("http")
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			switch {
			case v.Error != nil && v.Status >= 500:
				logger.Error("request failed", append(args, "error", v.Error)...)
			case v.Status >= 500:
				logger.Error("request", args...)
			case v.Status >= 400:
				logger.Warn("request", args...)
			default:
				logger.Info("request", args...)
			}
			return nil
		},
	})
}
