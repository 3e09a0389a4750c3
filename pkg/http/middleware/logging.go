package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	applogger "GlucoPlot/pkg/logger"
)

// RequestLogging tags each request with an X-Request-ID, reusing the
// client's, and logs it. Server errors log at warn, the rest at debug.
func RequestLogging(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the status before it is logged
				c.Error(err)
				err = nil
			}

			fields := []applogger.Field{
				applogger.String("request_id", id),
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("duration_ms", time.Since(start)),
			}
			if c.Response().Status >= 500 {
				log.Warn("http request failed", fields...)
			} else {
				log.Debug("http request", fields...)
			}
			return err
		}
	}
}
