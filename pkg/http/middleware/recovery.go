package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	applogger "GlucoPlot/pkg/logger"
)

// Recover turns a handler panic into an ordinary error so the server's error
// handler answers with the usual 500 envelope.
func Recover(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				log.Error("http handler panic",
					applogger.String("path", c.Path()),
					applogger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					applogger.String("stack", string(debug.Stack())),
					applogger.Error(perr))
				err = fmt.Errorf("panic: %w", perr)
			}()
			return next(c)
		}
	}
}
