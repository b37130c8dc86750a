package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// LoggingMiddleware logs every API request with its route, status and latency.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			req := ctx.Request()
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("route", ctx.Path()),
				logger.Int("status", responseStatus(ctx, err)),
				logger.String("ip", ctx.RealIP()),
				logger.Duration("latency", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}
			c.logger.Info("API request", fields...)
			return err
		}
	}
}

// MetricsMiddleware records request counts, latency and response size per
// route template, so /plants/1 and /plants/2 share one series.
func (c *Controller) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			c.metrics.HTTP.RecordHTTPRequest(
				ctx.Request().Method,
				ctx.Path(),
				responseStatus(ctx, err),
				time.Since(start).Seconds(),
				ctx.Response().Size,
			)
			return err
		}
	}
}

// responseStatus returns the status that will be sent. Errors returned to
// echo have not been written yet.
func responseStatus(ctx echo.Context, err error) int {
	if err == nil {
		return ctx.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
