package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	totalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_requests",
		Subsystem: "bootforge",
		Help:      "total number of http requests made to the autoinstall service",
	})

	documentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_failed_document_requests",
		Subsystem: "bootforge",
		Help:      "total number of autoinstall document requests that failed",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "http_duration_seconds",
		Subsystem: "bootforge",
		Help:      "Duration of HTTP requests.",
		Buckets:   []float64{.025, .05, .075, .1, .2, .5, .75, 1, 1.5, 2, 3, 4, 5, 6, 8, 10, 12, 14, 16, 20},
	}, []string{"path"})
)

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		totalRequests.Inc()
		timer := prometheus.NewTimer(httpDuration.WithLabelValues(ctx.Path()))
		defer timer.ObserveDuration()
		return next(ctx)
	}
}
