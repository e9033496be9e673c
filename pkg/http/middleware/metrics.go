package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	applogger "StockCharts/pkg/logger"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
}

var (
	hm     httpMetrics
	hmOnce sync.Once
)

func registerHTTPMetrics() {
	hm = httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockcharts",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		// chart builds on a cold cache include the upstream fetch
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stockcharts",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"route", "method", "class"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stockcharts",
			Name:      "http_in_flight_requests",
			Help:      "Requests being served",
		}),
		// a ten year bundle with every indicator runs into megabytes
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stockcharts",
			Name:      "http_response_size_bytes",
			Help:      "Response body size",
			Buckets:   prometheus.ExponentialBuckets(512, 4, 8),
		}, []string{"route", "class"}),
	}
	prometheus.MustRegister(hm.requests, hm.duration, hm.inFlight, hm.size)
}

// Metrics records request metrics labelled by the echo route template
// (e.g. "/api/charts/:symbol") and warns about requests slower than
// slowThreshold.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	hmOnce.Do(registerHTTPMetrics)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hm.inFlight.Inc()
			defer hm.inFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route, method := routeLabel(c), c.Request().Method
			res := c.Response()
			status, class := strconv.Itoa(res.Status), statusClass(res.Status)
			took := time.Since(start)

			hm.requests.WithLabelValues(route, method, status).Inc()
			hm.duration.WithLabelValues(route, method, class).Observe(took.Seconds())
			hm.size.WithLabelValues(route, class).Observe(float64(res.Size))

			if l != nil && slowThreshold > 0 && took >= slowThreshold {
				l.Warn("slow request",
					applogger.String("route", route),
					applogger.String("uri", c.Request().RequestURI),
					applogger.String("status", status),
					applogger.Duration("took_ms", took),
					applogger.Int64("bytes", res.Size),
				)
			}
			return nil
		}
	}
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

// statusClass maps 404 to "4xx". Anything outside 100-599 counts as 5xx.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
