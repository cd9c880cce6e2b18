// Package httpapi exposes the survey and its results over HTTP using gin.
package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/internal/application"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// DefaultServiceName names the server in traces.
const DefaultServiceName = "ballot"

// Config wires the router to the application services.
type Config struct {
	// Survey and Results are required.
	Survey  *application.SurveyService
	Results *application.AggregationService

	// Limiter bounds requests per client on the /v1 routes. Nil disables
	// limiting.
	Limiter *middleware.ClientLimiter
	// Metrics records request latency. Nil disables request metrics.
	Metrics ports.MetricsCollector
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Logger defaults to a logger that discards output.
	Logger *slog.Logger
	// ServiceName names the server in traces.
	ServiceName string
	// SecureCookie marks the respondent cookie as HTTPS only.
	SecureCookie bool
}

// NewRouter builds the gin engine serving every route.
//
//	GET  /healthz              liveness
//	GET  /metrics              Prometheus exposition
//	GET  /v1/items             item catalog
//	POST /v1/survey/start      start a survey, sets the respondent cookie
//	GET  /v1/survey            current pair for the cookie's respondent
//	POST /v1/survey            submit a judgment
//	GET  /v1/results/summary   aggregate statistics
//	GET  /v1/results/detail    per-respondent rankings, bearer token required
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.Survey == nil || cfg.Results == nil {
		return nil, fmt.Errorf("%w: survey and results services are required", domain.ErrEmptyValue)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	h := &handlers{
		survey:       cfg.Survey,
		results:      cfg.Results,
		catalog:      cfg.Survey.Catalog(),
		logger:       cfg.Logger,
		secureCookie: cfg.SecureCookie,
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		requestLogger(cfg.Logger),
		requestMetrics(cfg.Metrics),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1", rateLimit(cfg.Limiter))
	v1.GET("/items", h.listItems)
	v1.POST("/survey/start", h.startSurvey)
	v1.GET("/survey", h.currentPair)
	v1.POST("/survey", h.submitJudgment)
	v1.GET("/results/summary", h.summary)
	v1.GET("/results/detail", h.detail)

	return router, nil
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// requestMetrics records request latency by route template.
func requestMetrics(metrics ports.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metrics.RecordLatency(middleware.OperationHTTPRequest, time.Since(start), map[string]string{
			"method": c.Request.Method,
			"route":  c.FullPath(),
			"code":   strconv.Itoa(c.Writer.Status()),
		})
	}
}

// rateLimit rejects clients that exceed their token bucket with 429.
func rateLimit(limiter *middleware.ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error: ports.ErrRateLimited.Error(),
				Code:  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
