package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/go-ballot/infrastructure/httpapi"
	"github.com/ahrav/go-ballot/infrastructure/middleware"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	traceStdout  bool
	secureCookie bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the survey HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, opts, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&opts.traceStdout, "trace-stdout", false, "export trace spans to stderr")
	cmd.Flags().BoolVar(&opts.secureCookie, "secure-cookie", false, "mark the respondent cookie as HTTPS only")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions, stderr io.Writer) error {
	a, err := openApp(ctx, root, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("failed to close store", "error", err)
		}
	}()

	if opts.traceStdout {
		shutdown, err := setupTracing(a.loaded.Config.Metadata.Name, stderr)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				a.logger.Error("failed to flush traces", "error", err)
			}
		}()
	}

	metrics := middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	observer := middleware.NewOTelSurveyObserver(metrics)

	survey, err := a.surveyService(observer)
	if err != nil {
		return err
	}
	results, err := a.aggregationService(observer)
	if err != nil {
		return err
	}

	cfg := a.loaded.Config
	gin.SetMode(gin.ReleaseMode)
	router, err := httpapi.NewRouter(httpapi.Config{
		Survey:       survey,
		Results:      results,
		Limiter:      middleware.NewClientLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
		Metrics:      metrics,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       a.logger,
		ServiceName:  cfg.Metadata.Name,
		SecureCookie: opts.secureCookie,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			"address", cfg.Server.Address,
			"survey", cfg.Metadata.Name,
			"items", a.loaded.Catalog.Len(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// setupTracing installs a global tracer provider that prints spans to w.
func setupTracing(serviceName string, w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", serviceName),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
