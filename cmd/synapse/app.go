package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/toyz/synapse/internal/config"
	"github.com/toyz/synapse/internal/demo"
	"github.com/toyz/synapse/internal/diagnostics"
	"github.com/toyz/synapse/pkg/synapse"
	"github.com/toyz/synapse/pkg/synapse/adapters"
	"github.com/toyz/synapse/pkg/synapse/interceptors"
)

// app is the demo API with its host and telemetry
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	server   *synapse.Server
	host     adapters.Host
	registry *prometheus.Registry
	tracer   *sdktrace.TracerProvider
}

// newApp builds and initializes the server. traceOut receives exported spans;
// nil disables the stdout exporter.
func newApp(ctx context.Context, cfg *config.Config, traceOut io.Writer) (*app, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	globals := []any{interceptors.NewLogging(logger.Named("http"))}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := interceptors.NewMetrics(cfg.Metrics.Namespace, a.registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		globals = append(globals, m)
	}

	if cfg.Tracing.Enabled {
		a.tracer, err = newTracerProvider(cfg.Tracing, traceOut)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(a.tracer)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
		// tracing runs outermost so the span covers the other interceptors
		globals = append([]any{interceptors.NewTracing(a.tracer.Tracer("github.com/toyz/synapse"))}, globals...)
	}

	root, err := demo.Module(logger)
	if err != nil {
		return nil, err
	}

	a.server, err = synapse.New(root,
		synapse.WithLogger(logger),
		synapse.WithGlobalPrefix(cfg.Server.Prefix),
		synapse.WithGlobalInterceptors(globals...),
	)
	if err != nil {
		return nil, err
	}
	if a.tracer != nil {
		var span trace.Span
		ctx, span = a.tracer.Tracer("github.com/toyz/synapse").Start(ctx, "synapse.init")
		defer span.End()
	}
	if err := a.server.Init(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func newTracerProvider(cfg config.TracingConfig, out io.Writer) (*sdktrace.TracerProvider, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.Exporter == "stdout" && out != nil {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// newHost creates the configured host framework
func newHost(cfg *config.Config) (adapters.Host, error) {
	switch cfg.Server.Adapter {
	case "echo":
		return adapters.NewDefaultEchoAdapter(), nil
	case "gin":
		gin.SetMode(gin.ReleaseMode)
		return adapters.NewDefaultGinAdapter(), nil
	case "fiber":
		return adapters.NewDefaultFiberAdapter(), nil
	case "chi":
		return adapters.NewDefaultChiAdapter(cfg.Server.CORSOrigins...), nil
	case "http":
		return adapters.NewHTTPAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", cfg.Server.Adapter)
	}
}

// mount attaches the server and, when enabled, the metrics endpoint to host.
// Metrics go first so no host fallback shadows them.
func (a *app) mount(host adapters.Host) error {
	if a.registry != nil {
		h := promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
		path := a.cfg.Metrics.Path

		switch host := host.(type) {
		case *adapters.EchoAdapter:
			host.GetEngine().GET(path, echo.WrapHandler(h))
		case *adapters.GinAdapter:
			host.GetEngine().GET(path, gin.WrapH(h))
		case *adapters.FiberAdapter:
			host.GetApp().Get(path, adaptor.HTTPHandler(h))
		case *adapters.ChiAdapter:
			host.Router().Handle(path, h)
		case *adapters.HTTPAdapter:
			host.Mux().Handle(path, h)
		default:
			return fmt.Errorf("metrics endpoint not supported on %s", host.Name())
		}
	}

	if err := host.Mount(a.server); err != nil {
		return err
	}
	a.host = host
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// serve runs the demo API until ctx is cancelled or the host fails. Spans from
// the stdout exporter go to traceOut.
func serve(ctx context.Context, cfg *config.Config, out *diagnostics.Reporter, traceOut io.Writer) error {
	a, err := newApp(ctx, cfg, traceOut)
	if err != nil {
		return err
	}

	host, err := newHost(cfg)
	if err != nil {
		return err
	}
	if err := a.mount(host); err != nil {
		return err
	}

	out.Section(fmt.Sprintf("synapse on %s", host.Name()))
	out.Routes(cfg.Server.Prefix, a.server.Routes())
	if cfg.Metrics.Enabled {
		out.Info("metrics exposed at %s", cfg.Metrics.Path)
	}
	out.Success("listening on %s", cfg.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- host.Start(cfg.Addr())
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		out.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("%s server failed: %w", host.Name(), err))
	}
	if stopErr := host.Stop(shutdownCtx); stopErr != nil {
		errs = append(errs, fmt.Errorf("shutdown failed: %w", stopErr))
	}
	a.close(shutdownCtx)

	if len(errs) == 0 {
		out.Success("stopped")
	}
	return errors.Join(errs...)
}
