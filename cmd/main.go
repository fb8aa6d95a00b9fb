package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pixelrelay/internal/adapters/http/api"
	"github.com/okian/pixelrelay/internal/adapters/http/swagger"
	app "github.com/okian/pixelrelay/internal/app"
	"github.com/okian/pixelrelay/internal/config"
	"github.com/okian/pixelrelay/internal/dispatch"
	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/pkg/logger"
	"github.com/okian/pixelrelay/pkg/metrics"
	"github.com/okian/pixelrelay/pkg/tracing"
)

const serviceName = "pixelrelay"

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "pixelrelay exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyLogLevel(ctx, log, cfg.LogLevel)
	applyMetrics(cfg)

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logger.Error(err))
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(sctx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	if path := os.Getenv(config.EnvConfigPath); path != "" {
		watchConfig(ctx, log, config.NewWatcher(path, cfg), svc)
	}

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	swagger.Register(ctx, mux)
	srv := newHTTPServer(cfg.Addr, mux)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService maps configuration onto service options.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithToggles(dispatch.Toggles{
			PageViews:  cfg.TrackPageViews,
			Ecommerce:  cfg.TrackEcommerce,
			Search:     cfg.TrackSearch,
			FormSubmit: cfg.TrackFormSubmit,
		}),
		app.WithStore(cfg.Affiliation, cfg.ShopCurrency, cfg.DefaultPageLocation),
		app.WithCollector(cfg.CollectorURL, cfg.MeasurementID, time.Duration(cfg.CollectorTimeoutMS)*time.Millisecond),
		app.WithDebug(cfg.Debug),
		app.WithInitialConsent(analytics.ConsentState{
			AnalyticsAllowed:       cfg.ConsentAnalytics,
			MarketingAllowed:       cfg.ConsentMarketing,
			PersonalizationAllowed: cfg.ConsentPreferences,
		}),
	)
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// applyLogLevel sets the level, falling back to info on invalid input.
func applyLogLevel(ctx context.Context, log logger.Logger, level string) {
	if err := logger.SetLevelString(level); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
}

// debugSetter is the part of the service that can change at runtime.
type debugSetter interface {
	SetDebug(on bool)
}

// watchConfig hot-reloads the settings that are safe to change live.
func watchConfig(ctx context.Context, log logger.Logger, w *config.Watcher, svc debugSetter) {
	w.OnChange(func(cfg *config.Config) {
		applyLogLevel(ctx, log, cfg.LogLevel)
		svc.SetDebug(cfg.Debug)
		metrics.SetEnabled(cfg.MetricsEnabled)
		log.Info(ctx, "configuration reloaded",
			logger.String("log_level", cfg.LogLevel),
			logger.Bool("debug", cfg.Debug),
			logger.Bool("metrics_enabled", cfg.MetricsEnabled),
		)
	})
	w.OnError(func(err error) {
		log.Warn(ctx, "configuration reload failed", logger.Error(err))
	})
	if err := w.Watch(ctx); err != nil {
		log.Warn(ctx, "configuration watch disabled", logger.Error(err))
	}
}

// applyMetrics switches recording and sets the gauge refresh period.
func applyMetrics(cfg *config.Config) {
	metrics.SetEnabled(cfg.MetricsEnabled)
	metrics.SetRefreshInterval(time.Duration(cfg.MetricsRefreshMS) * time.Millisecond)
}

func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}
