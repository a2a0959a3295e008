package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ethtracker/internal/application"
	"ethtracker/internal/config"
	"ethtracker/internal/infrastructure/cache"
	"ethtracker/internal/infrastructure/csvexport"
	"ethtracker/internal/infrastructure/explorer"
	"ethtracker/internal/infrastructure/kafka"
	"ethtracker/internal/infrastructure/logging"
	"ethtracker/internal/infrastructure/ratelimit"
	"ethtracker/internal/infrastructure/telemetry"
	"ethtracker/internal/interfaces/httpapi"
)

const serviceName = "ethtracker"

// app holds the wired components of one process.
type app struct {
	cfg     config.Config
	tracker *application.Tracker
	metrics *httpapi.Metrics
	closers []func() error
}

// newRuntime loads configuration and installs logging and tracing.
func newRuntime(ctx context.Context) (*app, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	logFile, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAge:     cfg.LogMaxAge,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if logFile != nil {
		a.closers = append(a.closers, logFile.Close)
	}

	shutdownTracing, err := telemetry.InitTracer(ctx, serviceName, version, cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "err", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(shutdownCtx)
	})
	return a, nil
}

// newApp wires the full tracking pipeline on top of newRuntime.
func newApp(ctx context.Context, providerFlag string) (*app, error) {
	a, err := newRuntime(ctx)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg
	provider, err := explorer.ParseProvider(firstNonEmpty(providerFlag, cfg.Provider))
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := cfg.Validate(string(provider)); err != nil {
		a.Close()
		return nil, err
	}

	client, err := explorer.NewClient(provider, explorer.Options{
		APIKey:  cfg.APIKey(string(provider)),
		BaseURL: cfg.EtherscanBaseURL,
		ChainID: cfg.ChainID,
		Timeout: cfg.RequestTimeout,
		Limiter: ratelimit.NewWithInterval(cfg.RateLimitDelay),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var source application.TransactionSource = client
	if pageCache, err := cache.NewPageCache(client, cache.Config{Addr: cfg.RedisAddr, TTL: cfg.CacheTTL}); err != nil {
		slog.Warn("redis cache disabled", "err", err)
	} else if pageCache.Enabled() {
		source = pageCache
		a.closers = append(a.closers, pageCache.Close)
		slog.Info("redis page cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	catalog := application.DefaultCatalog()
	if cfg.CatalogFile != "" {
		catalog, err = application.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.metrics = httpapi.NewMetrics()
	processor, err := application.NewProcessor(source, application.NewCategorizer(catalog), a.metrics, application.ProcessorConfig{
		PageSize: cfg.PageSize,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	exporter, err := csvexport.NewExporter(csvexport.Config{
		Directory:      cfg.OutputDirectory,
		FilenameFormat: cfg.FilenameFormat,
		Delimiter:      cfg.CSVDelimiter,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher application.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := kafka.NewPublisher(kafka.PublisherConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = kafkaPublisher
		a.closers = append(a.closers, kafkaPublisher.Close)
		slog.Info("kafka publishing enabled", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	}

	a.tracker, err = application.NewTracker(processor, exporter, publisher, application.TrackerConfig{
		MaxTransactions:  cfg.MaxTransactions,
		IncludeTimestamp: cfg.IncludeTimestamp,
		BatchPause:       cfg.BatchPause,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	slog.Debug("tracker ready", "provider", provider, "page_size", cfg.PageSize, "rate_limit_delay", cfg.RateLimitDelay)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
