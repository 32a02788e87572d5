package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/vulnsync/internal/adapters/cache"
	"github.com/lcalzada-xor/vulnsync/internal/adapters/export"
	"github.com/lcalzada-xor/vulnsync/internal/adapters/overrides"
	"github.com/lcalzada-xor/vulnsync/internal/adapters/rules"
	"github.com/lcalzada-xor/vulnsync/internal/adapters/storage"
	"github.com/lcalzada-xor/vulnsync/internal/config"
	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/core/services/grouping"
	syncsvc "github.com/lcalzada-xor/vulnsync/internal/core/services/sync"
	"github.com/lcalzada-xor/vulnsync/internal/mock"
	"github.com/lcalzada-xor/vulnsync/internal/telemetry"
)

// Application wires the pipeline components together. It acts as the
// composition root for the sync commands.
type Application struct {
	Config *config.Config

	Exporter  *export.Client
	Cache     *cache.FileCache
	Rules     *rules.SQLiteRepository
	Overrides *overrides.FileStore
	Store     *storage.SQLiteStore
	Sync      *syncsvc.Service

	mockServer    *mock.ExportServer
	metricsServer *http.Server
}

// New creates an Application and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		app.Close()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()
	cfg := app.Config

	baseURL := cfg.BaseURL
	if cfg.MockMode {
		gen := mock.NewDataGenerator(time.Now().UnixNano(), 25)
		app.mockServer = mock.NewExportServer(gen.Records(400), 100)
		baseURL = app.mockServer.Start()
		slog.Info("mock mode enabled", "url", baseURL)
	} else if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return fmt.Errorf("missing API credentials (set VULNSYNC_ACCESS_KEY / VULNSYNC_SECRET_KEY)")
	}

	retry := export.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	retry.BackoffFactor = cfg.BackoffFactor

	transport := export.NewTransport(baseURL, cfg.AccessKey, cfg.SecretKey, "vulnsync", cfg.RequestTimeout, retry)
	app.Exporter = export.NewClient(transport, export.ClientConfig{
		AssetsPerChunk:      cfg.AssetsPerChunk,
		ExportTimeout:       cfg.ExportTimeout,
		PollInitialWait:     cfg.PollInitialWait,
		PollMaxWait:         cfg.PollMaxWait,
		MaxConcurrentChunks: cfg.MaxConcurrentChunks,
	})

	fc, err := cache.New(cfg.CacheDir, time.Duration(cfg.CacheMaxHours*float64(time.Hour)))
	if err != nil {
		return fmt.Errorf("open findings cache: %w", err)
	}
	app.Cache = fc
	app.Overrides = overrides.NewFileStore(cfg.OverridesPath)

	repo, err := rules.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open rules repository: %w", err)
	}
	app.Rules = repo
	if n, err := repo.Seed(context.Background()); err != nil {
		slog.Warn("rule seeding failed", "error", err)
	} else if n > 0 {
		slog.Info("seeded default vendor rules", "count", n)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open finding store: %w", err)
	}
	app.Store = store

	app.Sync = syncsvc.New(app.Exporter, app.Cache, app.Rules, app.Store, app.Overrides, slog.Default())

	if cfg.MetricsAddr != "" {
		app.startMetrics(cfg.MetricsAddr)
	}
	return nil
}

// startMetrics exposes the Prometheus registry on its own listener.
func (app *Application) startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	app.metricsServer = &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := app.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}

// RunSync executes one full pipeline run and prints its summary.
func (app *Application) RunSync(ctx context.Context, filters domain.FilterSet, forceRefresh bool) error {
	result, err := app.Sync.Run(ctx, filters, forceRefresh)
	if err != nil {
		return err
	}

	fmt.Printf("Sync finished in %s\n", result.Runtime.Round(time.Millisecond))
	fmt.Printf("  raw records:   %d (from cache: %v)\n", result.RawRecords, result.FromCache)
	fmt.Printf("  findings:      %d stored\n", result.Stored)
	fmt.Printf("  servers:       %d created, %d updated\n", result.ServersCreated, result.ServersUpdated)
	fmt.Printf("  quick wins:    %d (version: %d, unsupported: %d)\n",
		result.QuickWins.Total,
		result.QuickWins.VersionThreshold.Count,
		result.QuickWins.UnsupportedProduct.Count)
	return nil
}

// ShowTags lists the remote tag values grouped by category.
func (app *Application) ShowTags(ctx context.Context) error {
	tags, err := app.Exporter.ListTags(ctx)
	if err != nil {
		return err
	}
	byCategory := make(map[string][]string)
	var order []string
	for _, t := range tags {
		if _, ok := byCategory[t.Category]; !ok {
			order = append(order, t.Category)
		}
		byCategory[t.Category] = append(byCategory[t.Category], t.Value)
	}
	for _, cat := range order {
		fmt.Printf("%s:\n", cat)
		for _, v := range byCategory[cat] {
			fmt.Printf("  - %s\n", v)
		}
	}
	return nil
}

// ShowCacheInfo prints the cache entry state for the given filters.
func (app *Application) ShowCacheInfo(filters domain.FilterSet) {
	info := app.Cache.GetInfo(filters)
	if info == nil {
		fmt.Println("No cache entry for these filters.")
		return
	}
	fmt.Printf("Cached: %d records, %.1fh old (stale: %v)\n", info.Count, info.AgeHours, info.Stale)
}

// ClearCache removes all cache entries.
func (app *Application) ClearCache() error {
	if err := app.Cache.ClearAll(); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}

// AddOverride registers an OS pattern -> device type mapping.
func (app *Application) AddOverride(pattern, deviceType string) error {
	dt, ok := domain.ParseDeviceType(deviceType)
	if !ok {
		return fmt.Errorf("invalid device type %q (server, workstation, network, unknown)", deviceType)
	}
	if err := app.Overrides.Add(pattern, dt); err != nil {
		return err
	}
	fmt.Printf("Override added: %q -> %s\n", pattern, dt)
	return nil
}

// RemoveOverride deletes an OS pattern mapping.
func (app *Application) RemoveOverride(pattern string) error {
	if err := app.Overrides.Remove(pattern); err != nil {
		return err
	}
	fmt.Printf("Override removed: %q\n", pattern)
	return nil
}

// ListOverrides prints the stored overrides in evaluation order.
func (app *Application) ListOverrides() error {
	entries, err := app.Overrides.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No overrides defined.")
		return nil
	}
	for _, o := range entries {
		fmt.Printf("  %-40q -> %s\n", o.Pattern, o.DeviceType)
	}
	return nil
}

// ShowServers prints the per-host summary from the current cache entry,
// sorted by the requested key.
func (app *Application) ShowServers(ctx context.Context, filters domain.FilterSet, sortKey string) error {
	raw, _, ok := app.Cache.Get(filters)
	if !ok {
		var err error
		raw, err = app.fetchFresh(ctx, filters)
		if err != nil {
			return err
		}
	}

	findings := app.Sync.Enrich(ctx, raw)
	grouper := grouping.NewServerGrouper()
	servers := grouper.GroupByServer(findings)
	sorted := grouper.Sort(servers, grouping.ServerSortKey(sortKey))
	stats := grouper.Stats(servers)

	fmt.Printf("%d hosts, %d findings (%d critical, %d high)\n\n",
		stats.TotalServers, stats.TotalFindings, stats.Critical, stats.High)
	for _, s := range sorted {
		fmt.Printf("%-40s %-15s C:%-4d H:%-4d M:%-4d L:%-4d qw:%d\n",
			s.Hostname, s.IPV4, s.Critical, s.High, s.Medium, s.Low, s.QuickWins)
	}
	return nil
}

func (app *Application) fetchFresh(ctx context.Context, filters domain.FilterSet) ([]domain.RawRecord, error) {
	records, err := app.Exporter.Export(ctx, filters)
	if err != nil {
		return nil, err
	}
	if err := app.Cache.Set(filters, records); err != nil {
		slog.Warn("cache write failed", "error", err)
	}
	return records, nil
}

// Close releases all resources. Safe on a partially bootstrapped app.
func (app *Application) Close() {
	if app.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.metricsServer.Shutdown(ctx)
	}
	if app.mockServer != nil {
		app.mockServer.Close()
	}
	if app.Rules != nil {
		if err := app.Rules.Close(); err != nil {
			slog.Warn("closing rules repository", "error", err)
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			slog.Warn("closing finding store", "error", err)
		}
	}
}
